package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iudanet/docsync/internal/client/api"
	"github.com/iudanet/docsync/internal/client/auth"
	"github.com/iudanet/docsync/internal/client/cli"
	"github.com/iudanet/docsync/internal/client/iocli"
	"github.com/iudanet/docsync/internal/client/storage/boltdb"
	clientsync "github.com/iudanet/docsync/internal/client/sync"
	"github.com/iudanet/docsync/internal/config"
	"github.com/iudanet/docsync/internal/logging"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	configPath := flag.String("config", "", "Path to configuration file (toml or yaml)")
	serverURL := flag.String("server", "", "Server URL (overrides config)")
	dbPath := flag.String("db", "", "Path to local replica database (overrides config)")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(*configPath, *serverURL, *dbPath, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, serverURL, dbPath string, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if serverURL != "" {
		cfg.Client.ServerURL = serverURL
	}
	if dbPath != "" {
		cfg.Client.DBPath = dbPath
	}
	if err := cfg.ValidateClient(); err != nil {
		return err
	}

	// логи в stderr, вывод команд в stdout
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := boltdb.New(ctx, cfg.Client.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	sessions := auth.NewSessionService(store)

	token := cfg.Client.Token
	if data, err := sessions.Stored(ctx); err == nil {
		token = data.Token
		if serverURL == "" && data.ServerURL != "" {
			cfg.Client.ServerURL = data.ServerURL
		}
	}

	apiClient := api.NewClient(cfg.Client.ServerURL,
		api.WithToken(token),
		api.WithCompression(cfg.Client.Compress),
		api.WithTimeout(cfg.Client.RequestTimeout.Duration),
	)

	replica := clientsync.NewService(apiClient, store, logger, clientsync.Config{
		Collections:    cfg.Client.Collections,
		Retry:          cfg.Retry.QueueConfig(),
		SyncInterval:   cfg.Client.SyncInterval.Duration,
		Debounce:       cfg.Client.Debounce.Duration,
		DeltaThreshold: cfg.Client.DeltaThreshold,
	}, clientsync.WithRetryClassifier(func(err error) (bool, time.Duration) {
		return api.IsRetryable(err), api.RetryAfter(err)
	}))
	if err := replica.Load(ctx); err != nil {
		return err
	}

	c := cli.New(iocli.NewStdio(), sessions, replica, apiClient, cfg.Client.ServerURL, cfg.Client.Collections)
	if len(args) == 0 {
		c.PrintUsage()
		return errors.New("no command given")
	}
	return c.Run(ctx, args[0], args[1:])
}

func printVersion() {
	fmt.Printf("docsync client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
