package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/docsync/internal/admission"
	"github.com/iudanet/docsync/internal/config"
	"github.com/iudanet/docsync/internal/logging"
	"github.com/iudanet/docsync/internal/observability"
	"github.com/iudanet/docsync/internal/reconcile"
	"github.com/iudanet/docsync/internal/retry"
	"github.com/iudanet/docsync/internal/server"
	"github.com/iudanet/docsync/internal/server/jwt"
	"github.com/iudanet/docsync/internal/server/storage/sqlite"
	"github.com/iudanet/docsync/internal/validation"
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
	addr := flag.String("addr", "", "Listen address (overrides config)")
	dbPath := flag.String("db", "", "Path to SQLite database (overrides config)")
	collections := flag.String("collections", "", "Comma-separated server-wins collections, used when the config defines none")
	issueToken := flag.String("issue-token", "", "Print a bearer token for the given actor and exit")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Server.DBPath = *dbPath
	}
	if len(cfg.Collections) == 0 && *collections != "" {
		for _, name := range strings.Split(*collections, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.Collections = append(cfg.Collections, config.CollectionConfig{Name: name})
			}
		}
	}

	if *issueToken != "" {
		if err := printToken(cfg, *issueToken); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := cfg.ValidateServer(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, err := sqlite.New(ctx, cfg.Server.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}()

	registry, err := cfg.Registry()
	if err != nil {
		return fmt.Errorf("failed to build collections: %w", err)
	}

	var admitter reconcile.Admitter
	var monitor *admission.Monitor
	if cfg.Admission.Enabled {
		monitor = admission.NewMonitor(cfg.Admission.MonitorConfig(), logger)
		admitter = monitor
	}

	coordinator := reconcile.NewCoordinator(registry, store, store, admitter, logger,
		reconcile.WithMaxAttempts(cfg.Server.MaxAttempts),
	)
	queue := retry.NewQueue(cfg.Retry.QueueConfig(), store, coordinator.Redeliver, logger)
	coordinator.SetRetryQueue(queue)
	if err := queue.Load(ctx); err != nil {
		return err
	}

	observability.RegisterMetrics()
	httpServer := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: server.NewRouter(server.Deps{
			Logger:         logger,
			Tokens:         jwt.NewService(cfg.Auth.Secret, cfg.Auth.TokenTTL.Duration),
			Coordinator:    coordinator,
			Store:          store,
			Version:        Version,
			MaxRequestSize: cfg.Server.MaxRequestSize,
			MaxDecodedSize: cfg.Server.MaxDecodedSize,
		}),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("docsync server starting",
			"addr", cfg.Server.Addr,
			"db", cfg.Server.DBPath,
			"collections", registry.Names(),
			"version", Version,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return queue.Run(gctx)
	})

	if monitor != nil {
		g.Go(func() error {
			return monitor.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server", "timeout", cfg.Server.ShutdownTimeout.Duration)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func printToken(cfg config.Config, actorID string) error {
	if err := validation.ValidateActorID(actorID); err != nil {
		return err
	}
	if cfg.Auth.Secret == "" {
		return fmt.Errorf("auth secret is not set (use %s or the config file)", config.EnvJWTSecret)
	}
	token, expiresIn, err := jwt.NewService(cfg.Auth.Secret, cfg.Auth.TokenTTL.Duration).GenerateToken(actorID)
	if err != nil {
		return err
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "Token for %q expires in %ds\n", actorID, expiresIn)
	return nil
}

func printVersion() {
	fmt.Printf("docsync server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
