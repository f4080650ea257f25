// Package config loads server and replica settings from a TOML or YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/iudanet/docsync/internal/admission"
	"github.com/iudanet/docsync/internal/delta"
	"github.com/iudanet/docsync/internal/reconcile"
	"github.com/iudanet/docsync/internal/resolver"
	"github.com/iudanet/docsync/internal/retry"
	"github.com/iudanet/docsync/internal/validation"
)

// EnvJWTSecret переменная окружения с секретом подписи токенов.
// Имеет приоритет над значением из файла.
const EnvJWTSecret = "DOCSYNC_JWT_SECRET"

// Duration time.Duration, записанная в файле строкой ("30s", "10m")
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// Config все настройки процесса
type Config struct {
	Log         LogConfig          `toml:"log" yaml:"log"`
	Server      ServerConfig       `toml:"server" yaml:"server"`
	Auth        AuthConfig         `toml:"auth" yaml:"auth"`
	Client      ClientConfig       `toml:"client" yaml:"client"`
	Collections []CollectionConfig `toml:"collections" yaml:"collections"`
	Admission   AdmissionConfig    `toml:"admission" yaml:"admission"`
	Retry       RetryConfig        `toml:"retry" yaml:"retry"`
}

type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`   // debug, info, warn, error
	Format string `toml:"format" yaml:"format"` // auto, text, json
}

type ServerConfig struct {
	Addr            string   `toml:"addr" yaml:"addr"`
	DBPath          string   `toml:"db_path" yaml:"db_path"`
	ShutdownTimeout Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxRequestSize  int64    `toml:"max_request_size" yaml:"max_request_size"`
	MaxDecodedSize  int64    `toml:"max_decoded_size" yaml:"max_decoded_size"`
	MaxAttempts     int      `toml:"max_attempts" yaml:"max_attempts"` // check-and-set попыток на документ
}

type AuthConfig struct {
	Secret   string   `toml:"secret" yaml:"secret"`
	TokenTTL Duration `toml:"token_ttl" yaml:"token_ttl"`
}

// ClientConfig настройки реплики
type ClientConfig struct {
	ServerURL      string   `toml:"server_url" yaml:"server_url"`
	Token          string   `toml:"token" yaml:"token"`
	DBPath         string   `toml:"db_path" yaml:"db_path"`
	Collections    []string `toml:"collections" yaml:"collections"`
	SyncInterval   Duration `toml:"sync_interval" yaml:"sync_interval"`
	Debounce       Duration `toml:"debounce" yaml:"debounce"`
	RequestTimeout Duration `toml:"request_timeout" yaml:"request_timeout"`
	DeltaThreshold float64  `toml:"delta_threshold" yaml:"delta_threshold"`
	Compress       bool     `toml:"compress" yaml:"compress"`
}

type CollectionConfig struct {
	Name            string   `toml:"name" yaml:"name"`
	Policy          string   `toml:"policy" yaml:"policy"`
	RequiredFields  []string `toml:"required_fields" yaml:"required_fields"`
	OwnerScoped     bool     `toml:"owner_scoped" yaml:"owner_scoped"`
	TiesFavorServer bool     `toml:"ties_favor_server" yaml:"ties_favor_server"`
}

type AdmissionConfig struct {
	Window            Duration `toml:"window" yaml:"window"`
	SuspicionDuration Duration `toml:"suspicion_duration" yaml:"suspicion_duration"`
	BlockDuration     Duration `toml:"block_duration" yaml:"block_duration"`
	InactivityTTL     Duration `toml:"inactivity_ttl" yaml:"inactivity_ttl"`
	CleanupInterval   Duration `toml:"cleanup_interval" yaml:"cleanup_interval"`
	CVThreshold       float64  `toml:"cv_threshold" yaml:"cv_threshold"`
	OutlierRatio      float64  `toml:"outlier_ratio" yaml:"outlier_ratio"`
	Rate              int      `toml:"rate" yaml:"rate"`
	SuspiciousRate    int      `toml:"suspicious_rate" yaml:"suspicious_rate"`
	BlockAfter        int      `toml:"block_after" yaml:"block_after"`
	Enabled           bool     `toml:"enabled" yaml:"enabled"`
}

type RetryConfig struct {
	Interval     Duration `toml:"interval" yaml:"interval"`
	InitialDelay Duration `toml:"initial_delay" yaml:"initial_delay"`
	MaxDelay     Duration `toml:"max_delay" yaml:"max_delay"`
	Multiplier   float64  `toml:"multiplier" yaml:"multiplier"`
	BatchSize    int      `toml:"batch_size" yaml:"batch_size"`
	MaxRetries   int      `toml:"max_retries" yaml:"max_retries"`
}

// Default returns the built-in configuration
func Default() Config {
	a := admission.DefaultConfig()
	r := retry.DefaultConfig()

	return Config{
		Log: LogConfig{Level: "info", Format: "auto"},
		Server: ServerConfig{
			Addr:            ":8080",
			DBPath:          "docsync.db",
			ShutdownTimeout: Duration{10 * time.Second},
			MaxRequestSize:  10 << 20,
			MaxDecodedSize:  20 << 20,
			MaxAttempts:     reconcile.DefaultMaxAttempts,
		},
		Auth: AuthConfig{TokenTTL: Duration{24 * time.Hour}},
		Client: ClientConfig{
			ServerURL:      "http://localhost:8080",
			DBPath:         "docsync-replica.db",
			SyncInterval:   Duration{time.Minute},
			Debounce:       Duration{2 * time.Second},
			RequestTimeout: Duration{30 * time.Second},
			DeltaThreshold: delta.DefaultThreshold,
		},
		Admission: AdmissionConfig{
			Enabled:           true,
			Window:            Duration{a.Window},
			SuspicionDuration: Duration{a.SuspicionDuration},
			BlockDuration:     Duration{a.BlockDuration},
			InactivityTTL:     Duration{a.InactivityTTL},
			CleanupInterval:   Duration{a.CleanupInterval},
			CVThreshold:       a.CVThreshold,
			OutlierRatio:      a.OutlierRatio,
			Rate:              a.Rate,
			SuspiciousRate:    a.SuspiciousRate,
			BlockAfter:        a.BlockAfter,
		},
		Retry: RetryConfig{
			Interval:     Duration{r.Interval},
			InitialDelay: Duration{r.InitialDelay},
			MaxDelay:     Duration{r.MaxDelay},
			Multiplier:   r.Multiplier,
			BatchSize:    r.BatchSize,
			MaxRetries:   r.MaxRetries,
		},
	}
}

// Load reads the file over the defaults (the format is chosen by the
// extension: .toml, .yaml, .yml) and applies the environment. An empty
// path means defaults plus environment. Validation is left to the binary,
// see ValidateServer and ValidateClient.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		if err := decode(path, data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	}

	if secret, ok := os.LookupEnv(EnvJWTSecret); ok && secret != "" {
		cfg.Auth.Secret = secret
	}

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		meta, err := toml.Decode(string(data), cfg)
		if err != nil {
			return err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown keys: %v", undecoded)
		}
		return nil
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(strings.NewReader(string(data)))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
}

// ValidateServer проверяет настройки, нужные серверу
func (c Config) ValidateServer() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr is required")
	}
	if strings.TrimSpace(c.Server.DBPath) == "" {
		return errors.New("server.db_path is required")
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required (or set %s)", EnvJWTSecret)
	}
	if c.Auth.TokenTTL.Duration <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	if len(c.Collections) == 0 {
		return errors.New("at least one collection is required")
	}
	seen := make(map[string]bool, len(c.Collections))
	for i, coll := range c.Collections {
		if err := validation.ValidateCollectionName(coll.Name); err != nil {
			return fmt.Errorf("collections[%d]: %w", i, err)
		}
		if seen[coll.Name] {
			return fmt.Errorf("collections[%d]: duplicate name %q", i, coll.Name)
		}
		seen[coll.Name] = true
		policy, err := resolver.ParsePolicy(coll.Policy)
		if err != nil {
			return fmt.Errorf("collections[%d]: %w", i, err)
		}
		if policy == resolver.PolicyCustom {
			return fmt.Errorf("collections[%d]: custom policy needs a conflict handler and cannot be configured from a file", i)
		}
	}
	if c.Admission.Enabled && (c.Admission.Rate <= 0 || c.Admission.SuspiciousRate <= 0) {
		return errors.New("admission rates must be positive")
	}
	return c.Retry.validate()
}

// ValidateClient проверяет настройки, нужные реплике
func (c Config) ValidateClient() error {
	if strings.TrimSpace(c.Client.ServerURL) == "" {
		return errors.New("client.server_url is required")
	}
	if strings.TrimSpace(c.Client.DBPath) == "" {
		return errors.New("client.db_path is required")
	}
	if len(c.Client.Collections) == 0 {
		return errors.New("client.collections must name at least one collection")
	}
	for i, name := range c.Client.Collections {
		if err := validation.ValidateCollectionName(name); err != nil {
			return fmt.Errorf("client.collections[%d]: %w", i, err)
		}
	}
	if c.Client.DeltaThreshold <= 0 || c.Client.DeltaThreshold > 1 {
		return errors.New("client.delta_threshold must be in (0, 1]")
	}
	return c.Retry.validate()
}

func (r RetryConfig) validate() error {
	if r.BatchSize < 0 || r.MaxRetries < 0 {
		return errors.New("retry.batch_size and retry.max_retries must not be negative")
	}
	if r.Multiplier != 0 && r.Multiplier < 1 {
		return errors.New("retry.multiplier must be at least 1")
	}
	return nil
}

// MonitorConfig converts the section into admission.Config
func (a AdmissionConfig) MonitorConfig() admission.Config {
	cfg := admission.DefaultConfig()
	cfg.Window = a.Window.Duration
	cfg.SuspicionDuration = a.SuspicionDuration.Duration
	cfg.BlockDuration = a.BlockDuration.Duration
	cfg.InactivityTTL = a.InactivityTTL.Duration
	cfg.CleanupInterval = a.CleanupInterval.Duration
	cfg.CVThreshold = a.CVThreshold
	cfg.OutlierRatio = a.OutlierRatio
	cfg.Rate = a.Rate
	cfg.SuspiciousRate = a.SuspiciousRate
	cfg.BlockAfter = a.BlockAfter
	return cfg
}

// QueueConfig converts the section into retry.Config
func (r RetryConfig) QueueConfig() retry.Config {
	return retry.Config{
		Interval:     r.Interval.Duration,
		InitialDelay: r.InitialDelay.Duration,
		MaxDelay:     r.MaxDelay.Duration,
		Multiplier:   r.Multiplier,
		BatchSize:    r.BatchSize,
		MaxRetries:   r.MaxRetries,
	}
}

// Build turns the file description into a collection
func (c CollectionConfig) Build() (*reconcile.Collection, error) {
	policy, err := resolver.ParsePolicy(c.Policy)
	if err != nil {
		return nil, fmt.Errorf("collection %q: %w", c.Name, err)
	}

	b := reconcile.NewCollection(c.Name).WithStrategy(policy).RequireFields(c.RequiredFields...)
	if c.OwnerScoped {
		b = b.OwnerScoped()
	}
	if c.TiesFavorServer {
		b = b.TiesFavorServer()
	}
	return b.Build()
}

// Registry builds every configured collection
func (c Config) Registry() (*reconcile.Registry, error) {
	collections := make([]*reconcile.Collection, 0, len(c.Collections))
	for _, cc := range c.Collections {
		coll, err := cc.Build()
		if err != nil {
			return nil, err
		}
		collections = append(collections, coll)
	}
	return reconcile.NewRegistry(collections...)
}
