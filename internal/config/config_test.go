package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/docsync/internal/admission"
	"github.com/iudanet/docsync/internal/resolver"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const tomlConfig = `
[server]
addr = ":9090"
db_path = "/var/lib/docsync/server.db"
shutdown_timeout = "5s"

[auth]
secret = "from-file"
token_ttl = "1h"

[admission]
enabled = true
rate = 120
suspicious_rate = 30
window = "2m"

[retry]
interval = "10s"
max_retries = 3

[[collections]]
name = "notes"
policy = "timestamp-wins"
owner_scoped = true
required_fields = ["title"]

[[collections]]
name = "tasks"
policy = "manual"
`

const yamlConfig = `
server:
  addr: ":9191"
auth:
  secret: from-yaml
client:
  server_url: https://sync.example.com
  collections: [notes]
  sync_interval: 15s
  compress: true
collections:
  - name: notes
    ties_favor_server: true
`

func TestLoad_TOML(t *testing.T) {
	t.Setenv(EnvJWTSecret, "")
	cfg, err := Load(writeFile(t, "docsync.toml", tomlConfig))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout.Duration)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL.Duration)
	assert.Equal(t, 120, cfg.Admission.Rate)
	assert.Equal(t, 2*time.Minute, cfg.Admission.Window.Duration)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	// незаданные ключи берутся из значений по умолчанию
	assert.Equal(t, Default().Retry.BatchSize, cfg.Retry.BatchSize)
	assert.Equal(t, Default().Server.MaxRequestSize, cfg.Server.MaxRequestSize)

	require.Len(t, cfg.Collections, 2)
	assert.Equal(t, "notes", cfg.Collections[0].Name)
	assert.True(t, cfg.Collections[0].OwnerScoped)
	assert.Equal(t, []string{"title"}, cfg.Collections[0].RequiredFields)

	require.NoError(t, cfg.ValidateServer())
}

func TestLoad_YAML(t *testing.T) {
	t.Setenv(EnvJWTSecret, "")
	cfg, err := Load(writeFile(t, "docsync.yml", yamlConfig))
	require.NoError(t, err)

	assert.Equal(t, ":9191", cfg.Server.Addr)
	assert.Equal(t, "from-yaml", cfg.Auth.Secret)
	assert.Equal(t, "https://sync.example.com", cfg.Client.ServerURL)
	assert.Equal(t, 15*time.Second, cfg.Client.SyncInterval.Duration)
	assert.Equal(t, 2*time.Second, cfg.Client.Debounce.Duration)
	assert.True(t, cfg.Client.Compress)
	require.Len(t, cfg.Collections, 1)
	assert.True(t, cfg.Collections[0].TiesFavorServer)

	require.NoError(t, cfg.ValidateClient())
	require.NoError(t, cfg.ValidateServer())
}

func TestLoad_EnvOverridesSecret(t *testing.T) {
	t.Setenv(EnvJWTSecret, "from-env")

	cfg, err := Load(writeFile(t, "docsync.toml", tomlConfig))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.Secret)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.Secret)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "unknown extension", file: "docsync.ini", content: "addr=1"},
		{name: "toml syntax", file: "docsync.toml", content: "[server\naddr="},
		{name: "toml unknown key", file: "docsync.toml", content: "[server]\nport = 1\n"},
		{name: "yaml unknown key", file: "docsync.yaml", content: "server:\n  port: 1\n"},
		{name: "bad duration", file: "docsync.toml", content: "[retry]\ninterval = \"soon\"\n"},
		{name: "bad yaml duration", file: "docsync.yaml", content: "retry:\n  interval: soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfig_ValidateServer(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.Auth.Secret = "s"
		cfg.Collections = []CollectionConfig{{Name: "notes"}}
		return cfg
	}
	require.NoError(t, valid().ValidateServer())

	tests := []struct {
		mutate func(*Config)
		name   string
	}{
		{name: "no secret", mutate: func(c *Config) { c.Auth.Secret = "" }},
		{name: "no addr", mutate: func(c *Config) { c.Server.Addr = " " }},
		{name: "no collections", mutate: func(c *Config) { c.Collections = nil }},
		{name: "unnamed collection", mutate: func(c *Config) { c.Collections = []CollectionConfig{{}} }},
		{name: "duplicate collection", mutate: func(c *Config) {
			c.Collections = []CollectionConfig{{Name: "notes"}, {Name: "notes"}}
		}},
		{name: "unknown policy", mutate: func(c *Config) { c.Collections[0].Policy = "newest" }},
		{name: "custom policy", mutate: func(c *Config) { c.Collections[0].Policy = "custom" }},
		{name: "zero ttl", mutate: func(c *Config) { c.Auth.TokenTTL = Duration{} }},
		{name: "zero admission rate", mutate: func(c *Config) { c.Admission.Rate = 0 }},
		{name: "multiplier below one", mutate: func(c *Config) { c.Retry.Multiplier = 0.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, cfg.ValidateServer())
		})
	}
}

func TestConfig_ValidateClient(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.ValidateClient(), "collections are required")

	cfg.Client.Collections = []string{"notes"}
	require.NoError(t, cfg.ValidateClient())

	cfg.Client.DeltaThreshold = 1.5
	assert.Error(t, cfg.ValidateClient())
}

func TestConverters(t *testing.T) {
	cfg := Default()
	assert.Equal(t, admission.DefaultConfig(), cfg.Admission.MonitorConfig())

	q := cfg.Retry.QueueConfig()
	assert.Equal(t, cfg.Retry.Interval.Duration, q.Interval)
	assert.Equal(t, cfg.Retry.MaxRetries, q.MaxRetries)

	cfg.Collections = []CollectionConfig{
		{Name: "notes", Policy: "manual", OwnerScoped: true, RequiredFields: []string{"title"}},
		{Name: "tasks"},
	}
	reg, err := cfg.Registry()
	require.NoError(t, err)
	assert.Equal(t, []string{"notes", "tasks"}, reg.Names())

	notes, ok := reg.Get("notes")
	require.True(t, ok)
	assert.Equal(t, resolver.PolicyManual, notes.Policy())
	assert.True(t, notes.OwnerScoped())
	assert.Contains(t, notes.Fields(), "title")

	tasks, _ := reg.Get("tasks")
	assert.Equal(t, resolver.PolicyServerWins, tasks.Policy())

	_, err = CollectionConfig{Name: "x", Policy: "nope"}.Build()
	assert.Error(t, err)
}
