package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "strategyd.yaml", `
instance_id: dca-1
strategy:
  kind: dca
  config:
    network: preview
    interval: 100
    offerToken: "."
relay:
  urls:
    preview: http://localhost:9000/publish
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "dca-1", cfg.InstanceID)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 10*time.Second, cfg.Relay.Timeout)
	assert.Equal(t, 0, cfg.Relay.MaxRetries)
	assert.Equal(t, "http://localhost:9000/publish", cfg.Relay.URLs["preview"])

	raw, err := cfg.StrategyJSON()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "preview", decoded["network"])
	assert.EqualValues(t, 100, decoded["interval"])
}

func TestLoad_MergeOrder(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.yaml", "strategy:\n  kind: dca\nlog_level: debug\nrelay:\n  timeout: 5s\n")
	override := writeFile(t, dir, "override.yaml", "log_level: warn\n")

	cfg, err := Load(base, override)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.Relay.Timeout)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("STRATEGYD_STRATEGY_KIND", "trailing-stop")
	t.Setenv("STRATEGYD_RELAY_MAX_RETRIES", "2")
	t.Setenv("STRATEGYD_STRATEGY_CONFIG_JSON", `{"network":"mainnet"}`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "trailing-stop", cfg.Strategy.Kind)
	assert.Equal(t, 2, cfg.Relay.MaxRetries)

	raw, err := cfg.StrategyJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"network":"mainnet"}`, string(raw))
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing kind", "log_level: info\n", "strategy.kind"},
		{"postgres without dsn", "strategy:\n  kind: dca\nstorage:\n  driver: postgres\n", "postgres_dsn"},
		{"unknown executions driver", "strategy:\n  kind: dca\nexecutions:\n  driver: kafka\n", "executions.driver"},
		{"both chain sources", "strategy:\n  kind: dca\nchain:\n  ws_endpoint: ws://x\n  events_file: a.jsonl\n", "mutually exclusive"},
		{"bad relay network", "strategy:\n  kind: dca\nrelay:\n  urls:\n    testnet: http://x\n", "relay.urls"},
		{"bad log format", "strategy:\n  kind: dca\nlog_format: xml\n", "log_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "c.yaml", tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStrategyJSON_Invalid(t *testing.T) {
	cfg := &Config{Strategy: StrategyConfig{ConfigJSON: "{"}}
	_, err := cfg.StrategyJSON()
	require.Error(t, err)
}

func TestEnsureInstanceID(t *testing.T) {
	dir := t.TempDir()

	cfg := &Config{DataDir: dir}
	require.NoError(t, cfg.EnsureInstanceID())
	require.NotEmpty(t, cfg.InstanceID)

	again := &Config{DataDir: dir}
	require.NoError(t, again.EnsureInstanceID())
	assert.Equal(t, cfg.InstanceID, again.InstanceID)

	explicit := &Config{DataDir: dir, InstanceID: "fixed"}
	require.NoError(t, explicit.EnsureInstanceID())
	assert.Equal(t, "fixed", explicit.InstanceID)
	assert.Equal(t, filepath.Join(dir, "keys"), explicit.KeysDir())
}
