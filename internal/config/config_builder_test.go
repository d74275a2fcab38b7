package config

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── helpers ───────────────────────────────────────────────────────────────────

func writeTempJSONConfig(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	f, err := os.CreateTemp(t.TempDir(), "config-*.json")
	require.NoError(t, err)
	_, err = f.Write(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

// ── build ─────────────────────────────────────────────────────────────────────

func TestNewConfigBuilder_InitialState(t *testing.T) {
	b := newConfigBuilder()
	require.NotNil(t, b)
	assert.NoError(t, b.err)
	assert.Empty(t, b.configs)
}

func TestBuild_EmptyBuilderAppliesDefaults(t *testing.T) {
	cfg, err := newConfigBuilder().build()
	require.NoError(t, err)

	assert.Equal(t, defaultHTTPAddress, cfg.Server.HTTPAddress)
	assert.Equal(t, defaultRequestTimeout, cfg.Server.RequestTimeout)
	assert.Equal(t, defaultTokenIssuer, cfg.App.TokenIssuer)
	assert.Equal(t, defaultIngestConcurrency, cfg.Workers.IngestConcurrency)
	assert.Equal(t, uint64(defaultAppendRetries), cfg.Workers.AppendRetries)
	assert.Empty(t, cfg.Storage.DB.DSN, "no DSN selects the in-memory ledger")
}

func TestBuild_PropagatesBuilderError(t *testing.T) {
	b := newConfigBuilder()
	b.err = assert.AnError

	cfg, err := b.build()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestBuild_LaterSourcesOverride(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs,
		&StructuredConfig{Storage: Storage{DB: DB{DSN: "postgres://env"}}, App: App{TokenSignKey: "env-key"}},
		&StructuredConfig{Storage: Storage{DB: DB{DSN: "postgres://flag"}}},
	)

	cfg, err := b.build()
	require.NoError(t, err)
	assert.Equal(t, "postgres://flag", cfg.Storage.DB.DSN)
	assert.Equal(t, "env-key", cfg.App.TokenSignKey, "zero fields never override")
}

func TestBuild_InvalidStaticHold(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{Adapter: Adapter{StaticHolds: []string{"no-separator"}}})

	_, err := b.build()
	require.ErrorIs(t, err, ErrInvalidAdapterConfigs)
}

// ── sources ───────────────────────────────────────────────────────────────────

func TestWithFlags_KeepsPositionalArgs(t *testing.T) {
	b := newConfigBuilder().withFlags([]string{"-d", "x.db", "capture-note", "hello"})
	require.NoError(t, b.err)

	cfg, err := b.build()
	require.NoError(t, err)
	assert.Equal(t, []string{"capture-note", "hello"}, cfg.Args())
}

func TestWithFlags_SetsErrorOnBadFlag(t *testing.T) {
	b := newConfigBuilder().withFlags([]string{"-a", "nope"})
	require.Error(t, b.err)
}

func TestWithJSON_NoOp_WhenNoPathSet(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{})

	b.withJSON()
	assert.NoError(t, b.err)
	assert.Len(t, b.configs, 1)
}

func TestWithJSON_OverridesEnv(t *testing.T) {
	path := writeTempJSONConfig(t, map[string]any{
		"storage": map[string]any{"db": map[string]any{"dsn": "postgres://json"}},
		"workers": map[string]any{"sync_interval": "10s"},
	})

	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{JSONFilePath: path, Storage: Storage{DB: DB{DSN: "postgres://env"}}})

	cfg, err := b.withJSON().build()
	require.NoError(t, err)
	assert.Equal(t, "postgres://json", cfg.Storage.DB.DSN)
	assert.Equal(t, 10*time.Second, cfg.Workers.SyncInterval)
}

func TestWithJSON_SetsError_WhenFileNotFound(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{JSONFilePath: "/nonexistent/config.json"})

	b.withJSON()
	require.Error(t, b.err)
}

func TestValidateServer(t *testing.T) {
	cfg := &StructuredConfig{}
	cfg.applyDefaults()
	require.ErrorIs(t, cfg.ValidateServer(), ErrInvalidAppConfigs)

	cfg.App.TokenSignKey = "secret"
	require.NoError(t, cfg.ValidateServer())
}

func TestLoadClientConfig(t *testing.T) {
	setEnvVars(t, map[string]string{
		"ADAPTER_ADDRESS":   "http://ledger:8080",
		"ADAPTER_DEVICE_ID": "dev-7",
		"ADAPTER_TOKEN":     "tok",
	})

	cfg, err := LoadClientConfig([]string{"-d", "outbox.db", "sync"})
	require.NoError(t, err)

	assert.Equal(t, "http://ledger:8080", cfg.Adapter.HTTPAddress)
	assert.Equal(t, "dev-7", cfg.Adapter.DeviceID)
	assert.Equal(t, "outbox.db", cfg.Storage.DB.DSN)
	assert.Equal(t, defaultSyncInterval, cfg.Workers.SyncInterval)
	assert.Equal(t, []string{"sync"}, cfg.Args)

	_, err = LoadClientConfig([]string{"sync"})
	require.ErrorIs(t, err, ErrInvalidStorageConfigs)
}
