// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"os"
	"time"
)

// StructuredConfig is the top-level configuration container of the custody
// ledger server. It is populated by merging values from environment
// variables, command-line flags and an optional JSON file.
//
// Struct tags:
//   - envPrefix — prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds caller-token parameters and the application version.
	App App `envPrefix:"APP_"`

	// Storage holds the ledger database and the blob store settings.
	Storage Storage `envPrefix:"STORAGE_"`

	// Server holds network address and timeout settings for the HTTP and
	// gRPC servers.
	Server Server `envPrefix:"SERVER_"`

	// Adapter holds the outbound collaborators: the hold service, the
	// document fetcher and, for the device agent, the ledger server.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Workers holds concurrency and scheduling settings.
	Workers Workers `envPrefix:"WORKERS_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`

	// args are the positional arguments left after flag parsing.
	args []string
}

// Args returns the positional arguments that followed the flags.
func (cfg *StructuredConfig) Args() []string {
	return cfg.args
}

// App holds application-level configuration values.
type App struct {
	// TokenSignKey is the HMAC secret used to verify caller tokens.
	// Env: APP_TOKEN_SIGN_KEY
	TokenSignKey string `env:"TOKEN_SIGN_KEY"`

	// TokenIssuer is the expected "iss" claim of caller tokens.
	// Env: APP_TOKEN_ISSUER
	TokenIssuer string `env:"TOKEN_ISSUER"`

	// TokenDuration is the lifetime of tokens minted by the token command.
	// Env: APP_TOKEN_DURATION
	TokenDuration time.Duration `env:"TOKEN_DURATION"`

	// Version is exposed via the /api/version/ endpoint.
	// Env: APP_VERSION
	Version string `env:"VERSION"`
}

// Storage groups the persistence backends.
type Storage struct {
	// DB holds the ledger database connection settings.
	DB DB `envPrefix:"DB_"`

	// Blobs holds the content-addressed blob store settings.
	Blobs Blobs `envPrefix:"BLOBS_"`
}

// DB holds connection settings for the ledger database.
type DB struct {
	// DSN is the PostgreSQL connection string. An empty DSN or memory://
	// selects the in-process store.
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`

	// MaxOpenConns caps the connection pool.
	// Env: STORAGE_DB_MAX_OPEN_CONNS
	MaxOpenConns int `env:"MAX_OPEN_CONNS"`
}

// Blobs holds the blob store settings.
type Blobs struct {
	// Dir is the root directory of the filesystem blob store. Empty keeps
	// blobs in memory.
	// Env: STORAGE_BLOBS_DIR
	Dir string `env:"DIR"`
}

// Server holds network and timeout settings for the inbound transport layer.
type Server struct {
	// HTTPAddress is the TCP address on which the HTTP server listens.
	// Env: SERVER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// GRPCAddress is the TCP address on which the gRPC health server listens.
	// Env: SERVER_GRPC_ADDRESS
	GRPCAddress string `env:"GRPC_ADDRESS"`

	// RequestTimeout bounds a single inbound request.
	// Env: SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// MaxBodyBytes bounds request bodies (uploads and batches).
	// Env: SERVER_MAX_BODY_BYTES
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES"`
}

// Adapter holds settings of outbound integrations.
type Adapter struct {
	// HoldURL is the base URL of the authorization service answering hold
	// queries. Empty selects the static in-process registry.
	// Env: ADAPTER_HOLD_URL
	HoldURL string `env:"HOLD_URL"`

	// StaticHolds lists "tenant:subject" pairs that are on hold when the
	// static registry is used. A subject of * holds the whole tenant.
	// Env: ADAPTER_STATIC_HOLDS
	StaticHolds []string `env:"STATIC_HOLDS" envSeparator:","`

	// FetchMaxBytes caps a fetched document.
	// Env: ADAPTER_FETCH_MAX_BYTES
	FetchMaxBytes int64 `env:"FETCH_MAX_BYTES"`

	// HTTPAddress is the ledger server address used by the device agent.
	// Env: ADAPTER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// Token is the bearer token the device agent presents.
	// Env: ADAPTER_TOKEN
	Token string `env:"TOKEN"`

	// DeviceID identifies the device agent in batch keys.
	// Env: ADAPTER_DEVICE_ID
	DeviceID string `env:"DEVICE_ID"`

	// RequestTimeout bounds a single outbound request.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Workers holds configuration for background and parallel work.
type Workers struct {
	// SyncInterval is how often the device agent flushes its outbox.
	// Env: WORKERS_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`

	// IngestConcurrency bounds the items of one batch processed at once.
	// Env: WORKERS_INGEST_CONCURRENCY
	IngestConcurrency int `env:"INGEST_CONCURRENCY"`

	// AppendRetries bounds the retries after a lost chain-tip race.
	// Env: WORKERS_APPEND_RETRIES
	AppendRetries uint64 `env:"APPEND_RETRIES"`
}

// Defaults applied after merging when a source left the field unset.
const (
	defaultHTTPAddress       = "localhost:8080"
	defaultGRPCAddress       = "localhost:9090"
	defaultRequestTimeout    = 30 * time.Second
	defaultMaxBodyBytes      = 64 << 20
	defaultFetchMaxBytes     = 64 << 20
	defaultTokenIssuer       = "custody-ledger"
	defaultTokenDuration     = 24 * time.Hour
	defaultIngestConcurrency = 8
	defaultAppendRetries     = 5
	defaultSyncInterval      = time.Minute
)

// GetStructuredConfig loads, merges, and validates the application
// configuration from all available sources in the following priority order
// (last source wins for non-zero fields):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
func GetStructuredConfig() (*StructuredConfig, error) {
	return LoadStructuredConfig(os.Args[1:])
}

// LoadStructuredConfig is [GetStructuredConfig] with explicit arguments.
func LoadStructuredConfig(args []string) (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags(args).
		withJSON().
		build()
}

func (cfg *StructuredConfig) applyDefaults() {
	if cfg.Server.HTTPAddress == "" {
		cfg.Server.HTTPAddress = defaultHTTPAddress
	}
	if cfg.Server.GRPCAddress == "" {
		cfg.Server.GRPCAddress = defaultGRPCAddress
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.Adapter.RequestTimeout == 0 {
		cfg.Adapter.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Adapter.FetchMaxBytes == 0 {
		cfg.Adapter.FetchMaxBytes = defaultFetchMaxBytes
	}
	if cfg.App.TokenIssuer == "" {
		cfg.App.TokenIssuer = defaultTokenIssuer
	}
	if cfg.App.TokenDuration == 0 {
		cfg.App.TokenDuration = defaultTokenDuration
	}
	if cfg.Workers.IngestConcurrency == 0 {
		cfg.Workers.IngestConcurrency = defaultIngestConcurrency
	}
	if cfg.Workers.AppendRetries == 0 {
		cfg.Workers.AppendRetries = defaultAppendRetries
	}
	if cfg.Workers.SyncInterval == 0 {
		cfg.Workers.SyncInterval = defaultSyncInterval
	}
}
