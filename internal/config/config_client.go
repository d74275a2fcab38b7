package config

import (
	"fmt"
	"os"
	"time"
)

// ClientAdapter holds the device agent's view of the ledger server.
type ClientAdapter struct {
	// HTTPAddress is the ledger server base address.
	HTTPAddress string
	// Token is the bearer token presented on every request.
	Token string
	// DeviceID names the device in batch keys.
	DeviceID string
	// RequestTimeout is the default timeout for outbound requests.
	RequestTimeout time.Duration
}

// ClientDB contains local outbox database settings.
type ClientDB struct {
	// DSN is the SQLite file path of the outbox.
	DSN string
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	DB ClientDB
}

// ClientWorkers contains client background worker settings.
type ClientWorkers struct {
	// SyncInterval defines how often the outbox is flushed.
	SyncInterval time.Duration
}

// ClientConfig is the device agent configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	Adapter ClientAdapter
	Storage ClientStorage
	Workers ClientWorkers

	// Args are the positional arguments: the command and its operands.
	Args []string
}

// GetClientConfig builds and validates the device agent config from the
// process arguments and environment.
func GetClientConfig() (*ClientConfig, error) {
	return LoadClientConfig(os.Args[1:])
}

// LoadClientConfig is [GetClientConfig] with explicit arguments.
func LoadClientConfig(args []string) (*ClientConfig, error) {
	cfg, err := LoadStructuredConfig(args)
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := &ClientConfig{
		Adapter: ClientAdapter{
			HTTPAddress:    cfg.Adapter.HTTPAddress,
			Token:          cfg.Adapter.Token,
			DeviceID:       cfg.Adapter.DeviceID,
			RequestTimeout: cfg.Adapter.RequestTimeout,
		},
		Storage: ClientStorage{
			DB: ClientDB{DSN: cfg.Storage.DB.DSN},
		},
		Workers: ClientWorkers{SyncInterval: cfg.Workers.SyncInterval},
		Args:    cfg.Args(),
	}

	return clientCfg, clientCfg.validate()
}
