package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-custody-ledger/internal/config"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
)

// ClientStorages groups the device agent's local repositories.
type ClientStorages struct {
	// Outbox is the SQLite-backed queue of captured items.
	Outbox OutboxRepository

	db *DB
}

// NewClientStorages opens the SQLite outbox at cfg.DB.DSN, creating the file
// if needed, and applies the outbox migrations.
func NewClientStorages(ctx context.Context, cfg config.ClientStorage, logger *logger.Logger) (*ClientStorages, error) {
	logger.Info().Msg("opening device outbox...")

	db, err := NewConnectSQLite(ctx, cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err := db.MigrateOutbox(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &ClientStorages{
		Outbox: NewOutboxRepository(db, logger),
		db:     db,
	}, nil
}

func (s *ClientStorages) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
