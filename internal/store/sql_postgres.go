package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/MKhiriev/go-custody-ledger/internal/config"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const defaultMaxOpenConns = 10

// NewConnectPostgres opens the ledger database through the pgx stdlib driver
// and checks it is reachable.
func NewConnectPostgres(ctx context.Context, cfg config.DB, log *logger.Logger) (*DB, error) {
	conn, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		log.Err(err).Str("func", "NewConnectPostgres").Msg("error opening ledger database")
		return nil, fmt.Errorf("open ledger database: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(maxOpen / 2)

	if err = conn.PingContext(ctx); err != nil {
		log.Err(err).Str("func", "NewConnectPostgres").Msg("ledger database is unreachable")
		conn.Close()
		return nil, fmt.Errorf("ping ledger database: %w", err)
	}
	log.Info().Str("func", "NewConnectPostgres").Int("max_open_conns", maxOpen).Msg("connected to ledger database")

	return &DB{
		DB:                 conn,
		logger:             log,
		errorClassificator: NewPostgresErrorClassifier(),
	}, nil
}
