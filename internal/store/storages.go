package store

import (
	"context"
	"strings"

	"github.com/MKhiriev/go-custody-ledger/internal/config"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
)

// Storages groups the repositories the services depend on.
type Storages struct {
	EvidenceRepository EvidenceRepository
	BundleRepository   BundleRepository
	BatchRepository    BatchRepository

	// IsRetryable classifies errors returned by the repositories.
	IsRetryable func(error) bool

	close func() error
}

// MemoryDSN selects the in-process store.
const MemoryDSN = "memory://"

// NewStorages connects to the configured backend. A DSN starting with
// memory:// selects [MemoryStore]; anything else is opened as Postgres and
// migrated.
func NewStorages(ctx context.Context, cfg config.DB, log *logger.Logger) (*Storages, error) {
	if cfg.DSN == "" || strings.HasPrefix(cfg.DSN, MemoryDSN) {
		log.Warn().Str("func", "NewStorages").Msg("using in-memory ledger, data is lost on exit")
		return NewMemoryStorages(NewMemoryStore()), nil
	}

	db, err := NewConnectPostgres(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if err = db.Migrate(); err != nil {
		log.Err(err).Str("func", "NewStorages").Msg("failed to apply migrations")
		db.Close()
		return nil, err
	}

	return &Storages{
		EvidenceRepository: NewEvidenceRepository(db, log),
		BundleRepository:   NewBundleRepository(db, log),
		BatchRepository:    NewBatchRepository(db, log),
		IsRetryable:        db.IsRetryable,
		close:              db.Close,
	}, nil
}

// NewMemoryStorages wires every repository to m.
func NewMemoryStorages(m *MemoryStore) *Storages {
	var db *DB
	return &Storages{
		EvidenceRepository: m,
		BundleRepository:   m,
		BatchRepository:    m,
		IsRetryable:        db.IsRetryable,
		close:              func() error { return nil },
	}
}

// Close releases the underlying connection pool.
func (s *Storages) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
