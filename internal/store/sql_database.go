package store

import (
	"database/sql"
	"errors"

	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/migrations"
)

// DB wraps the ledger connection pool together with its error classifier.
type DB struct {
	*sql.DB
	errorClassificator ErrorClassificator
	logger             *logger.Logger
}

// Migrate applies the embedded ledger schema.
func (db *DB) Migrate() error {
	return migrations.Migrate(db.DB)
}

// IsRetryable reports whether err is worth retrying: a lost compare-and-set
// on a chain tip or bundle version, or a transient database failure.
func (db *DB) IsRetryable(err error) bool {
	if errors.Is(err, ErrTipConflict) || errors.Is(err, ErrVersionConflict) {
		return true
	}
	if db == nil || db.errorClassificator == nil {
		return false
	}
	return db.errorClassificator.Classify(err) == Retryable
}
