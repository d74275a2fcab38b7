package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-custody-ledger/internal/canonical"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/models"
)

// bundleRepository is the PostgreSQL-backed [BundleRepository].
//
// Every mutation runs a CTE that both attempts the guarded update and
// returns the stored status and version, following the same optimistic
// locking pattern for items, sealing and export.
type bundleRepository struct {
	*DB
	logger *logger.Logger
}

func NewBundleRepository(db *DB, logger *logger.Logger) BundleRepository {
	return &bundleRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *bundleRepository) CreateBundle(ctx context.Context, b models.Bundle) error {
	log := logger.FromContext(ctx)

	query, args, err := buildInsertBundleQuery(b)
	if err != nil {
		return err
	}
	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).Str("func", "bundleRepository.CreateBundle").Str("bundle_id", b.ID).
			Str("pg_code", postgresError(err)).Msg("failed to insert bundle")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	log.Debug().Str("func", "bundleRepository.CreateBundle").Str("bundle_id", b.ID).Msg("bundle created")
	return nil
}

func (r *bundleRepository) GetBundle(ctx context.Context, tenantID, bundleID string) (models.Bundle, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildSelectBundleQuery(tenantID, bundleID)
	if err != nil {
		return models.Bundle{}, err
	}

	var (
		b            models.Bundle
		status       string
		metadata     []byte
		manifestJSON []byte
	)
	err = r.DB.QueryRowContext(ctx, query, args...).Scan(
		&b.ID,
		&b.TenantID,
		&b.Purpose,
		&metadata,
		&status,
		&b.Version,
		&manifestJSON,
		&b.ManifestHash,
		&b.SealedAt,
		&b.ExportPointer,
		&b.ExportedAt,
		&b.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Bundle{}, ErrBundleNotFound
	}
	if err != nil {
		log.Err(err).Str("func", "bundleRepository.GetBundle").Str("bundle_id", bundleID).Msg("failed to scan bundle row")
		return models.Bundle{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	b.Status = models.BundleStatus(status)
	b.CreatedAt = b.CreatedAt.UTC()
	b.SealedAt = utcPtr(b.SealedAt)
	b.ExportedAt = utcPtr(b.ExportedAt)
	if len(metadata) > 0 {
		b.Metadata = json.RawMessage(metadata)
	}
	if len(manifestJSON) > 0 {
		var m models.Manifest
		if err = json.Unmarshal(manifestJSON, &m); err != nil {
			log.Err(err).Str("func", "bundleRepository.GetBundle").Str("bundle_id", bundleID).Msg("failed to decode stored manifest")
			return models.Bundle{}, fmt.Errorf("%w: %w", ErrEncodingColumn, err)
		}
		m.SealedAt = m.SealedAt.UTC()
		b.Manifest = &m
	}

	items, err := r.listItems(ctx, bundleID)
	if err != nil {
		return models.Bundle{}, err
	}
	b.Items = items

	return b, nil
}

func (r *bundleRepository) listItems(ctx context.Context, bundleID string) ([]string, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildSelectBundleItemsQuery(bundleID)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "bundleRepository.listItems").Str("bundle_id", bundleID).Msg("failed to query bundle items")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	items := make([]string, 0, 16)
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		items = append(items, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}
	return items, nil
}

func (r *bundleRepository) AddItem(ctx context.Context, tenantID, bundleID, objectID string, expectedVersion int64) (int64, error) {
	return r.changeItems(ctx, "bundleRepository.AddItem", insertBundleItem, tenantID, bundleID, objectID, expectedVersion)
}

func (r *bundleRepository) RemoveItem(ctx context.Context, tenantID, bundleID, objectID string, expectedVersion int64) (int64, error) {
	return r.changeItems(ctx, "bundleRepository.RemoveItem", deleteBundleItem, tenantID, bundleID, objectID, expectedVersion)
}

func (r *bundleRepository) changeItems(ctx context.Context, fn, itemQuery, tenantID, bundleID, objectID string, expectedVersion int64) (int64, error) {
	log := logger.FromContext(ctx)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", fn).Str("bundle_id", bundleID).Msg("failed to begin transaction")
		return 0, fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	var updated, current *int64
	var status *string
	if err = tx.QueryRowContext(ctx, bumpBundleVersion, bundleID, tenantID, expectedVersion).Scan(&updated, &status, &current); err != nil {
		log.Err(err).Str("func", fn).Str("bundle_id", bundleID).Msg("failed to bump bundle version")
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	if err = versionOutcome(updated, status, current); err != nil {
		log.Warn().Err(err).Str("func", fn).Str("bundle_id", bundleID).Int64("expected_version", expectedVersion).Msg("bundle not changed")
		return 0, err
	}

	if _, err = tx.ExecContext(ctx, itemQuery, bundleID, objectID); err != nil {
		log.Err(err).Str("func", fn).Str("bundle_id", bundleID).Str("object_id", objectID).
			Str("pg_code", postgresError(err)).Msg("failed to change bundle items")
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if err = tx.Commit(); err != nil {
		log.Err(err).Str("func", fn).Str("bundle_id", bundleID).Msg("failed to commit transaction")
		return 0, fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	return *updated, nil
}

func (r *bundleRepository) SealBundle(ctx context.Context, tenantID, bundleID string, expectedVersion int64, manifest models.Manifest, manifestHash string) error {
	log := logger.FromContext(ctx)

	stored, err := canonical.Canonicalize(manifest)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncodingColumn, err)
	}

	var updated, current *int64
	var status *string
	err = r.DB.QueryRowContext(ctx, sealBundle, bundleID, tenantID, expectedVersion, stored, manifestHash, manifest.SealedAt).
		Scan(&updated, &status, &current)
	if err != nil {
		log.Err(err).Str("func", "bundleRepository.SealBundle").Str("bundle_id", bundleID).Msg("failed to seal bundle")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	if err = versionOutcome(updated, status, current); err != nil {
		log.Warn().Err(err).Str("func", "bundleRepository.SealBundle").Str("bundle_id", bundleID).Msg("bundle not sealed")
		return err
	}

	log.Info().Str("func", "bundleRepository.SealBundle").Str("bundle_id", bundleID).Str("manifest_hash", manifestHash).Msg("bundle sealed")
	return nil
}

func (r *bundleRepository) MarkExported(ctx context.Context, tenantID, bundleID, pointer string, at time.Time) error {
	log := logger.FromContext(ctx)

	var updated, status *string
	if err := r.DB.QueryRowContext(ctx, markBundleExported, bundleID, tenantID, pointer, at).Scan(&updated, &status); err != nil {
		log.Err(err).Str("func", "bundleRepository.MarkExported").Str("bundle_id", bundleID).Msg("failed to mark bundle exported")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	if status == nil {
		return ErrBundleNotFound
	}
	if updated == nil {
		return ErrBundleNotSealed
	}
	return nil
}

// versionOutcome interprets the (updated, status, current) triple returned
// by the bundle CTEs.
func versionOutcome(updated *int64, status *string, current *int64) error {
	switch {
	case status == nil:
		return ErrBundleNotFound
	case updated != nil:
		return nil
	case *status != string(models.BundleOpen):
		return ErrBundleNotOpen
	default:
		return ErrVersionConflict
	}
}
