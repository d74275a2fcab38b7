package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/models"
)

// batchRepository is the PostgreSQL-backed [BatchRepository]. Outcomes are
// stored as raw bytes so a replay returns exactly what was first recorded.
type batchRepository struct {
	*DB
	logger *logger.Logger
}

func NewBatchRepository(db *DB, logger *logger.Logger) BatchRepository {
	return &batchRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *batchRepository) GetBatch(ctx context.Context, tenantID, deviceID, batchRequestKey string) (models.BatchRecord, error) {
	query, args, err := buildSelectBatchQuery(tenantID, deviceID, batchRequestKey)
	if err != nil {
		return models.BatchRecord{}, err
	}

	var rec models.BatchRecord
	err = r.DB.QueryRowContext(ctx, query, args...).
		Scan(&rec.TenantID, &rec.DeviceID, &rec.BatchRequestKey, &rec.Fingerprint, &rec.Results, &rec.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.BatchRecord{}, ErrBatchNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "batchRepository.GetBatch").
			Str("batch_request_key", batchRequestKey).Msg("failed to scan batch outcome")
		return models.BatchRecord{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	rec.RecordedAt = rec.RecordedAt.UTC()

	return rec, nil
}

func (r *batchRepository) SaveBatch(ctx context.Context, rec models.BatchRecord) (models.BatchRecord, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildInsertBatchQuery(rec)
	if err != nil {
		return models.BatchRecord{}, err
	}

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "batchRepository.SaveBatch").Str("batch_request_key", rec.BatchRequestKey).
			Str("pg_code", postgresError(err)).Msg("failed to insert batch outcome")
		return models.BatchRecord{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if affected, affErr := res.RowsAffected(); affErr == nil && affected == 1 {
		return rec, nil
	}

	// a concurrent submission recorded its outcome first
	log.Info().Str("func", "batchRepository.SaveBatch").Str("batch_request_key", rec.BatchRequestKey).
		Msg("batch outcome already recorded, returning stored record")
	return r.GetBatch(ctx, rec.TenantID, rec.DeviceID, rec.BatchRequestKey)
}

func (r *batchRepository) GetItemKey(ctx context.Context, tenantID, itemRequestKey string) (models.ItemKey, error) {
	query, args, err := buildSelectItemKeyQuery(tenantID, itemRequestKey)
	if err != nil {
		return models.ItemKey{}, err
	}

	var (
		key         models.ItemKey
		outcome     string
		contentHash *string
	)
	err = r.DB.QueryRowContext(ctx, query, args...).
		Scan(&key.TenantID, &key.ItemRequestKey, &key.ObjectID, &outcome, &contentHash, &key.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ItemKey{}, ErrItemKeyNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "batchRepository.GetItemKey").
			Str("item_request_key", itemRequestKey).Msg("failed to scan item key")
		return models.ItemKey{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	key.Outcome = models.ItemOutcome(outcome)
	if contentHash != nil {
		key.ContentHash = *contentHash
	}
	key.CreatedAt = key.CreatedAt.UTC()

	return key, nil
}
