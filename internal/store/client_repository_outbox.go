package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/models"
)

type outboxRepository struct {
	*DB
	logger *logger.Logger
}

func NewOutboxRepository(db *DB, logger *logger.Logger) OutboxRepository {
	return &outboxRepository{
		DB:     db,
		logger: logger,
	}
}

func (o *outboxRepository) Enqueue(ctx context.Context, item models.OutboxItem) error {
	log := logger.FromContext(ctx)

	body, err := json.Marshal(item.Item)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncodingColumn, err)
	}

	_, err = o.DB.ExecContext(ctx, enqueueOutboxItem,
		item.Item.ItemRequestKey,
		string(item.Item.SourceKind),
		body,
		item.ContentHash,
		item.CapturedAt.UTC(),
	)
	if isSQLitePrimaryKeyViolation(err) {
		return ErrOutboxItemExists
	}
	if err != nil {
		log.Err(err).Str("func", "outboxRepository.Enqueue").
			Str("item_request_key", item.Item.ItemRequestKey).Msg("failed to queue item")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (o *outboxRepository) OpenBatch(ctx context.Context, newKey string, now time.Time, limit int) (models.OutboxBatch, error) {
	log := logger.FromContext(ctx)

	tx, err := o.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "outboxRepository.OpenBatch").Msg("failed to begin transaction")
		return models.OutboxBatch{}, fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	batch := models.OutboxBatch{BatchRequestKey: newKey, CreatedAt: now.UTC()}

	err = tx.QueryRowContext(ctx, selectOpenOutboxBatch).Scan(&batch.BatchRequestKey, &batch.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err = o.assign(ctx, tx, batch, limit); err != nil {
			return models.OutboxBatch{}, err
		}
	case err != nil:
		log.Err(err).Str("func", "outboxRepository.OpenBatch").Msg("failed to look up open batch")
		return models.OutboxBatch{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	batch.Items, err = batchItems(ctx, tx, batch.BatchRequestKey)
	if err != nil {
		log.Err(err).Str("func", "outboxRepository.OpenBatch").
			Str("batch_request_key", batch.BatchRequestKey).Msg("failed to read batch items")
		return models.OutboxBatch{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.OutboxBatch{}, fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}
	return batch, nil
}

// assign moves up to limit unassigned items into a new batch.
func (o *outboxRepository) assign(ctx context.Context, tx *sql.Tx, batch models.OutboxBatch, limit int) error {
	res, err := tx.ExecContext(ctx, assignOutboxItems, batch.BatchRequestKey, limit)
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "outboxRepository.assign").Msg("failed to assign items")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return ErrOutboxEmpty
	}

	if _, err = tx.ExecContext(ctx, insertOutboxBatch, batch.BatchRequestKey, batch.CreatedAt); err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "outboxRepository.assign").Msg("failed to insert batch")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

func batchItems(ctx context.Context, tx *sql.Tx, batchRequestKey string) ([]models.OfflineItem, error) {
	rows, err := tx.QueryContext(ctx, selectOutboxBatchItems, batchRequestKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var items []models.OfflineItem
	for rows.Next() {
		var body []byte
		if err = rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		var item models.OfflineItem
		if err = json.Unmarshal(body, &item); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncodingColumn, err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}
	return items, nil
}

func (o *outboxRepository) CompleteBatch(ctx context.Context, batchRequestKey string, results []models.ItemResult, at time.Time) error {
	log := logger.FromContext(ctx).With().Str("func", "outboxRepository.CompleteBatch").
		Str("batch_request_key", batchRequestKey).Logger()

	tx, err := o.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	for _, res := range results {
		_, err = tx.ExecContext(ctx, recordOutboxItemResult,
			string(res.Outcome),
			nullString(res.ObjectID),
			nullString(res.ErrorCode),
			res.ItemRequestKey,
			batchRequestKey,
		)
		if err != nil {
			log.Err(err).Str("item_request_key", res.ItemRequestKey).Msg("failed to record item result")
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
	}

	res, err := tx.ExecContext(ctx, completeOutboxBatch, at.UTC(), batchRequestKey)
	if err != nil {
		log.Err(err).Msg("failed to close batch")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return ErrOutboxBatchNotFound
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}
	return nil
}

func (o *outboxRepository) ListItems(ctx context.Context) ([]models.OutboxItem, error) {
	rows, err := o.DB.QueryContext(ctx, selectOutboxItems)
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "outboxRepository.ListItems").Msg("failed to list outbox")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var items []models.OutboxItem
	for rows.Next() {
		var (
			body                        []byte
			item                        models.OutboxItem
			batchKey, outcome, objectID sql.NullString
			errorCode                   sql.NullString
		)
		err = rows.Scan(&body, &item.ContentHash, &item.CapturedAt, &batchKey, &outcome, &objectID, &errorCode)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		if err = json.Unmarshal(body, &item.Item); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncodingColumn, err)
		}

		item.CapturedAt = item.CapturedAt.UTC()
		item.BatchRequestKey = fromNullString(batchKey)
		item.ObjectID = fromNullString(objectID)
		item.ErrorCode = fromNullString(errorCode)
		if outcome.Valid {
			o := models.ItemOutcome(outcome.String)
			item.Outcome = &o
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}
	return items, nil
}

func fromNullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
