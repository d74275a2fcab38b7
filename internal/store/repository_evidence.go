package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/models"
)

// evidenceRepository is the PostgreSQL-backed [EvidenceRepository]. Object
// rows and their custody events are always written in one transaction, and
// the object row carries the chain tip used for compare-and-set.
type evidenceRepository struct {
	*DB
	logger *logger.Logger
}

func NewEvidenceRepository(db *DB, logger *logger.Logger) EvidenceRepository {
	return &evidenceRepository{
		DB:     db,
		logger: logger,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *evidenceRepository) CreateObject(ctx context.Context, obj models.EvidenceObject, created models.CustodyEvent, key *models.ItemKey) error {
	log := logger.FromContext(ctx)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "evidenceRepository.CreateObject").Str("object_id", obj.ID).Msg("failed to begin transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	if key != nil {
		if err = insertItemKey(ctx, tx, *key); err != nil {
			log.Err(err).Str("func", "evidenceRepository.CreateObject").Str("item_request_key", key.ItemRequestKey).Msg("item key not recorded")
			return err
		}
	}

	query, args, err := buildInsertObjectQuery(obj)
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrObjectExists
		}
		log.Err(err).Str("func", "evidenceRepository.CreateObject").Str("object_id", obj.ID).
			Str("pg_code", postgresError(err)).Msg("failed to insert evidence object")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if err = insertEvent(ctx, tx, created); err != nil {
		log.Err(err).Str("func", "evidenceRepository.CreateObject").Str("object_id", obj.ID).Msg("failed to insert created event")
		return err
	}

	if err = tx.Commit(); err != nil {
		log.Err(err).Str("func", "evidenceRepository.CreateObject").Str("object_id", obj.ID).Msg("failed to commit transaction")
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	log.Debug().Str("func", "evidenceRepository.CreateObject").Str("object_id", obj.ID).
		Str("tip_hash", obj.TipHash).Msg("evidence object created")
	return nil
}

func (r *evidenceRepository) GetObject(ctx context.Context, tenantID, objectID string) (models.EvidenceObject, error) {
	return getObject(ctx, r.DB, tenantID, objectID)
}

func (r *evidenceRepository) AppendEvent(ctx context.Context, a Append) (models.EvidenceObject, error) {
	log := logger.FromContext(ctx)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "evidenceRepository.AppendEvent").Str("object_id", a.Expected.ObjectID).Msg("failed to begin transaction")
		return models.EvidenceObject{}, fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	query, args, err := buildAdvanceTipQuery(a)
	if err != nil {
		return models.EvidenceObject{}, err
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "evidenceRepository.AppendEvent").Str("object_id", a.Expected.ObjectID).
			Str("pg_code", postgresError(err)).Msg("failed to advance chain tip")
		return models.EvidenceObject{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.EvidenceObject{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if affected == 0 {
		// either the object is gone for this tenant or someone moved the tip
		if _, getErr := getObject(ctx, tx, a.TenantID, a.Expected.ObjectID); getErr != nil {
			return models.EvidenceObject{}, getErr
		}
		log.Warn().Str("func", "evidenceRepository.AppendEvent").Str("object_id", a.Expected.ObjectID).
			Str("expected_tip", a.Expected.Hash).Msg("compare-and-set on chain tip lost")
		return models.EvidenceObject{}, ErrTipConflict
	}

	if err = insertEvent(ctx, tx, a.Event); err != nil {
		log.Err(err).Str("func", "evidenceRepository.AppendEvent").Str("object_id", a.Expected.ObjectID).Msg("failed to insert custody event")
		return models.EvidenceObject{}, err
	}

	if a.ItemKey != nil {
		if err = insertItemKey(ctx, tx, *a.ItemKey); err != nil {
			log.Err(err).Str("func", "evidenceRepository.AppendEvent").Str("item_request_key", a.ItemKey.ItemRequestKey).Msg("item key not recorded")
			return models.EvidenceObject{}, err
		}
	}

	obj, err := getObject(ctx, tx, a.TenantID, a.Expected.ObjectID)
	if err != nil {
		return models.EvidenceObject{}, err
	}

	if err = tx.Commit(); err != nil {
		log.Err(err).Str("func", "evidenceRepository.AppendEvent").Str("object_id", a.Expected.ObjectID).Msg("failed to commit transaction")
		return models.EvidenceObject{}, fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	log.Debug().Str("func", "evidenceRepository.AppendEvent").Str("object_id", obj.ID).
		Str("event_type", string(a.Event.EventType)).Int64("seq", a.Event.Seq).Msg("custody event appended")
	return obj, nil
}

func (r *evidenceRepository) ListEvents(ctx context.Context, tenantID, objectID string) ([]models.CustodyEvent, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildSelectEventsQuery(tenantID, objectID)
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "evidenceRepository.ListEvents").Str("object_id", objectID).Msg("failed to query custody events")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	events := make([]models.CustodyEvent, 0, 8)
	for rows.Next() {
		var (
			ev        models.CustodyEvent
			eventType string
			payload   []byte
		)
		if err = rows.Scan(&ev.ObjectID, &ev.TenantID, &ev.Seq, &eventType, &ev.EventAt, &payload, &ev.PrevEventHash, &ev.EventHash); err != nil {
			log.Err(err).Str("func", "evidenceRepository.ListEvents").Str("object_id", objectID).Msg("failed to scan custody event row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		ev.EventType = models.EventType(eventType)
		ev.EventAt = ev.EventAt.UTC()
		ev.Payload = payload
		events = append(events, ev)
	}

	if err = rows.Err(); err != nil {
		log.Err(err).Str("func", "evidenceRepository.ListEvents").Str("object_id", objectID).Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return events, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getObject(ctx context.Context, q querier, tenantID, objectID string) (models.EvidenceObject, error) {
	query, args, err := buildSelectObjectQuery(tenantID, objectID)
	if err != nil {
		return models.EvidenceObject{}, err
	}

	obj, err := scanObject(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.EvidenceObject{}, ErrObjectNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "getObject").Str("object_id", objectID).Msg("failed to scan evidence object")
		return models.EvidenceObject{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return obj, nil
}

func scanObject(row rowScanner) (models.EvidenceObject, error) {
	var (
		obj        models.EvidenceObject
		sourceKind string
		status     string
	)
	err := row.Scan(
		&obj.ID,
		&obj.TenantID,
		&obj.ScopeID,
		&sourceKind,
		&obj.OccurredAt,
		&obj.CapturedAt,
		&obj.CreatedAt,
		&obj.ContentHash,
		&obj.ContentSize,
		&obj.PendingBytes,
		&obj.BlobPointer,
		&obj.SourceURL,
		&obj.InlineContent,
		&status,
		&obj.SupersededBy,
		&obj.TipHash,
		&obj.TipSeq,
	)
	if err != nil {
		return models.EvidenceObject{}, err
	}

	obj.SourceKind = models.SourceKind(sourceKind)
	obj.ChainStatus = models.ChainStatus(status)
	obj.CreatedAt = obj.CreatedAt.UTC()
	obj.OccurredAt = utcPtr(obj.OccurredAt)
	obj.CapturedAt = utcPtr(obj.CapturedAt)
	return obj, nil
}

func insertEvent(ctx context.Context, ex execer, ev models.CustodyEvent) error {
	query, args, err := buildInsertEventQuery(ev)
	if err != nil {
		return err
	}
	if _, err = ex.ExecContext(ctx, query, args...); err != nil {
		// a second successor of the same predecessor lost the race
		if isUniqueViolation(err) {
			return ErrTipConflict
		}
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

func insertItemKey(ctx context.Context, ex execer, key models.ItemKey) error {
	query, args, err := buildInsertItemKeyQuery(key)
	if err != nil {
		return err
	}
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if affected == 0 {
		return ErrItemKeyExists
	}
	return nil
}
