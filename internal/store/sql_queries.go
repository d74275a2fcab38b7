package store

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-custody-ledger/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var objectColumns = []string{
	"id",
	"tenant_id",
	"scope_id",
	"source_kind",
	"occurred_at",
	"captured_at",
	"created_at",
	"content_hash",
	"content_size",
	"pending_bytes",
	"blob_pointer",
	"source_url",
	"inline_content",
	"chain_status",
	"superseded_by",
	"tip_hash",
	"tip_seq",
}

var eventColumns = []string{
	"object_id",
	"tenant_id",
	"seq",
	"event_type",
	"event_at",
	"payload",
	"prev_event_hash",
	"event_hash",
}

const (
	// bumpBundleVersion advances the version of an open bundle and reports
	// the stored state, so the caller can tell "not found" (status NULL),
	// "not open" and "version conflict" apart without a second round trip.
	bumpBundleVersion = `
		WITH target AS (
			SELECT status, version FROM bundles WHERE id = $1 AND tenant_id = $2
		), updated AS (
			UPDATE bundles SET version = version + 1
			WHERE id = $1 AND tenant_id = $2 AND version = $3 AND status = 'open'
			RETURNING version
		)
		SELECT (SELECT version FROM updated), (SELECT status FROM target), (SELECT version FROM target);`

	sealBundle = `
		WITH target AS (
			SELECT status, version FROM bundles WHERE id = $1 AND tenant_id = $2
		), updated AS (
			UPDATE bundles
			SET status = 'sealed', manifest = $4, manifest_hash = $5, sealed_at = $6, version = version + 1
			WHERE id = $1 AND tenant_id = $2 AND version = $3 AND status = 'open'
			RETURNING version
		)
		SELECT (SELECT version FROM updated), (SELECT status FROM target), (SELECT version FROM target);`

	markBundleExported = `
		WITH target AS (
			SELECT status FROM bundles WHERE id = $1 AND tenant_id = $2
		), updated AS (
			UPDATE bundles SET status = 'exported', export_pointer = $3, exported_at = $4
			WHERE id = $1 AND tenant_id = $2 AND status IN ('sealed', 'exported')
			RETURNING id
		)
		SELECT (SELECT id FROM updated), (SELECT status FROM target);`

	insertBundleItem = `INSERT INTO bundle_items (bundle_id, object_id) VALUES ($1, $2)
		ON CONFLICT (bundle_id, object_id) DO NOTHING;`

	deleteBundleItem = `DELETE FROM bundle_items WHERE bundle_id = $1 AND object_id = $2;`
)

func buildInsertObjectQuery(obj models.EvidenceObject) (string, []any, error) {
	query, args, err := psql.Insert("evidence_objects").
		Columns(objectColumns...).
		Values(
			obj.ID,
			obj.TenantID,
			obj.ScopeID,
			string(obj.SourceKind),
			obj.OccurredAt,
			obj.CapturedAt,
			obj.CreatedAt,
			obj.ContentHash,
			obj.ContentSize,
			obj.PendingBytes,
			obj.BlobPointer,
			obj.SourceURL,
			obj.InlineContent,
			string(obj.ChainStatus),
			obj.SupersededBy,
			obj.TipHash,
			obj.TipSeq,
		).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return query, args, nil
}

func buildInsertEventQuery(ev models.CustodyEvent) (string, []any, error) {
	query, args, err := psql.Insert("custody_events").
		Columns(eventColumns...).
		Values(
			ev.ObjectID,
			ev.TenantID,
			ev.Seq,
			string(ev.EventType),
			ev.EventAt,
			[]byte(ev.Payload),
			ev.PrevEventHash,
			ev.EventHash,
		).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return query, args, nil
}

func buildInsertItemKeyQuery(key models.ItemKey) (string, []any, error) {
	query, args, err := psql.Insert("offline_item_keys").
		Columns("tenant_id", "item_request_key", "object_id", "outcome", "content_hash", "created_at").
		Values(key.TenantID, key.ItemRequestKey, key.ObjectID, string(key.Outcome), nullString(key.ContentHash), key.CreatedAt).
		Suffix("ON CONFLICT (tenant_id, item_request_key) DO NOTHING").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return query, args, nil
}

func buildSelectObjectQuery(tenantID, objectID string) (string, []any, error) {
	query, args, err := psql.Select(objectColumns...).
		From("evidence_objects").
		Where(sq.Eq{"id": objectID, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return query, args, nil
}

func buildSelectEventsQuery(tenantID, objectID string) (string, []any, error) {
	query, args, err := psql.Select(eventColumns...).
		From("custody_events").
		Where(sq.Eq{"object_id": objectID, "tenant_id": tenantID}).
		OrderBy("seq ASC").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return query, args, nil
}

// buildAdvanceTipQuery builds the compare-and-set that moves an object's
// chain tip. It matches only while the stored tip is still a.Expected and
// the guards of a.Change hold.
func buildAdvanceTipQuery(a Append) (string, []any, error) {
	c := a.Change
	b := psql.Update("evidence_objects").
		Set("tip_hash", a.Event.EventHash).
		Set("tip_seq", a.Event.Seq)

	if c.ContentHash != nil {
		b = b.Set("content_hash", *c.ContentHash)
	}
	if c.ContentSize != nil {
		b = b.Set("content_size", *c.ContentSize)
	}
	if c.BlobPointer != nil {
		b = b.Set("blob_pointer", *c.BlobPointer)
	}
	if c.InlineContent != nil {
		b = b.Set("inline_content", c.InlineContent)
	}
	if c.ClearPending {
		b = b.Set("pending_bytes", false)
	}
	if c.Status != nil {
		b = b.Set("chain_status", string(*c.Status))
	}
	if c.SupersededBy != nil {
		b = b.Set("superseded_by", *c.SupersededBy)
	}

	b = b.Where(sq.Eq{
		"id":        a.Expected.ObjectID,
		"tenant_id": a.TenantID,
		"tip_hash":  a.Expected.Hash,
		"tip_seq":   a.Expected.Seq,
	})
	if len(c.RequireStatus) > 0 {
		statuses := make([]string, 0, len(c.RequireStatus))
		for _, s := range c.RequireStatus {
			statuses = append(statuses, string(s))
		}
		b = b.Where(sq.Eq{"chain_status": statuses})
	}
	if c.touchesContent() {
		b = b.Where(sq.Eq{"chain_status": string(models.StatusOpen)})
	}
	if c.RequirePending {
		b = b.Where(sq.Eq{"pending_bytes": true})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return query, args, nil
}

func buildInsertBundleQuery(bundle models.Bundle) (string, []any, error) {
	var metadata any
	if len(bundle.Metadata) > 0 {
		metadata = string(bundle.Metadata)
	}

	query, args, err := psql.Insert("bundles").
		Columns("id", "tenant_id", "purpose", "metadata", "status", "version", "created_at").
		Values(bundle.ID, bundle.TenantID, bundle.Purpose, metadata, string(bundle.Status), bundle.Version, bundle.CreatedAt).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return query, args, nil
}

func buildSelectBundleQuery(tenantID, bundleID string) (string, []any, error) {
	query, args, err := psql.Select(
		"id", "tenant_id", "purpose", "metadata", "status", "version",
		"manifest", "manifest_hash", "sealed_at", "export_pointer", "exported_at", "created_at",
	).
		From("bundles").
		Where(sq.Eq{"id": bundleID, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return query, args, nil
}

func buildSelectBundleItemsQuery(bundleID string) (string, []any, error) {
	query, args, err := psql.Select("object_id").
		From("bundle_items").
		Where(sq.Eq{"bundle_id": bundleID}).
		OrderBy("object_id ASC").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return query, args, nil
}

func buildSelectBatchQuery(tenantID, deviceID, batchRequestKey string) (string, []any, error) {
	query, args, err := psql.Select("tenant_id", "device_id", "batch_request_key", "fingerprint", "results", "recorded_at").
		From("offline_batches").
		Where(sq.Eq{"tenant_id": tenantID, "device_id": deviceID, "batch_request_key": batchRequestKey}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return query, args, nil
}

func buildInsertBatchQuery(rec models.BatchRecord) (string, []any, error) {
	query, args, err := psql.Insert("offline_batches").
		Columns("tenant_id", "device_id", "batch_request_key", "fingerprint", "results", "recorded_at").
		Values(rec.TenantID, rec.DeviceID, rec.BatchRequestKey, rec.Fingerprint, rec.Results, rec.RecordedAt).
		Suffix("ON CONFLICT (tenant_id, device_id, batch_request_key) DO NOTHING").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return query, args, nil
}

func buildSelectItemKeyQuery(tenantID, itemRequestKey string) (string, []any, error) {
	query, args, err := psql.Select("tenant_id", "item_request_key", "object_id", "outcome", "content_hash", "created_at").
		From("offline_item_keys").
		Where(sq.Eq{"tenant_id": tenantID, "item_request_key": itemRequestKey}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return query, args, nil
}
