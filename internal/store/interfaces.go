package store

import (
	"context"
	"time"

	"github.com/MKhiriev/go-custody-ledger/models"
)

// EvidenceRepository persists evidence objects together with their custody
// chains. Events are insert-only: the interface has no way to update or
// delete one.
type EvidenceRepository interface {
	// CreateObject inserts obj, its created event and, when key is not nil,
	// the offline item key, all in one transaction. ErrItemKeyExists is
	// returned when the key was already resolved; nothing is written then.
	CreateObject(ctx context.Context, obj models.EvidenceObject, created models.CustodyEvent, key *models.ItemKey) error

	// GetObject returns ErrObjectNotFound for unknown ids and for ids owned
	// by another tenant.
	GetObject(ctx context.Context, tenantID, objectID string) (models.EvidenceObject, error)

	// AppendEvent moves the chain tip from a.Expected to a.Event and applies
	// a.Change in one transaction. ErrTipConflict is returned when the tip or
	// the guarded state moved in the meantime.
	AppendEvent(ctx context.Context, a Append) (models.EvidenceObject, error)

	// ListEvents returns the chain of an object ordered by seq.
	ListEvents(ctx context.Context, tenantID, objectID string) ([]models.CustodyEvent, error)
}

// BundleRepository persists bundles. Every mutation is a compare-and-set on
// the bundle version.
type BundleRepository interface {
	CreateBundle(ctx context.Context, b models.Bundle) error
	GetBundle(ctx context.Context, tenantID, bundleID string) (models.Bundle, error)

	// AddItem and RemoveItem require an open bundle at expectedVersion and
	// return the bumped version.
	AddItem(ctx context.Context, tenantID, bundleID, objectID string, expectedVersion int64) (int64, error)
	RemoveItem(ctx context.Context, tenantID, bundleID, objectID string, expectedVersion int64) (int64, error)

	// SealBundle freezes the manifest of an open bundle at expectedVersion.
	SealBundle(ctx context.Context, tenantID, bundleID string, expectedVersion int64, manifest models.Manifest, manifestHash string) error

	// MarkExported records an export of a sealed or exported bundle.
	MarkExported(ctx context.Context, tenantID, bundleID, pointer string, at time.Time) error
}

// BatchRepository persists offline batch outcomes and item keys.
type BatchRepository interface {
	GetBatch(ctx context.Context, tenantID, deviceID, batchRequestKey string) (models.BatchRecord, error)

	// SaveBatch inserts rec if no outcome exists for its key and returns
	// whichever record is stored afterwards.
	SaveBatch(ctx context.Context, rec models.BatchRecord) (models.BatchRecord, error)

	GetItemKey(ctx context.Context, tenantID, itemRequestKey string) (models.ItemKey, error)
}

// ErrorClassificator decides whether a failed database operation may be
// retried.
type ErrorClassificator interface {
	Classify(err error) ErrorClassification
}

// Append is one chain extension.
type Append struct {
	TenantID string
	Expected models.ChainTip
	Event    models.CustodyEvent
	Change   ObjectChange
	// ItemKey, when set, is recorded in the same transaction.
	ItemKey *models.ItemKey
}

// ObjectChange lists the object columns written together with an event.
// Nil fields are left untouched.
type ObjectChange struct {
	ContentHash   *string
	ContentSize   *int64
	BlobPointer   *string
	InlineContent []byte
	ClearPending  bool
	Status        *models.ChainStatus
	SupersededBy  *string

	// RequireStatus guards the update: the row must hold one of these
	// statuses. Empty means any status. A change that touches content
	// always also requires the row to be open.
	RequireStatus []models.ChainStatus
	// RequirePending guards byte completion.
	RequirePending bool
}

// Apply returns obj with the change and the new tip applied.
func (c ObjectChange) Apply(obj models.EvidenceObject, tip models.ChainTip) models.EvidenceObject {
	if c.ContentHash != nil {
		h := *c.ContentHash
		obj.ContentHash = &h
	}
	if c.ContentSize != nil {
		obj.ContentSize = *c.ContentSize
	}
	if c.BlobPointer != nil {
		p := *c.BlobPointer
		obj.BlobPointer = &p
	}
	if c.InlineContent != nil {
		obj.InlineContent = append([]byte(nil), c.InlineContent...)
	}
	if c.ClearPending {
		obj.PendingBytes = false
	}
	if c.Status != nil {
		obj.ChainStatus = *c.Status
	}
	if c.SupersededBy != nil {
		s := *c.SupersededBy
		obj.SupersededBy = &s
	}
	obj.TipHash = tip.Hash
	obj.TipSeq = tip.Seq
	return obj
}

// touchesContent reports whether c writes any content column.
func (c ObjectChange) touchesContent() bool {
	return c.ContentHash != nil || c.ContentSize != nil || c.BlobPointer != nil ||
		c.InlineContent != nil || c.ClearPending
}

// allows reports whether obj satisfies the guards of c.
func (c ObjectChange) allows(obj models.EvidenceObject) bool {
	if c.RequirePending && !obj.PendingBytes {
		return false
	}
	if c.touchesContent() && obj.ChainStatus != models.StatusOpen {
		return false
	}
	if len(c.RequireStatus) == 0 {
		return true
	}
	for _, s := range c.RequireStatus {
		if obj.ChainStatus == s {
			return true
		}
	}
	return false
}
