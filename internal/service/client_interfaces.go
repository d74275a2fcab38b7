package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/MKhiriev/go-custody-ledger/models"
)

// CaptureOptions carries the optional attributes of a device capture.
type CaptureOptions struct {
	// ScopeID groups the item under a claim or case.
	ScopeID *string
	// SourceURL is where a fetched document came from.
	SourceURL *string
	// TargetObjectID completes a server object created with pending bytes.
	TargetObjectID *string
	// OccurredAt is the claimed time of the captured event.
	OccurredAt *time.Time
}

// ClientCaptureService queues evidence captured on the device. Every item is
// hashed locally with the same rules the ledger applies, so the server can
// reject an item whose bytes changed on the way.
type ClientCaptureService interface {
	// CaptureNote queues an authored note.
	CaptureNote(ctx context.Context, text string, opts CaptureOptions) (models.OutboxItem, error)

	// CaptureSnapshot queues a structured snapshot. payload must be JSON.
	CaptureSnapshot(ctx context.Context, payload json.RawMessage, opts CaptureOptions) (models.OutboxItem, error)

	// CaptureFile queues raw file bytes as a stored blob, or as a fetched
	// document when opts.SourceURL is set.
	CaptureFile(ctx context.Context, data []byte, opts CaptureOptions) (models.OutboxItem, error)

	// List returns every queued item, synced or not.
	List(ctx context.Context) ([]models.OutboxItem, error)
}

// ClientSyncService flushes the device outbox to the ledger server.
type ClientSyncService interface {
	// Sync sends queued items batch by batch until the outbox is empty.
	// A batch interrupted by a failure is resent under the same batch
	// request key on the next call.
	Sync(ctx context.Context) (models.SyncReport, error)
}

// ClientVerifyService checks exported artifacts without contacting the
// ledger.
type ClientVerifyService interface {
	VerifyArtifact(ctx context.Context, data []byte) (models.BundleVerification, error)
}
