package store

import (
	"context"
	"time"

	"github.com/MKhiriev/go-custody-ledger/models"
)

//go:generate mockgen -source=client_interfaces.go -destination=../mock/client_store_mock.go -package=mock

// OutboxRepository is the device-local queue of captured items.
type OutboxRepository interface {
	// Enqueue stores a captured item. ErrOutboxItemExists is returned when
	// the item request key is already queued.
	Enqueue(ctx context.Context, item models.OutboxItem) error

	// OpenBatch returns the oldest batch that has no recorded outcome yet.
	// When there is none, up to limit unassigned items are assigned to a new
	// batch named newKey. ErrOutboxEmpty is returned when nothing is left to
	// send.
	OpenBatch(ctx context.Context, newKey string, now time.Time, limit int) (models.OutboxBatch, error)

	// CompleteBatch records the server's per-item results and closes the
	// batch.
	CompleteBatch(ctx context.Context, batchRequestKey string, results []models.ItemResult, at time.Time) error

	// ListItems returns every queued item, oldest first.
	ListItems(ctx context.Context) ([]models.OutboxItem, error)
}
