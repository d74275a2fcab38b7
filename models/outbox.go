package models

import "time"

// OutboxItem is an item captured on a device and waiting in the local outbox
// until the ledger server has recorded an outcome for it.
type OutboxItem struct {
	Item        OfflineItem
	ContentHash string
	CapturedAt  time.Time

	// BatchRequestKey is set once the item was assigned to a batch. The
	// assignment never changes, so a retried send reuses the same key.
	BatchRequestKey *string

	Outcome   *ItemOutcome
	ObjectID  *string
	ErrorCode *string
}

// Synced reports whether the server has returned an outcome for the item.
func (i OutboxItem) Synced() bool {
	return i.Outcome != nil
}

// OutboxBatch is a set of outbox items that is sent together under one batch
// request key.
type OutboxBatch struct {
	BatchRequestKey string
	CreatedAt       time.Time
	Items           []OfflineItem
}

// SyncReport summarizes one outbox flush.
type SyncReport struct {
	Batches  int
	Created  int
	Applied  int
	Rejected int
}

// Add counts the outcomes of one batch.
func (r *SyncReport) Add(results []ItemResult) {
	r.Batches++
	for _, res := range results {
		switch res.Outcome {
		case OutcomeCreatedNew, OutcomeCompletedExisting:
			r.Created++
		case OutcomeAlreadyApplied:
			r.Applied++
		case OutcomeRejected:
			r.Rejected++
		}
	}
}
