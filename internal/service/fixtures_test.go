package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/MKhiriev/go-custody-ledger/internal/adapter"
	"github.com/MKhiriev/go-custody-ledger/internal/blob"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/internal/store"
	"github.com/MKhiriev/go-custody-ledger/models"
	"github.com/stretchr/testify/require"
)

var (
	alice  = models.Caller{TenantID: "tenant-a", Subject: "alice"}
	device = models.Caller{TenantID: "tenant-a", Subject: "alice", DeviceID: "dev-1"}
	mallet = models.Caller{TenantID: "tenant-b", Subject: "mallet"}
)

// ledger wires every server service to in-memory backends.
type ledger struct {
	mem   *store.MemoryStore
	blobs *blob.MemoryStore
	holds *adapter.StaticHoldChecker

	evidence  *evidenceService
	bundles   BundleService
	reconcile ReconcileService
	verify    VerifyService
}

func newLedger(t *testing.T) *ledger {
	t.Helper()
	return newLedgerWith(t, nil, nil)
}

// newLedgerWith wires objects, or the shared memory store when nil.
func newLedgerWith(t *testing.T, objects store.EvidenceRepository, fetcher adapter.Fetcher) *ledger {
	t.Helper()

	mem := store.NewMemoryStore()
	switch o := objects.(type) {
	case nil:
		objects = mem
	case *store.MemoryStore:
		mem = o
	}
	l := &ledger{
		mem:   mem,
		blobs: blob.NewMemoryStore(),
		holds: adapter.NewStaticHoldChecker(),
	}

	l.evidence = newEvidenceService(EvidenceDeps{
		Objects: objects,
		Blobs:   l.blobs,
		Holds:   l.holds,
		Fetcher: fetcher,
	}, 5, logger.Nop())

	reconcile, err := NewReconcileService(l.evidence, mem, 4, logger.Nop())
	require.NoError(t, err)
	l.reconcile = reconcile
	l.bundles = NewBundleService(mem, objects, l.blobs, 5, logger.Nop())
	l.verify = NewVerifyService(objects, mem, logger.Nop())
	return l
}

func ptr[T any](v T) *T { return &v }

func noteRequest(text string) models.CreateRequest {
	return models.CreateRequest{
		SourceKind: models.AuthoredNote,
		Content:    models.NoteContent{Text: text},
	}
}

func snapshotRequest(raw string) models.CreateRequest {
	return models.CreateRequest{
		SourceKind: models.StructuredSnapshot,
		Content:    models.SnapshotContent{Payload: json.RawMessage(raw)},
	}
}

func pendingRequest(kind models.SourceKind) models.CreateRequest {
	return models.CreateRequest{SourceKind: kind}
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
