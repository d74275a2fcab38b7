package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/MKhiriev/go-custody-ledger/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	m := NewMemoryStore()
	require.NoError(t, m.CreateObject(context.Background(), sampleObject(), sampleEvent(0, "", "e0"), nil))
	return m
}

func TestMemoryStore_AppendEvent_CompareAndSet(t *testing.T) {
	ctx := context.Background()
	m := seededMemoryStore(t)
	sealed := models.StatusSealed

	obj, err := m.AppendEvent(ctx, Append{
		TenantID: "tenant-a",
		Expected: models.ChainTip{ObjectID: "obj-1", Hash: "e0", Seq: 0},
		Event:    sampleEvent(1, "e0", "e1"),
		Change:   ObjectChange{Status: &sealed, RequireStatus: []models.ChainStatus{models.StatusOpen}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSealed, obj.ChainStatus)
	assert.Equal(t, "e1", obj.TipHash)
	assert.Equal(t, int64(1), obj.TipSeq)

	// stale tip
	_, err = m.AppendEvent(ctx, Append{
		TenantID: "tenant-a",
		Expected: models.ChainTip{ObjectID: "obj-1", Hash: "e0", Seq: 0},
		Event:    sampleEvent(1, "e0", "e1x"),
	})
	require.ErrorIs(t, err, ErrTipConflict)

	// status guard fails even on the right tip
	_, err = m.AppendEvent(ctx, Append{
		TenantID: "tenant-a",
		Expected: models.ChainTip{ObjectID: "obj-1", Hash: "e1", Seq: 1},
		Event:    sampleEvent(2, "e1", "e2"),
		Change:   ObjectChange{Status: &sealed, RequireStatus: []models.ChainStatus{models.StatusOpen}},
	})
	require.ErrorIs(t, err, ErrTipConflict)

	// other tenant never sees the object
	_, err = m.AppendEvent(ctx, Append{
		TenantID: "tenant-b",
		Expected: models.ChainTip{ObjectID: "obj-1", Hash: "e1", Seq: 1},
		Event:    sampleEvent(2, "e1", "e2"),
	})
	require.ErrorIs(t, err, ErrObjectNotFound)

	events, err := m.ListEvents(ctx, "tenant-a", "obj-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e1", events[1].EventHash)
}

func TestMemoryStore_AppendEvent_ContentOnlyWhileOpen(t *testing.T) {
	ctx := context.Background()
	m := seededMemoryStore(t)
	sealed := models.StatusSealed
	hash := "bbbb"
	size := int64(4)

	_, err := m.AppendEvent(ctx, Append{
		TenantID: "tenant-a",
		Expected: models.ChainTip{ObjectID: "obj-1", Hash: "e0", Seq: 0},
		Event:    sampleEvent(1, "e0", "e1"),
		Change:   ObjectChange{Status: &sealed},
	})
	require.NoError(t, err)

	changes := []struct {
		name   string
		change ObjectChange
	}{
		{name: "content hash", change: ObjectChange{ContentHash: &hash}},
		{name: "content size", change: ObjectChange{ContentSize: &size}},
		{name: "blob pointer", change: ObjectChange{BlobPointer: &hash}},
		{name: "inline content", change: ObjectChange{InlineContent: []byte("bbbb")}},
		{name: "clear pending", change: ObjectChange{ClearPending: true}},
		{name: "sealed listed", change: ObjectChange{ContentHash: &hash, RequireStatus: []models.ChainStatus{models.StatusSealed}}},
	}
	for _, tt := range changes {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.AppendEvent(ctx, Append{
				TenantID: "tenant-a",
				Expected: models.ChainTip{ObjectID: "obj-1", Hash: "e1", Seq: 1},
				Event:    sampleEvent(2, "e1", "e2"),
				Change:   tt.change,
			})
			require.ErrorIs(t, err, ErrTipConflict)
		})
	}

	obj, err := m.GetObject(ctx, "tenant-a", "obj-1")
	require.NoError(t, err)
	assert.Equal(t, "e1", obj.TipHash)
	assert.Equal(t, sampleObject().ContentHash, obj.ContentHash)
}

func TestMemoryStore_AppendEvent_OneWinnerPerTip(t *testing.T) {
	ctx := context.Background()
	m := seededMemoryStore(t)

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.AppendEvent(ctx, Append{
				TenantID: "tenant-a",
				Expected: models.ChainTip{ObjectID: "obj-1", Hash: "e0", Seq: 0},
				Event:    sampleEvent(1, "e0", "e1"),
			})
			if err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	events, err := m.ListEvents(ctx, "tenant-a", "obj-1")
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestMemoryStore_ItemKeys(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	key := &models.ItemKey{TenantID: "tenant-a", ItemRequestKey: "item-1", ObjectID: "obj-1", Outcome: models.OutcomeCreatedNew}

	require.NoError(t, m.CreateObject(ctx, sampleObject(), sampleEvent(0, "", "e0"), key))

	second := sampleObject()
	second.ID = "obj-2"
	err := m.CreateObject(ctx, second, sampleEvent(0, "", "e0b"), key)
	require.ErrorIs(t, err, ErrItemKeyExists)

	_, err = m.GetObject(ctx, "tenant-a", "obj-2")
	require.ErrorIs(t, err, ErrObjectNotFound, "nothing is written when the key is taken")

	got, err := m.GetItemKey(ctx, "tenant-a", "item-1")
	require.NoError(t, err)
	assert.Equal(t, "obj-1", got.ObjectID)

	_, err = m.GetItemKey(ctx, "tenant-b", "item-1")
	require.ErrorIs(t, err, ErrItemKeyNotFound)
}

func TestMemoryStore_Bundles(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.CreateBundle(ctx, models.Bundle{ID: "b-1", TenantID: "tenant-a", Status: models.BundleOpen}))

	v, err := m.AddItem(ctx, "tenant-a", "b-1", "obj-2", 0)
	require.NoError(t, err)
	v, err = m.AddItem(ctx, "tenant-a", "b-1", "obj-1", v)
	require.NoError(t, err)

	_, err = m.AddItem(ctx, "tenant-a", "b-1", "obj-3", 0)
	require.ErrorIs(t, err, ErrVersionConflict)

	b, err := m.GetBundle(ctx, "tenant-a", "b-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"obj-1", "obj-2"}, b.Items)

	require.ErrorIs(t, m.MarkExported(ctx, "tenant-a", "b-1", "p", testNow), ErrBundleNotSealed)

	manifest := models.Manifest{BundleID: "b-1", TenantID: "tenant-a", SealedAt: testNow}
	require.NoError(t, m.SealBundle(ctx, "tenant-a", "b-1", v, manifest, "mh"))
	require.ErrorIs(t, m.SealBundle(ctx, "tenant-a", "b-1", v+1, manifest, "mh2"), ErrBundleNotOpen)

	_, err = m.RemoveItem(ctx, "tenant-a", "b-1", "obj-1", v+1)
	require.ErrorIs(t, err, ErrBundleNotOpen)

	require.NoError(t, m.MarkExported(ctx, "tenant-a", "b-1", "p", testNow))
	b, err = m.GetBundle(ctx, "tenant-a", "b-1")
	require.NoError(t, err)
	assert.Equal(t, models.BundleExported, b.Status)
	assert.Equal(t, "mh", *b.ManifestHash)

	_, err = m.GetBundle(ctx, "tenant-b", "b-1")
	require.ErrorIs(t, err, ErrBundleNotFound)
}

func TestMemoryStore_SaveBatch_FirstWins(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	first := models.BatchRecord{TenantID: "t", DeviceID: "d", BatchRequestKey: "k", Fingerprint: "f1", Results: []byte("[1]")}
	got, err := m.SaveBatch(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "f1", got.Fingerprint)

	got, err = m.SaveBatch(ctx, models.BatchRecord{TenantID: "t", DeviceID: "d", BatchRequestKey: "k", Fingerprint: "f2", Results: []byte("[2]")})
	require.NoError(t, err)
	assert.Equal(t, "f1", got.Fingerprint)
	assert.Equal(t, []byte("[1]"), got.Results)

	_, err = m.GetBatch(ctx, "t", "other-device", "k")
	require.ErrorIs(t, err, ErrBatchNotFound)
}

func TestMemoryStore_TamperEvent(t *testing.T) {
	m := seededMemoryStore(t)

	ok := m.TamperEvent("obj-1", 0, func(ev *models.CustodyEvent) { ev.EventHash = "forged" })
	require.True(t, ok)

	events, err := m.ListEvents(context.Background(), "tenant-a", "obj-1")
	require.NoError(t, err)
	assert.Equal(t, "forged", events[0].EventHash)

	assert.False(t, m.TamperEvent("obj-1", 9, func(*models.CustodyEvent) {}))
}
