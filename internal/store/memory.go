package store

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/MKhiriev/go-custody-ledger/models"
)

// MemoryStore keeps the whole ledger in process memory. It implements
// [EvidenceRepository], [BundleRepository] and [BatchRepository] with the
// same compare-and-set semantics as the Postgres repositories and is used
// for local development (memory:// DSN) and tests.
type MemoryStore struct {
	mu sync.Mutex

	objects  map[string]models.EvidenceObject
	events   map[string][]models.CustodyEvent
	bundles  map[string]models.Bundle
	batches  map[string]models.BatchRecord
	itemKeys map[string]models.ItemKey
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects:  make(map[string]models.EvidenceObject),
		events:   make(map[string][]models.CustodyEvent),
		bundles:  make(map[string]models.Bundle),
		batches:  make(map[string]models.BatchRecord),
		itemKeys: make(map[string]models.ItemKey),
	}
}

func itemKeyID(tenantID, key string) string { return tenantID + "\x00" + key }

func batchKeyID(tenantID, deviceID, key string) string {
	return tenantID + "\x00" + deviceID + "\x00" + key
}

func (m *MemoryStore) CreateObject(ctx context.Context, obj models.EvidenceObject, created models.CustodyEvent, key *models.ItemKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if key != nil {
		if _, ok := m.itemKeys[itemKeyID(key.TenantID, key.ItemRequestKey)]; ok {
			return ErrItemKeyExists
		}
	}
	if _, ok := m.objects[obj.ID]; ok {
		return ErrObjectExists
	}

	m.objects[obj.ID] = cloneObject(obj)
	m.events[obj.ID] = []models.CustodyEvent{cloneEvent(created)}
	if key != nil {
		m.itemKeys[itemKeyID(key.TenantID, key.ItemRequestKey)] = *key
	}
	return nil
}

func (m *MemoryStore) GetObject(ctx context.Context, tenantID, objectID string) (models.EvidenceObject, error) {
	if err := ctx.Err(); err != nil {
		return models.EvidenceObject{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[objectID]
	if !ok || obj.TenantID != tenantID {
		return models.EvidenceObject{}, ErrObjectNotFound
	}
	return cloneObject(obj), nil
}

func (m *MemoryStore) AppendEvent(ctx context.Context, a Append) (models.EvidenceObject, error) {
	if err := ctx.Err(); err != nil {
		return models.EvidenceObject{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[a.Expected.ObjectID]
	if !ok || obj.TenantID != a.TenantID {
		return models.EvidenceObject{}, ErrObjectNotFound
	}
	if obj.TipHash != a.Expected.Hash || obj.TipSeq != a.Expected.Seq || !a.Change.allows(obj) {
		return models.EvidenceObject{}, ErrTipConflict
	}
	if a.ItemKey != nil {
		if _, exists := m.itemKeys[itemKeyID(a.ItemKey.TenantID, a.ItemKey.ItemRequestKey)]; exists {
			return models.EvidenceObject{}, ErrItemKeyExists
		}
		m.itemKeys[itemKeyID(a.ItemKey.TenantID, a.ItemKey.ItemRequestKey)] = *a.ItemKey
	}

	updated := a.Change.Apply(obj, models.ChainTip{ObjectID: obj.ID, Hash: a.Event.EventHash, Seq: a.Event.Seq})
	m.objects[obj.ID] = updated
	m.events[obj.ID] = append(m.events[obj.ID], cloneEvent(a.Event))

	return cloneObject(updated), nil
}

func (m *MemoryStore) ListEvents(ctx context.Context, tenantID, objectID string) ([]models.CustodyEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := m.events[objectID]
	out := make([]models.CustodyEvent, 0, len(stored))
	for _, ev := range stored {
		if ev.TenantID == tenantID {
			out = append(out, cloneEvent(ev))
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateBundle(ctx context.Context, b models.Bundle) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b.Items = nil
	m.bundles[b.ID] = b
	return nil
}

func (m *MemoryStore) GetBundle(ctx context.Context, tenantID, bundleID string) (models.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return models.Bundle{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bundles[bundleID]
	if !ok || b.TenantID != tenantID {
		return models.Bundle{}, ErrBundleNotFound
	}
	return cloneBundle(b), nil
}

func (m *MemoryStore) AddItem(ctx context.Context, tenantID, bundleID, objectID string, expectedVersion int64) (int64, error) {
	return m.changeItems(ctx, tenantID, bundleID, expectedVersion, func(items []string) []string {
		if slices.Contains(items, objectID) {
			return items
		}
		items = append(items, objectID)
		sort.Strings(items)
		return items
	})
}

func (m *MemoryStore) RemoveItem(ctx context.Context, tenantID, bundleID, objectID string, expectedVersion int64) (int64, error) {
	return m.changeItems(ctx, tenantID, bundleID, expectedVersion, func(items []string) []string {
		return slices.DeleteFunc(items, func(id string) bool { return id == objectID })
	})
}

func (m *MemoryStore) changeItems(ctx context.Context, tenantID, bundleID string, expectedVersion int64, change func([]string) []string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := m.guardBundle(tenantID, bundleID, expectedVersion)
	if err != nil {
		return 0, err
	}
	b.Items = change(slices.Clone(b.Items))
	b.Version++
	m.bundles[bundleID] = b
	return b.Version, nil
}

func (m *MemoryStore) guardBundle(tenantID, bundleID string, expectedVersion int64) (models.Bundle, error) {
	b, ok := m.bundles[bundleID]
	switch {
	case !ok || b.TenantID != tenantID:
		return models.Bundle{}, ErrBundleNotFound
	case b.Status != models.BundleOpen:
		return models.Bundle{}, ErrBundleNotOpen
	case b.Version != expectedVersion:
		return models.Bundle{}, ErrVersionConflict
	}
	return b, nil
}

func (m *MemoryStore) SealBundle(ctx context.Context, tenantID, bundleID string, expectedVersion int64, manifest models.Manifest, manifestHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := m.guardBundle(tenantID, bundleID, expectedVersion)
	if err != nil {
		return err
	}

	// round-trip through JSON like the stored column
	raw, err := json.Marshal(manifest)
	if err != nil {
		return err
	}
	var frozen models.Manifest
	if err = json.Unmarshal(raw, &frozen); err != nil {
		return err
	}

	sealedAt := manifest.SealedAt
	b.Status = models.BundleSealed
	b.Manifest = &frozen
	b.ManifestHash = &manifestHash
	b.SealedAt = &sealedAt
	b.Version++
	m.bundles[bundleID] = b
	return nil
}

func (m *MemoryStore) MarkExported(ctx context.Context, tenantID, bundleID, pointer string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bundles[bundleID]
	if !ok || b.TenantID != tenantID {
		return ErrBundleNotFound
	}
	if b.Status == models.BundleOpen {
		return ErrBundleNotSealed
	}
	b.Status = models.BundleExported
	b.ExportPointer = &pointer
	b.ExportedAt = &at
	m.bundles[bundleID] = b
	return nil
}

func (m *MemoryStore) GetBatch(ctx context.Context, tenantID, deviceID, batchRequestKey string) (models.BatchRecord, error) {
	if err := ctx.Err(); err != nil {
		return models.BatchRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.batches[batchKeyID(tenantID, deviceID, batchRequestKey)]
	if !ok {
		return models.BatchRecord{}, ErrBatchNotFound
	}
	rec.Results = slices.Clone(rec.Results)
	return rec, nil
}

func (m *MemoryStore) SaveBatch(ctx context.Context, rec models.BatchRecord) (models.BatchRecord, error) {
	if err := ctx.Err(); err != nil {
		return models.BatchRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := batchKeyID(rec.TenantID, rec.DeviceID, rec.BatchRequestKey)
	if stored, ok := m.batches[id]; ok {
		stored.Results = slices.Clone(stored.Results)
		return stored, nil
	}
	rec.Results = slices.Clone(rec.Results)
	m.batches[id] = rec
	return rec, nil
}

func (m *MemoryStore) GetItemKey(ctx context.Context, tenantID, itemRequestKey string) (models.ItemKey, error) {
	if err := ctx.Err(); err != nil {
		return models.ItemKey{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key, ok := m.itemKeys[itemKeyID(tenantID, itemRequestKey)]
	if !ok {
		return models.ItemKey{}, ErrItemKeyNotFound
	}
	return key, nil
}

// TamperEvent overwrites a stored event in place. It exists only so tests
// can simulate an attacker with direct storage access.
func (m *MemoryStore) TamperEvent(objectID string, seq int64, mutate func(*models.CustodyEvent)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.events[objectID] {
		if m.events[objectID][i].Seq == seq {
			mutate(&m.events[objectID][i])
			return true
		}
	}
	return false
}

func cloneObject(o models.EvidenceObject) models.EvidenceObject {
	o.InlineContent = slices.Clone(o.InlineContent)
	return o
}

func cloneEvent(e models.CustodyEvent) models.CustodyEvent {
	e.Payload = slices.Clone(e.Payload)
	return e
}

func cloneBundle(b models.Bundle) models.Bundle {
	b.Items = slices.Clone(b.Items)
	if b.Items == nil {
		b.Items = []string{}
	}
	b.Metadata = slices.Clone(b.Metadata)
	if b.Manifest != nil {
		m := *b.Manifest
		m.Items = slices.Clone(m.Items)
		b.Manifest = &m
	}
	return b
}
