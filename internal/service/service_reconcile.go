// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-custody-ledger/internal/canonical"
	"github.com/MKhiriev/go-custody-ledger/internal/chain"
	"github.com/MKhiriev/go-custody-ledger/internal/hashing"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/internal/store"
	"github.com/MKhiriev/go-custody-ledger/internal/validators"
	"github.com/MKhiriev/go-custody-ledger/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// reconcileService ingests offline batches. Items are reconciled through the
// evidence service so offline and live captures hash and persist the same
// way.
type reconcileService struct {
	evidence *evidenceService
	batches  store.BatchRepository

	validator   validators.Validator
	concurrency int
	inflight    singleflight.Group
	now         func() time.Time

	logger *logger.Logger
}

// NewReconcileService constructs a ReconcileService. concurrency bounds the
// items of one batch processed in parallel.
func NewReconcileService(evidence EvidenceService, batches store.BatchRepository, concurrency int, logger *logger.Logger) (ReconcileService, error) {
	es, ok := evidence.(*evidenceService)
	if !ok {
		return nil, fmt.Errorf("reconciler needs the ledger evidence service, got %T", evidence)
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	return &reconcileService{
		evidence:    es,
		batches:     batches,
		validator:   validators.NewEvidenceValidator(),
		concurrency: concurrency,
		now:         time.Now,
		logger:      logger,
	}, nil
}

// IngestBatch reconciles every item of batch and records the outcome once.
// Resubmitting the same batch returns the recorded result bytes unchanged;
// reusing its key for different items is ErrBatchConflict.
func (s *reconcileService) IngestBatch(ctx context.Context, caller models.Caller, batch models.OfflineBatch) (models.BatchResult, error) {
	if err := s.validator.Validate(ctx, batch); err != nil {
		return models.BatchResult{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	deviceID := batch.DeviceID
	if caller.DeviceID != "" {
		if deviceID != "" && deviceID != caller.DeviceID {
			return models.BatchResult{}, fmt.Errorf("%w: batch device %q does not match the caller", ErrInvalidRequest, deviceID)
		}
		deviceID = caller.DeviceID
	}
	if deviceID == "" {
		return models.BatchResult{}, fmt.Errorf("%w: device id is required", ErrInvalidRequest)
	}

	fingerprint := Fingerprint(batch.Items)

	// identical submissions racing inside this process share one ingestion.
	// It runs detached from any single caller so one caller giving up does
	// not fail the others.
	flightKey := caller.TenantID + "\x00" + deviceID + "\x00" + batch.BatchRequestKey + "\x00" + fingerprint
	flight := s.inflight.DoChan(flightKey, func() (any, error) {
		return s.ingest(context.WithoutCancel(ctx), caller, deviceID, batch, fingerprint)
	})

	select {
	case <-ctx.Done():
		return models.BatchResult{}, ctx.Err()
	case res := <-flight:
		if res.Err != nil {
			return models.BatchResult{}, res.Err
		}
		if res.Shared {
			logger.FromContext(ctx).Debug().Str("batch_request_key", batch.BatchRequestKey).Msg("joined in-flight batch ingestion")
		}
		return res.Val.(models.BatchResult), nil
	}
}

func (s *reconcileService) ingest(ctx context.Context, caller models.Caller, deviceID string, batch models.OfflineBatch, fingerprint string) (models.BatchResult, error) {
	log := logger.FromContext(ctx).With().
		Str("device_id", deviceID).
		Str("batch_request_key", batch.BatchRequestKey).
		Logger()

	recorded, err := s.batches.GetBatch(ctx, caller.TenantID, deviceID, batch.BatchRequestKey)
	switch {
	case err == nil:
		return replay(recorded, fingerprint, batch.BatchRequestKey)
	case !errors.Is(err, store.ErrBatchNotFound):
		log.Err(err).Str("func", "reconcileService.ingest").Msg("failed to look up batch outcome")
		return models.BatchResult{}, err
	}

	results := make([]models.ItemResult, len(batch.Items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, item := range batch.Items {
		g.Go(func() error {
			res, err := s.reconcileItem(gctx, caller, item)
			if err != nil {
				return fmt.Errorf("item %s: %w", item.ItemRequestKey, err)
			}
			results[i] = res
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		// nothing is recorded; a retry resolves finished items through their keys
		log.Err(err).Str("func", "reconcileService.ingest").Msg("batch ingestion aborted")
		return models.BatchResult{}, err
	}

	raw, err := json.Marshal(results)
	if err != nil {
		return models.BatchResult{}, err
	}

	stored, err := s.batches.SaveBatch(ctx, models.BatchRecord{
		TenantID:        caller.TenantID,
		DeviceID:        deviceID,
		BatchRequestKey: batch.BatchRequestKey,
		Fingerprint:     fingerprint,
		Results:         raw,
		RecordedAt:      chain.Timestamp(s.now()),
	})
	if err != nil {
		log.Err(err).Str("func", "reconcileService.ingest").Msg("failed to record batch outcome")
		return models.BatchResult{}, err
	}
	if !bytes.Equal(stored.Results, raw) || stored.Fingerprint != fingerprint {
		// a concurrent submission recorded first
		return replay(stored, fingerprint, batch.BatchRequestKey)
	}

	log.Info().Int("items", len(results)).Msg("offline batch ingested")
	return models.BatchResult{BatchRequestKey: batch.BatchRequestKey, Items: raw}, nil
}

func replay(recorded models.BatchRecord, fingerprint, batchRequestKey string) (models.BatchResult, error) {
	if recorded.Fingerprint != fingerprint {
		return models.BatchResult{}, fmt.Errorf("%w: %s", ErrBatchConflict, batchRequestKey)
	}
	return models.BatchResult{
		BatchRequestKey: batchRequestKey,
		FromCache:       true,
		Items:           json.RawMessage(recorded.Results),
	}, nil
}

// reconcileItem decides the outcome of one item. Domain rejections become
// results; only infrastructure failures are returned as errors.
func (s *reconcileService) reconcileItem(ctx context.Context, caller models.Caller, item models.OfflineItem) (models.ItemResult, error) {
	log := logger.FromContext(ctx)
	result := models.ItemResult{ItemRequestKey: item.ItemRequestKey}

	if err := s.validator.Validate(ctx, item); err != nil {
		result.Outcome = models.OutcomeRejected
		result.ErrorCode = CodeInvalidItem
		return result, nil
	}

	if applied, ok, err := s.resolvedKey(ctx, caller, item.ItemRequestKey); err != nil || ok {
		return applied, err
	}

	var (
		obj models.EvidenceObject
		err error
	)
	key := &models.ItemKey{TenantID: caller.TenantID, ItemRequestKey: item.ItemRequestKey}
	if item.TargetObjectID != nil {
		key.Outcome = models.OutcomeCompletedExisting
		obj, err = s.evidence.completeBytes(ctx, caller, *item.TargetObjectID, item.ContentBytes(), item.ClientHash, key)
	} else {
		key.Outcome = models.OutcomeCreatedNew
		var req models.CreateRequest
		req, err = createRequestFromItem(item)
		if err == nil {
			obj, err = s.evidence.create(ctx, caller, req, key)
		}
	}

	switch {
	case err == nil:
		result.Outcome = key.Outcome
		result.ObjectID = obj.ID
		if obj.ContentHash != nil {
			result.ContentHash = *obj.ContentHash
		}
		return result, nil
	case errors.Is(err, store.ErrItemKeyExists):
		// a concurrent duplicate resolved the key first
		applied, ok, lookupErr := s.resolvedKey(ctx, caller, item.ItemRequestKey)
		if lookupErr != nil {
			return models.ItemResult{}, lookupErr
		}
		if !ok {
			return models.ItemResult{}, fmt.Errorf("item key %s reported as resolved but not found: %w", item.ItemRequestKey, err)
		}
		return applied, nil
	case IsDomainError(err):
		log.Info().Str("item_request_key", item.ItemRequestKey).Str("code", ErrorCode(err)).Msg("offline item rejected")
		result.Outcome = models.OutcomeRejected
		result.ErrorCode = ErrorCode(err)
		if errors.Is(err, ErrInvalidRequest) {
			result.ErrorCode = CodeInvalidItem
		}
		return result, nil
	default:
		return models.ItemResult{}, err
	}
}

// resolvedKey returns the already_applied result of an item whose key was
// resolved before.
func (s *reconcileService) resolvedKey(ctx context.Context, caller models.Caller, itemRequestKey string) (models.ItemResult, bool, error) {
	key, err := s.batches.GetItemKey(ctx, caller.TenantID, itemRequestKey)
	if errors.Is(err, store.ErrItemKeyNotFound) {
		return models.ItemResult{}, false, nil
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "reconcileService.resolvedKey").Str("item_request_key", itemRequestKey).Msg("failed to look up item key")
		return models.ItemResult{}, false, err
	}

	return models.ItemResult{
		ItemRequestKey: itemRequestKey,
		Outcome:        models.OutcomeAlreadyApplied,
		ObjectID:       key.ObjectID,
		ContentHash:    key.ContentHash,
	}, true, nil
}

func createRequestFromItem(item models.OfflineItem) (models.CreateRequest, error) {
	content, ok := models.ContentFromBytes(item.SourceKind, item.ContentBytes())
	if !ok {
		return models.CreateRequest{}, fmt.Errorf("%w: source kind %q", ErrInvalidRequest, item.SourceKind)
	}
	if doc, isDoc := content.(models.DocumentContent); isDoc && item.SourceURL != nil {
		doc.URL = *item.SourceURL
		content = doc
	}

	return models.CreateRequest{
		SourceKind: item.SourceKind,
		ScopeID:    item.ScopeID,
		SourceURL:  item.SourceURL,
		Claimed:    models.ClaimedTimestamps{OccurredAt: item.OccurredAt, CapturedAt: item.CapturedAt},
		Content:    content,
		ClientHash: item.ClientHash,
	}, nil
}

// Fingerprint identifies the item set of a batch. Snapshot payloads enter in
// their canonical form, so key order and whitespace of the submission do not
// matter. A payload that cannot be canonicalized enters as submitted; the
// item itself is rejected later, the batch still gets a fingerprint.
func Fingerprint(items []models.OfflineItem) string {
	view := make([]fingerprintItem, len(items))
	for i, it := range items {
		view[i] = fingerprintItem{
			ItemRequestKey: it.ItemRequestKey,
			SourceKind:     string(it.SourceKind),
			Text:           it.Text,
			Payload:        fingerprintPayload(it.Payload),
			Data:           it.Data,
			SourceURL:      it.SourceURL,
			ScopeID:        it.ScopeID,
			TargetObjectID: it.TargetObjectID,
			OccurredAt:     fingerprintTime(it.OccurredAt),
			CapturedAt:     fingerprintTime(it.CapturedAt),
			ClientHash:     it.ClientHash,
		}
	}

	// strings and byte slices always marshal
	raw, _ := json.Marshal(view)
	return hashing.HashBytes(raw)
}

// fingerprintItem is an offline item reduced to strings and bytes.
type fingerprintItem struct {
	ItemRequestKey string  `json:"item_request_key"`
	SourceKind     string  `json:"source_kind"`
	Text           string  `json:"text,omitempty"`
	Payload        []byte  `json:"payload,omitempty"`
	Data           []byte  `json:"data,omitempty"`
	SourceURL      *string `json:"source_url,omitempty"`
	ScopeID        *string `json:"scope_id,omitempty"`
	TargetObjectID *string `json:"target_object_id,omitempty"`
	OccurredAt     *string `json:"occurred_at,omitempty"`
	CapturedAt     *string `json:"captured_at,omitempty"`
	ClientHash     *string `json:"client_hash,omitempty"`
}

func fingerprintPayload(payload json.RawMessage) []byte {
	if len(payload) == 0 {
		return nil
	}
	if b, err := canonical.CanonicalizeJSON(payload); err == nil {
		return b
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, payload); err == nil {
		return buf.Bytes()
	}
	return payload
}

func fingerprintTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}
