// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-custody-ledger/internal/adapter"
	"github.com/MKhiriev/go-custody-ledger/internal/blob"
	"github.com/MKhiriev/go-custody-ledger/internal/chain"
	"github.com/MKhiriev/go-custody-ledger/internal/hashing"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/internal/store"
	"github.com/MKhiriev/go-custody-ledger/internal/utils"
	"github.com/MKhiriev/go-custody-ledger/internal/validators"
	"github.com/MKhiriev/go-custody-ledger/models"
)

// evidenceService is the concrete implementation of EvidenceService. The
// offline reconciler shares it so both paths hash and persist identically.
type evidenceService struct {
	objects store.EvidenceRepository
	blobs   blob.Store
	holds   adapter.HoldChecker
	fetcher adapter.Fetcher

	validator validators.Validator
	ids       *utils.UUIDGenerator

	// appendRetries bounds the compare-and-set retries of one mutation.
	appendRetries uint64
	now           func() time.Time

	logger *logger.Logger
}

// EvidenceDeps are the collaborators of the evidence service.
type EvidenceDeps struct {
	Objects store.EvidenceRepository
	Blobs   blob.Store
	Holds   adapter.HoldChecker
	Fetcher adapter.Fetcher
}

// NewEvidenceService constructs an EvidenceService. A nil Fetcher disables
// FetchDocument.
func NewEvidenceService(deps EvidenceDeps, appendRetries uint64, logger *logger.Logger) EvidenceService {
	return newEvidenceService(deps, appendRetries, logger)
}

func newEvidenceService(deps EvidenceDeps, appendRetries uint64, logger *logger.Logger) *evidenceService {
	return &evidenceService{
		objects:       deps.Objects,
		blobs:         deps.Blobs,
		holds:         deps.Holds,
		fetcher:       deps.Fetcher,
		validator:     validators.NewEvidenceValidator(),
		ids:           utils.NewUUIDGenerator(),
		appendRetries: appendRetries,
		now:           time.Now,
		logger:        logger,
	}
}

// Create records a new evidence object. Creation is never hold-gated. When
// req.Content is nil the object waits for its bytes with no content hash.
func (s *evidenceService) Create(ctx context.Context, caller models.Caller, req models.CreateRequest) (models.EvidenceObject, error) {
	return s.create(ctx, caller, req, nil)
}

// create persists the object, its created event and the optional item key
// in one transaction. key must carry TenantID, ItemRequestKey and Outcome;
// the object id and hash are filled in here.
func (s *evidenceService) create(ctx context.Context, caller models.Caller, req models.CreateRequest, key *models.ItemKey) (models.EvidenceObject, error) {
	log := logger.FromContext(ctx)

	if err := s.validator.Validate(ctx, req); err != nil {
		return models.EvidenceObject{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if req.Content == nil && req.ClientHash != nil {
		return models.EvidenceObject{}, fmt.Errorf("%w: a client hash needs content", ErrInvalidRequest)
	}

	now := chain.Timestamp(s.now())
	obj := models.EvidenceObject{
		ID:           s.ids.Generate(),
		TenantID:     caller.TenantID,
		ScopeID:      req.ScopeID,
		SourceKind:   req.SourceKind,
		OccurredAt:   req.Claimed.OccurredAt,
		CapturedAt:   req.Claimed.CapturedAt,
		CreatedAt:    now,
		SourceURL:    req.SourceURL,
		PendingBytes: req.Content == nil,
		ChainStatus:  models.StatusOpen,
	}

	if req.Content != nil {
		stored, err := s.storeContent(ctx, req.Content, req.ClientHash)
		if err != nil {
			return models.EvidenceObject{}, err
		}
		obj.ContentHash = &stored.hash
		obj.ContentSize = stored.size
		obj.BlobPointer = stored.pointer
		obj.InlineContent = stored.inline
	}

	payload := models.CreatedPayload{
		SourceKind:   obj.SourceKind,
		ContentHash:  obj.ContentHash,
		PendingBytes: obj.PendingBytes,
		ScopeID:      obj.ScopeID,
		SourceURL:    obj.SourceURL,
		OccurredAt:   obj.OccurredAt,
		CapturedAt:   obj.CapturedAt,
		CreatedAt:    now,
		CreatedBy:    caller.Actor(),
		DeviceID:     caller.DeviceID,
	}
	if key != nil {
		payload.ItemRequestKey = key.ItemRequestKey
		key.ObjectID = obj.ID
		key.CreatedAt = now
		if obj.ContentHash != nil {
			key.ContentHash = *obj.ContentHash
		}
	}

	created, err := chain.Next(models.ChainTip{ObjectID: obj.ID, Hash: chain.Genesis}, caller.TenantID, payload, now)
	if err != nil {
		log.Err(err).Str("func", "evidenceService.create").Msg("failed to build created event")
		return models.EvidenceObject{}, err
	}
	obj.TipHash = created.EventHash
	obj.TipSeq = created.Seq

	if err = s.objects.CreateObject(ctx, obj, created, key); err != nil {
		if !errors.Is(err, store.ErrItemKeyExists) {
			log.Err(err).Str("func", "evidenceService.create").Str("object_id", obj.ID).Msg("failed to persist evidence object")
		}
		return models.EvidenceObject{}, err
	}

	log.Info().Str("object_id", obj.ID).Str("source_kind", string(obj.SourceKind)).
		Bool("pending_bytes", obj.PendingBytes).Msg("evidence object created")
	return obj, nil
}

// CompleteBytes records the content of a pending object.
func (s *evidenceService) CompleteBytes(ctx context.Context, caller models.Caller, objectID string, data []byte, clientHash *string) (models.EvidenceObject, error) {
	return s.completeBytes(ctx, caller, objectID, data, clientHash, nil)
}

func (s *evidenceService) completeBytes(ctx context.Context, caller models.Caller, objectID string, data []byte, clientHash *string, key *models.ItemKey) (models.EvidenceObject, error) {
	if clientHash != nil && !hashing.ValidHex(*clientHash) {
		return models.EvidenceObject{}, fmt.Errorf("%w: %w", ErrInvalidRequest, validators.ErrInvalidClientHash)
	}

	return s.mutate(ctx, caller, objectID, func(ctx context.Context, obj models.EvidenceObject) (mutation, error) {
		if err := s.gate(ctx, caller, obj); err != nil {
			return mutation{}, err
		}
		if err := requireCompletable(obj); err != nil {
			return mutation{}, err
		}

		content, ok := models.ContentFromBytes(obj.SourceKind, data)
		if !ok {
			return mutation{}, fmt.Errorf("%w: source kind %q", ErrInvalidRequest, obj.SourceKind)
		}
		stored, err := s.storeContent(ctx, content, clientHash)
		if err != nil {
			return mutation{}, err
		}

		if key != nil {
			key.ObjectID = obj.ID
			key.ContentHash = stored.hash
			key.CreatedAt = chain.Timestamp(s.now())
		}
		return mutation{
			payload: models.BytesUploadedPayload{
				ContentHash: stored.hash,
				ContentSize: stored.size,
				UploadedBy:  caller.Actor(),
				DeviceID:    caller.DeviceID,
			},
			change:  stored.change(store.ObjectChange{RequireStatus: []models.ChainStatus{models.StatusOpen}, RequirePending: true}),
			itemKey: key,
		}, nil
	})
}

// FetchDocument retrieves the bytes of a pending fetched document from its
// source URL. A failed or cancelled fetch changes nothing.
func (s *evidenceService) FetchDocument(ctx context.Context, caller models.Caller, objectID string) (models.EvidenceObject, error) {
	log := logger.FromContext(ctx)

	if s.fetcher == nil {
		return models.EvidenceObject{}, fmt.Errorf("%w: document fetching is disabled", ErrFetchFailed)
	}

	obj, err := s.getObject(ctx, caller, objectID)
	if err != nil {
		return models.EvidenceObject{}, err
	}
	if obj.SourceKind != models.FetchedDocument || obj.SourceURL == nil {
		return models.EvidenceObject{}, fmt.Errorf("%w: object %s is not a fetchable document", ErrInvalidRequest, objectID)
	}
	if err = s.gate(ctx, caller, obj); err != nil {
		return models.EvidenceObject{}, err
	}
	if err = requireCompletable(obj); err != nil {
		return models.EvidenceObject{}, err
	}

	doc, err := s.fetcher.Fetch(ctx, *obj.SourceURL)
	if err != nil {
		log.Err(err).Str("func", "evidenceService.FetchDocument").Str("object_id", objectID).Msg("document fetch failed")
		if ctx.Err() != nil {
			return models.EvidenceObject{}, ctx.Err()
		}
		return models.EvidenceObject{}, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	content := models.DocumentContent{Raw: doc.Body, URL: *obj.SourceURL}
	stored, err := s.storeContent(ctx, content, nil)
	if err != nil {
		return models.EvidenceObject{}, err
	}

	return s.mutate(ctx, caller, objectID, func(ctx context.Context, obj models.EvidenceObject) (mutation, error) {
		if err := s.gate(ctx, caller, obj); err != nil {
			return mutation{}, err
		}
		if err := requireCompletable(obj); err != nil {
			return mutation{}, err
		}
		return mutation{
			payload: models.FetchedPayload{
				ContentHash: stored.hash,
				ContentSize: stored.size,
				SourceURL:   *obj.SourceURL,
				HTTPStatus:  doc.StatusCode,
				MediaType:   doc.MediaType,
				FetchedBy:   caller.Actor(),
			},
			change: stored.change(store.ObjectChange{RequireStatus: []models.ChainStatus{models.StatusOpen}, RequirePending: true}),
		}, nil
	})
}

// Seal freezes the content of an open object. The transition is
// irreversible.
func (s *evidenceService) Seal(ctx context.Context, caller models.Caller, objectID string) (models.EvidenceObject, error) {
	return s.mutate(ctx, caller, objectID, func(ctx context.Context, obj models.EvidenceObject) (mutation, error) {
		switch obj.ChainStatus {
		case models.StatusOpen:
		case models.StatusSealed:
			return mutation{}, fmt.Errorf("%w: object %s", ErrAlreadySealed, obj.ID)
		default:
			return mutation{}, fmt.Errorf("%w: object %s is %s", ErrNotOpen, obj.ID, obj.ChainStatus)
		}
		if obj.PendingBytes || obj.ContentHash == nil {
			return mutation{}, fmt.Errorf("%w: object %s", ErrPendingBytes, obj.ID)
		}
		if err := s.gate(ctx, caller, obj); err != nil {
			return mutation{}, err
		}

		sealed := models.StatusSealed
		return mutation{
			payload: models.SealedPayload{ContentHash: *obj.ContentHash, SealedBy: caller.Actor()},
			change:  store.ObjectChange{Status: &sealed, RequireStatus: []models.ChainStatus{models.StatusOpen}},
		}, nil
	})
}

// Supersede marks a sealed object as replaced by a correcting object. The
// content hash of the original is never touched.
func (s *evidenceService) Supersede(ctx context.Context, caller models.Caller, objectID string, req models.SupersedeRequest) (models.EvidenceObject, error) {
	if err := s.validator.Validate(ctx, req); err != nil {
		return models.EvidenceObject{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if req.ReplacementID == objectID {
		return models.EvidenceObject{}, fmt.Errorf("%w: an object cannot supersede itself", ErrInvalidRequest)
	}
	if _, err := s.getObject(ctx, caller, req.ReplacementID); err != nil {
		return models.EvidenceObject{}, err
	}

	return s.mutate(ctx, caller, objectID, func(ctx context.Context, obj models.EvidenceObject) (mutation, error) {
		if obj.ChainStatus != models.StatusSealed {
			return mutation{}, fmt.Errorf("%w: object %s is %s", ErrNotSealed, obj.ID, obj.ChainStatus)
		}
		if err := s.gate(ctx, caller, obj); err != nil {
			return mutation{}, err
		}

		superseded := models.StatusSuperseded
		replacement := req.ReplacementID
		return mutation{
			payload: models.SupersededPayload{ReplacementID: replacement, Reason: req.Reason, SupersededBy: caller.Actor()},
			change: store.ObjectChange{
				Status:        &superseded,
				SupersededBy:  &replacement,
				RequireStatus: []models.ChainStatus{models.StatusSealed},
			},
		}, nil
	})
}

// Revoke terminally withdraws an open or sealed object.
func (s *evidenceService) Revoke(ctx context.Context, caller models.Caller, objectID string, req models.RevokeRequest) (models.EvidenceObject, error) {
	if err := s.validator.Validate(ctx, req); err != nil {
		return models.EvidenceObject{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	return s.mutate(ctx, caller, objectID, func(ctx context.Context, obj models.EvidenceObject) (mutation, error) {
		if obj.ChainStatus != models.StatusOpen && obj.ChainStatus != models.StatusSealed {
			return mutation{}, fmt.Errorf("%w: object %s is %s", ErrNotOpen, obj.ID, obj.ChainStatus)
		}
		if err := s.gate(ctx, caller, obj); err != nil {
			return mutation{}, err
		}

		revoked := models.StatusRevoked
		return mutation{
			payload: models.RevokedPayload{Reason: req.Reason, RevokedBy: caller.Actor()},
			change: store.ObjectChange{
				Status:        &revoked,
				RequireStatus: []models.ChainStatus{models.StatusOpen, models.StatusSealed},
			},
		}, nil
	})
}

func (s *evidenceService) Get(ctx context.Context, caller models.Caller, objectID string) (models.EvidenceObject, error) {
	return s.getObject(ctx, caller, objectID)
}

func (s *evidenceService) Events(ctx context.Context, caller models.Caller, objectID string) ([]models.CustodyEvent, error) {
	if _, err := s.getObject(ctx, caller, objectID); err != nil {
		return nil, err
	}

	events, err := s.objects.ListEvents(ctx, caller.TenantID, objectID)
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "evidenceService.Events").Str("object_id", objectID).Msg("failed to list events")
		return nil, err
	}
	return events, nil
}

// mutation is one decided chain extension.
type mutation struct {
	payload models.EventPayload
	change  store.ObjectChange
	itemKey *models.ItemKey
}

// mutate re-reads the object, lets decide inspect the current state and
// appends the resulting event. A lost compare-and-set starts over from a
// fresh read, so decide always judges the state it extends.
func (s *evidenceService) mutate(
	ctx context.Context,
	caller models.Caller,
	objectID string,
	decide func(ctx context.Context, obj models.EvidenceObject) (mutation, error),
) (models.EvidenceObject, error) {
	log := logger.FromContext(ctx)

	var updated models.EvidenceObject
	err := retryOnConflict(ctx, s.appendRetries, func(ctx context.Context) error {
		obj, err := s.getObject(ctx, caller, objectID)
		if err != nil {
			return err
		}

		m, err := decide(ctx, obj)
		if err != nil {
			return err
		}

		event, err := chain.Next(obj.Tip(), caller.TenantID, m.payload, s.now())
		if err != nil {
			return err
		}

		updated, err = s.objects.AppendEvent(ctx, store.Append{
			TenantID: caller.TenantID,
			Expected: obj.Tip(),
			Event:    event,
			Change:   m.change,
			ItemKey:  m.itemKey,
		})
		if errors.Is(err, store.ErrTipConflict) {
			log.Debug().Str("object_id", objectID).Int64("seq", obj.TipSeq).Msg("chain tip moved, retrying")
		}
		return err
	})
	if err != nil {
		return models.EvidenceObject{}, err
	}

	log.Info().Str("object_id", objectID).Str("chain_status", string(updated.ChainStatus)).
		Int64("tip_seq", updated.TipSeq).Msg("custody event appended")
	return updated, nil
}

// gate consults the hold checker for the object and its scope. It fails
// closed: a checker error is reported as a hold.
func (s *evidenceService) gate(ctx context.Context, caller models.Caller, obj models.EvidenceObject) error {
	if s.holds == nil {
		return fmt.Errorf("%w: no hold checker configured", ErrOnHold)
	}

	subjects := []string{obj.ID}
	if obj.ScopeID != nil {
		subjects = append(subjects, *obj.ScopeID)
	}

	for _, subject := range subjects {
		held, err := s.holds.IsOnHold(ctx, caller.TenantID, subject)
		if err != nil {
			logger.FromContext(ctx).Warn().Err(err).Str("func", "evidenceService.gate").
				Str("subject", subject).Msg("hold state unavailable, treating as held")
			return fmt.Errorf("%w: hold state of %s unavailable: %w", ErrOnHold, subject, err)
		}
		if held {
			return fmt.Errorf("%w: %s", ErrOnHold, subject)
		}
	}
	return nil
}

func (s *evidenceService) getObject(ctx context.Context, caller models.Caller, objectID string) (models.EvidenceObject, error) {
	obj, err := s.objects.GetObject(ctx, caller.TenantID, objectID)
	if err != nil {
		if errors.Is(err, store.ErrObjectNotFound) {
			return models.EvidenceObject{}, fmt.Errorf("%w: object %s: %w", ErrNotFound, objectID, err)
		}
		logger.FromContext(ctx).Err(err).Str("func", "evidenceService.getObject").Str("object_id", objectID).Msg("failed to read object")
		return models.EvidenceObject{}, err
	}
	return obj, nil
}

func requireCompletable(obj models.EvidenceObject) error {
	switch obj.ChainStatus {
	case models.StatusOpen:
	case models.StatusSealed:
		return fmt.Errorf("%w: object %s", ErrAlreadySealed, obj.ID)
	default:
		return fmt.Errorf("%w: object %s is %s", ErrNotOpen, obj.ID, obj.ChainStatus)
	}
	if !obj.PendingBytes {
		return fmt.Errorf("%w: object %s", ErrNotPending, obj.ID)
	}
	return nil
}

// storedContent is hashed content placed where its kind keeps it.
type storedContent struct {
	hash    string
	size    int64
	pointer *string
	inline  []byte
}

func (c storedContent) change(base store.ObjectChange) store.ObjectChange {
	base.ContentHash = &c.hash
	base.ContentSize = &c.size
	base.BlobPointer = c.pointer
	base.InlineContent = c.inline
	base.ClearPending = true
	return base
}

// storeContent hashes content, checks the client assertion and writes
// blob-backed kinds to the blob store. Nothing is written on a mismatch.
func (s *evidenceService) storeContent(ctx context.Context, content models.Content, clientHash *string) (storedContent, error) {
	data, err := hashing.ContentBytes(content)
	if err != nil {
		return storedContent{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	computed := hashing.HashBytes(data)

	if clientHash != nil && !hashing.Matches(*clientHash, computed) {
		logger.FromContext(ctx).Warn().Str("func", "evidenceService.storeContent").
			Str("client_hash", *clientHash).Str("computed_hash", computed).Msg("client hash mismatch")
		return storedContent{}, fmt.Errorf("%w: asserted %s, computed %s", ErrHashMismatch, *clientHash, computed)
	}

	out := storedContent{hash: computed, size: int64(len(data))}
	switch content.Kind() {
	case models.StoredBlob, models.FetchedDocument:
		pointer, err := s.blobs.Put(ctx, data)
		if err != nil {
			logger.FromContext(ctx).Err(err).Str("func", "evidenceService.storeContent").Msg("failed to store content bytes")
			return storedContent{}, err
		}
		out.pointer = &pointer
	default:
		out.inline = data
	}
	return out, nil
}
