package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MKhiriev/go-custody-ledger/internal/hashing"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/internal/store"
	"github.com/MKhiriev/go-custody-ledger/internal/utils"
	"github.com/MKhiriev/go-custody-ledger/internal/validators"
	"github.com/MKhiriev/go-custody-ledger/models"
)

type clientCaptureService struct {
	outbox    store.OutboxRepository
	validator validators.Validator
	ids       *utils.UUIDGenerator
	now       func() time.Time

	logger *logger.Logger
}

func NewClientCaptureService(outbox store.OutboxRepository, logger *logger.Logger) ClientCaptureService {
	return &clientCaptureService{
		outbox:    outbox,
		validator: validators.NewEvidenceValidator(),
		ids:       utils.NewUUIDGenerator(),
		now:       time.Now,
		logger:    logger,
	}
}

func (s *clientCaptureService) CaptureNote(ctx context.Context, text string, opts CaptureOptions) (models.OutboxItem, error) {
	return s.capture(ctx, models.OfflineItem{SourceKind: models.AuthoredNote, Text: text}, opts)
}

func (s *clientCaptureService) CaptureSnapshot(ctx context.Context, payload json.RawMessage, opts CaptureOptions) (models.OutboxItem, error) {
	return s.capture(ctx, models.OfflineItem{SourceKind: models.StructuredSnapshot, Payload: payload}, opts)
}

func (s *clientCaptureService) CaptureFile(ctx context.Context, data []byte, opts CaptureOptions) (models.OutboxItem, error) {
	kind := models.StoredBlob
	if opts.SourceURL != nil {
		kind = models.FetchedDocument
	}
	return s.capture(ctx, models.OfflineItem{SourceKind: kind, Data: data}, opts)
}

func (s *clientCaptureService) capture(ctx context.Context, item models.OfflineItem, opts CaptureOptions) (models.OutboxItem, error) {
	log := logger.FromContext(ctx)

	content, ok := models.ContentFromBytes(item.SourceKind, item.ContentBytes())
	if !ok {
		return models.OutboxItem{}, fmt.Errorf("%w: unknown source kind %q", ErrInvalidRequest, item.SourceKind)
	}
	hash, err := hashing.ContentHash(content)
	if err != nil {
		return models.OutboxItem{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	now := s.now().UTC()
	item.ItemRequestKey = s.ids.Generate()
	item.ScopeID = opts.ScopeID
	item.SourceURL = opts.SourceURL
	item.TargetObjectID = opts.TargetObjectID
	item.OccurredAt = opts.OccurredAt
	item.CapturedAt = &now
	item.ClientHash = &hash

	if err = s.validator.Validate(ctx, item, validators.FieldItemRequestKey,
		validators.FieldSourceKind, validators.FieldClientHash, validators.FieldSourceURL, validators.FieldTarget); err != nil {
		return models.OutboxItem{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	queued := models.OutboxItem{Item: item, ContentHash: hash, CapturedAt: now}
	if err = s.outbox.Enqueue(ctx, queued); err != nil {
		log.Err(err).Str("func", "clientCaptureService.capture").
			Str("item_request_key", item.ItemRequestKey).Msg("failed to queue capture")
		return models.OutboxItem{}, fmt.Errorf("queue capture: %w", err)
	}

	log.Info().Str("item_request_key", item.ItemRequestKey).Str("source_kind", string(item.SourceKind)).
		Str("content_hash", hash).Msg("capture queued")
	return queued, nil
}

func (s *clientCaptureService) List(ctx context.Context) ([]models.OutboxItem, error) {
	return s.outbox.ListItems(ctx)
}
