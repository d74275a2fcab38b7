package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MKhiriev/go-custody-ledger/internal/adapter"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/internal/store"
	"github.com/MKhiriev/go-custody-ledger/internal/utils"
	"github.com/MKhiriev/go-custody-ledger/models"
)

const defaultSyncBatchSize = 100

type clientSyncService struct {
	outbox    store.OutboxRepository
	adapter   adapter.ServerAdapter
	deviceID  string
	batchSize int
	ids       *utils.UUIDGenerator
	now       func() time.Time

	// one flush at a time, the worker and the sync command may overlap
	mu sync.Mutex

	logger *logger.Logger
}

func NewClientSyncService(outbox store.OutboxRepository, serverAdapter adapter.ServerAdapter, deviceID string, logger *logger.Logger) ClientSyncService {
	return &clientSyncService{
		outbox:    outbox,
		adapter:   serverAdapter,
		deviceID:  deviceID,
		batchSize: defaultSyncBatchSize,
		ids:       utils.NewUUIDGenerator(),
		now:       time.Now,
		logger:    logger,
	}
}

func (s *clientSyncService) Sync(ctx context.Context) (models.SyncReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report models.SyncReport
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		// the key is written together with the batch, so a resend after a
		// crash or a lost response reuses it
		batch, err := s.outbox.OpenBatch(ctx, s.ids.Generate(), s.now(), s.batchSize)
		if errors.Is(err, store.ErrOutboxEmpty) {
			return report, nil
		}
		if err != nil {
			return report, fmt.Errorf("open outbox batch: %w", err)
		}

		results, err := s.send(ctx, batch)
		if err != nil {
			return report, err
		}
		report.Add(results)
	}
}

func (s *clientSyncService) send(ctx context.Context, batch models.OutboxBatch) ([]models.ItemResult, error) {
	log := logger.FromContext(ctx).With().Str("func", "clientSyncService.send").
		Str("batch_request_key", batch.BatchRequestKey).Logger()

	res, err := s.adapter.SubmitBatch(ctx, models.OfflineBatch{
		DeviceID:        s.deviceID,
		BatchRequestKey: batch.BatchRequestKey,
		Items:           batch.Items,
		Length:          len(batch.Items),
	})
	if err != nil {
		log.Err(err).Int("items", len(batch.Items)).Msg("batch was not accepted")
		return nil, fmt.Errorf("submit batch %s: %w", batch.BatchRequestKey, err)
	}

	results, err := res.DecodeItems()
	if err != nil {
		return nil, fmt.Errorf("decode batch %s results: %w", batch.BatchRequestKey, err)
	}
	for _, r := range results {
		if r.Outcome == models.OutcomeRejected {
			log.Warn().Str("item_request_key", r.ItemRequestKey).Str("error_code", r.ErrorCode).Msg("item rejected by ledger")
		}
	}

	if err = s.outbox.CompleteBatch(ctx, batch.BatchRequestKey, results, s.now()); err != nil {
		return nil, fmt.Errorf("record batch %s results: %w", batch.BatchRequestKey, err)
	}

	log.Info().Int("items", len(results)).Bool("from_cache", res.FromCache).Msg("batch synced")
	return results, nil
}
