package service

import (
	"context"
	"time"

	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/internal/workers"
)

// NewClientSyncJob returns a worker that flushes the outbox every interval.
// Failed flushes are retried on the next tick.
func NewClientSyncJob(syncService ClientSyncService, interval time.Duration, log *logger.Logger) workers.Worker {
	return workers.NewPeriodic("outbox-sync", interval, func(ctx context.Context) error {
		report, err := syncService.Sync(ctx)
		if err != nil {
			return err
		}
		if report.Batches > 0 {
			log.Info().Int("batches", report.Batches).Int("created", report.Created).
				Int("already_applied", report.Applied).Int("rejected", report.Rejected).Msg("outbox flushed")
		}
		return nil
	}, log)
}
