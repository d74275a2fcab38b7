package service

import (
	"github.com/MKhiriev/go-custody-ledger/internal/adapter"
	"github.com/MKhiriev/go-custody-ledger/internal/config"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/internal/store"
	"github.com/MKhiriev/go-custody-ledger/internal/workers"
)

// ClientServices is the device agent's service container.
type ClientServices struct {
	CaptureService ClientCaptureService
	SyncService    ClientSyncService
	VerifyService  ClientVerifyService
	SyncJob        workers.Worker
}

func NewClientServices(storages *store.ClientStorages, serverAdapter adapter.ServerAdapter, cfg *config.ClientConfig, logger *logger.Logger) *ClientServices {
	syncSvc := NewClientSyncService(storages.Outbox, serverAdapter, cfg.Adapter.DeviceID, logger)

	return &ClientServices{
		CaptureService: NewClientCaptureService(storages.Outbox, logger),
		SyncService:    syncSvc,
		// artifacts carry everything needed, no repositories are read
		VerifyService: NewVerifyService(nil, nil, logger),
		SyncJob:       NewClientSyncJob(syncSvc, cfg.Workers.SyncInterval, logger),
	}
}
