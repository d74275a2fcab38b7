package service

import (
	"fmt"

	"github.com/MKhiriev/go-custody-ledger/internal/adapter"
	"github.com/MKhiriev/go-custody-ledger/internal/blob"
	"github.com/MKhiriev/go-custody-ledger/internal/config"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/internal/store"
	"github.com/MKhiriev/go-custody-ledger/models"
)

// Services is the server-side service container handed to the handlers.
type Services struct {
	EvidenceService  EvidenceService
	BundleService    BundleService
	ReconcileService ReconcileService
	VerifyService    VerifyService
	AuthService      AuthService
	AppInfoService   AppInfoService
}

// Collaborators are the outbound dependencies of the services.
type Collaborators struct {
	Blobs   blob.Store
	Holds   adapter.HoldChecker
	Fetcher adapter.Fetcher
}

func NewServices(storages *store.Storages, collab Collaborators, cfg *config.StructuredConfig, build models.AppBuildInfo, logger *logger.Logger) (*Services, error) {
	evidence := NewEvidenceService(EvidenceDeps{
		Objects: storages.EvidenceRepository,
		Blobs:   collab.Blobs,
		Holds:   collab.Holds,
		Fetcher: collab.Fetcher,
	}, cfg.Workers.AppendRetries, logger)

	reconcile, err := NewReconcileService(evidence, storages.BatchRepository, cfg.Workers.IngestConcurrency, logger)
	if err != nil {
		return nil, fmt.Errorf("error creating reconcile service: %w", err)
	}

	appInfo, err := NewAppInfoService(cfg.App, build, logger)
	if err != nil {
		return nil, fmt.Errorf("error creating app info service: %w", err)
	}

	return &Services{
		EvidenceService:  evidence,
		BundleService:    NewBundleService(storages.BundleRepository, storages.EvidenceRepository, collab.Blobs, cfg.Workers.AppendRetries, logger),
		ReconcileService: reconcile,
		VerifyService:    NewVerifyService(storages.EvidenceRepository, storages.BundleRepository, logger),
		AuthService:      NewAuthService(cfg.App, logger),
		AppInfoService:   appInfo,
	}, nil
}
