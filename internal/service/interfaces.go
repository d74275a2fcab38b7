package service

import (
	"context"

	"github.com/MKhiriev/go-custody-ledger/models"
)

// EvidenceService owns the lifecycle of evidence objects. Every mutation
// appends exactly one custody event in the same transaction as the state
// change it records.
type EvidenceService interface {
	Create(ctx context.Context, caller models.Caller, req models.CreateRequest) (models.EvidenceObject, error)
	CompleteBytes(ctx context.Context, caller models.Caller, objectID string, data []byte, clientHash *string) (models.EvidenceObject, error)
	FetchDocument(ctx context.Context, caller models.Caller, objectID string) (models.EvidenceObject, error)

	Seal(ctx context.Context, caller models.Caller, objectID string) (models.EvidenceObject, error)
	Supersede(ctx context.Context, caller models.Caller, objectID string, req models.SupersedeRequest) (models.EvidenceObject, error)
	Revoke(ctx context.Context, caller models.Caller, objectID string, req models.RevokeRequest) (models.EvidenceObject, error)

	Get(ctx context.Context, caller models.Caller, objectID string) (models.EvidenceObject, error)
	Events(ctx context.Context, caller models.Caller, objectID string) ([]models.CustodyEvent, error)
}

// BundleService groups sealed evidence under a frozen manifest.
type BundleService interface {
	Create(ctx context.Context, caller models.Caller, req models.CreateBundleRequest) (models.Bundle, error)
	Get(ctx context.Context, caller models.Caller, bundleID string) (models.Bundle, error)

	AddItem(ctx context.Context, caller models.Caller, bundleID, objectID string) (models.Bundle, error)
	RemoveItem(ctx context.Context, caller models.Caller, bundleID, objectID string) (models.Bundle, error)

	// Seal freezes the manifest and returns its hash.
	Seal(ctx context.Context, caller models.Caller, bundleID string) (string, error)

	// Export writes the portable artifact of a sealed bundle to the blob
	// store and returns it.
	Export(ctx context.Context, caller models.Caller, bundleID string) (models.ExportResult, error)
}

// ReconcileService ingests offline batches idempotently.
type ReconcileService interface {
	IngestBatch(ctx context.Context, caller models.Caller, batch models.OfflineBatch) (models.BatchResult, error)
}

// VerifyService recomputes custody chains and manifests from stored data.
type VerifyService interface {
	VerifyObject(ctx context.Context, caller models.Caller, objectID string) (models.ChainVerification, error)
	VerifyBundle(ctx context.Context, caller models.Caller, bundleID string) (models.BundleVerification, error)
	VerifyArtifact(ctx context.Context, data []byte) (models.BundleVerification, error)
}

// AuthService issues and parses caller tokens.
type AuthService interface {
	CreateToken(ctx context.Context, caller models.Caller) (models.Token, error)
	ParseToken(ctx context.Context, tokenString string) (models.Token, error)
}

// AppInfoService reports build information.
type AppInfoService interface {
	GetAppVersion(ctx context.Context) models.VersionResponse
}
