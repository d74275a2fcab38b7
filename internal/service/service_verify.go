package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/internal/store"
	"github.com/MKhiriev/go-custody-ledger/internal/verify"
	"github.com/MKhiriev/go-custody-ledger/models"
)

// verifyService reads stored chains and manifests and hands them to the pure
// verifier. A failed verification is a report, not an error.
type verifyService struct {
	objects store.EvidenceRepository
	bundles store.BundleRepository

	logger *logger.Logger
}

func NewVerifyService(objects store.EvidenceRepository, bundles store.BundleRepository, logger *logger.Logger) VerifyService {
	return &verifyService{objects: objects, bundles: bundles, logger: logger}
}

func (s *verifyService) VerifyObject(ctx context.Context, caller models.Caller, objectID string) (models.ChainVerification, error) {
	obj, err := s.objects.GetObject(ctx, caller.TenantID, objectID)
	if err != nil {
		if errors.Is(err, store.ErrObjectNotFound) {
			return models.ChainVerification{}, fmt.Errorf("%w: object %s: %w", ErrNotFound, objectID, err)
		}
		return models.ChainVerification{}, err
	}

	events, err := s.objects.ListEvents(ctx, caller.TenantID, objectID)
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "verifyService.VerifyObject").Str("object_id", objectID).Msg("failed to list events")
		return models.ChainVerification{}, err
	}

	res := verify.Object(obj, events)
	if !res.Valid {
		logger.FromContext(ctx).Warn().Str("object_id", objectID).Int("first_failure_index", res.FirstFailureIndex).
			Str("reason", res.Reason).Msg("custody chain does not verify")
	}
	return res, nil
}

// VerifyBundle checks the frozen manifest of a sealed bundle against the
// current chain of every member.
func (s *verifyService) VerifyBundle(ctx context.Context, caller models.Caller, bundleID string) (models.BundleVerification, error) {
	b, err := s.bundles.GetBundle(ctx, caller.TenantID, bundleID)
	if err != nil {
		if errors.Is(err, store.ErrBundleNotFound) {
			return models.BundleVerification{}, fmt.Errorf("%w: bundle %s: %w", ErrNotFound, bundleID, err)
		}
		return models.BundleVerification{}, err
	}
	if b.Manifest == nil || b.ManifestHash == nil {
		return models.BundleVerification{}, fmt.Errorf("%w: bundle %s", ErrNotSealed, bundleID)
	}

	chains := make(map[string][]models.CustodyEvent, len(b.Manifest.Items))
	for _, item := range b.Manifest.Items {
		events, err := s.objects.ListEvents(ctx, caller.TenantID, item.ObjectID)
		if err != nil {
			logger.FromContext(ctx).Err(err).Str("func", "verifyService.VerifyBundle").Str("object_id", item.ObjectID).Msg("failed to list events")
			return models.BundleVerification{}, err
		}
		if len(events) > 0 {
			chains[item.ObjectID] = events
		}
	}

	res := verify.Bundle(*b.Manifest, *b.ManifestHash, chains)
	if !res.Valid {
		logger.FromContext(ctx).Warn().Str("bundle_id", bundleID).Str("first_failing_object_id", res.FirstFailingObjectID).
			Str("reason", res.Reason).Msg("bundle does not verify")
	}
	return res, nil
}

// VerifyArtifact verifies exported bytes without touching storage.
func (s *verifyService) VerifyArtifact(ctx context.Context, data []byte) (models.BundleVerification, error) {
	return verify.Artifact(data)
}
