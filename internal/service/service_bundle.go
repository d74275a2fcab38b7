package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/MKhiriev/go-custody-ledger/internal/artifact"
	"github.com/MKhiriev/go-custody-ledger/internal/blob"
	"github.com/MKhiriev/go-custody-ledger/internal/chain"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/internal/store"
	"github.com/MKhiriev/go-custody-ledger/internal/utils"
	"github.com/MKhiriev/go-custody-ledger/internal/validators"
	"github.com/MKhiriev/go-custody-ledger/internal/verify"
	"github.com/MKhiriev/go-custody-ledger/models"
)

type bundleService struct {
	bundles store.BundleRepository
	objects store.EvidenceRepository
	blobs   blob.Store

	validator validators.Validator
	ids       *utils.UUIDGenerator

	retries uint64
	now     func() time.Time

	logger *logger.Logger
}

// NewBundleService constructs a BundleService. Every item change and the
// seal are compare-and-set on the bundle version, retried up to retries
// times.
func NewBundleService(bundles store.BundleRepository, objects store.EvidenceRepository, blobs blob.Store, retries uint64, logger *logger.Logger) BundleService {
	return &bundleService{
		bundles:   bundles,
		objects:   objects,
		blobs:     blobs,
		validator: validators.NewEvidenceValidator(),
		ids:       utils.NewUUIDGenerator(),
		retries:   retries,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *bundleService) Create(ctx context.Context, caller models.Caller, req models.CreateBundleRequest) (models.Bundle, error) {
	log := logger.FromContext(ctx)

	if err := s.validator.Validate(ctx, req); err != nil {
		return models.Bundle{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	b := models.Bundle{
		ID:        s.ids.Generate(),
		TenantID:  caller.TenantID,
		Purpose:   req.Purpose,
		Metadata:  req.Metadata,
		Status:    models.BundleOpen,
		Version:   1,
		Items:     []string{},
		CreatedAt: chain.Timestamp(s.now()),
	}
	if err := s.bundles.CreateBundle(ctx, b); err != nil {
		log.Err(err).Str("func", "bundleService.Create").Msg("failed to create bundle")
		return models.Bundle{}, err
	}

	log.Info().Str("bundle_id", b.ID).Str("purpose", b.Purpose).Msg("bundle created")
	return b, nil
}

func (s *bundleService) Get(ctx context.Context, caller models.Caller, bundleID string) (models.Bundle, error) {
	b, err := s.bundles.GetBundle(ctx, caller.TenantID, bundleID)
	if err != nil {
		if errors.Is(err, store.ErrBundleNotFound) {
			return models.Bundle{}, fmt.Errorf("%w: bundle %s: %w", ErrNotFound, bundleID, err)
		}
		logger.FromContext(ctx).Err(err).Str("func", "bundleService.Get").Str("bundle_id", bundleID).Msg("failed to read bundle")
		return models.Bundle{}, err
	}
	return b, nil
}

// AddItem puts an object of the caller's tenant into an open bundle. Adding
// a member twice is a no-op.
func (s *bundleService) AddItem(ctx context.Context, caller models.Caller, bundleID, objectID string) (models.Bundle, error) {
	if _, err := s.objects.GetObject(ctx, caller.TenantID, objectID); err != nil {
		if errors.Is(err, store.ErrObjectNotFound) {
			return models.Bundle{}, fmt.Errorf("%w: object %s: %w", ErrNotFound, objectID, err)
		}
		return models.Bundle{}, err
	}

	return s.changeItems(ctx, caller, bundleID, func(b models.Bundle) (bool, error) {
		return !slices.Contains(b.Items, objectID), nil
	}, func(ctx context.Context, b models.Bundle) (int64, error) {
		return s.bundles.AddItem(ctx, caller.TenantID, bundleID, objectID, b.Version)
	})
}

// RemoveItem takes a member out of an open bundle.
func (s *bundleService) RemoveItem(ctx context.Context, caller models.Caller, bundleID, objectID string) (models.Bundle, error) {
	return s.changeItems(ctx, caller, bundleID, func(b models.Bundle) (bool, error) {
		if !slices.Contains(b.Items, objectID) {
			return false, fmt.Errorf("%w: object %s is not in bundle %s", ErrNotFound, objectID, bundleID)
		}
		return true, nil
	}, func(ctx context.Context, b models.Bundle) (int64, error) {
		return s.bundles.RemoveItem(ctx, caller.TenantID, bundleID, objectID, b.Version)
	})
}

func (s *bundleService) changeItems(
	ctx context.Context,
	caller models.Caller,
	bundleID string,
	needed func(models.Bundle) (bool, error),
	apply func(context.Context, models.Bundle) (int64, error),
) (models.Bundle, error) {
	err := retryOnConflict(ctx, s.retries, func(ctx context.Context) error {
		b, err := s.Get(ctx, caller, bundleID)
		if err != nil {
			return err
		}
		if b.Status != models.BundleOpen {
			return fmt.Errorf("%w: bundle %s is %s", ErrNotOpen, bundleID, b.Status)
		}

		ok, err := needed(b)
		if err != nil || !ok {
			return err
		}
		_, err = apply(ctx, b)
		return err
	})
	if err != nil {
		return models.Bundle{}, err
	}
	return s.Get(ctx, caller, bundleID)
}

// Seal freezes the manifest of an open bundle. Every member must be sealed;
// the manifest records each member's content hash and chain tip as read in
// this call.
func (s *bundleService) Seal(ctx context.Context, caller models.Caller, bundleID string) (string, error) {
	log := logger.FromContext(ctx)

	var manifestHash string
	err := retryOnConflict(ctx, s.retries, func(ctx context.Context) error {
		b, err := s.Get(ctx, caller, bundleID)
		if err != nil {
			return err
		}
		if b.Status != models.BundleOpen {
			return fmt.Errorf("%w: bundle %s is %s", ErrAlreadySealed, bundleID, b.Status)
		}
		if len(b.Items) == 0 {
			return fmt.Errorf("%w: bundle %s", ErrBundleEmpty, bundleID)
		}

		items := make([]models.ManifestItem, 0, len(b.Items))
		for _, objectID := range b.Items {
			obj, err := s.objects.GetObject(ctx, caller.TenantID, objectID)
			if err != nil {
				if errors.Is(err, store.ErrObjectNotFound) {
					return fmt.Errorf("%w: member %s: %w", ErrNotFound, objectID, err)
				}
				return err
			}
			if obj.ChainStatus != models.StatusSealed || obj.ContentHash == nil {
				return fmt.Errorf("%w: %s is %s", ErrBundleItemNotSealed, objectID, obj.ChainStatus)
			}
			items = append(items, models.ManifestItem{
				ObjectID:     obj.ID,
				ContentHash:  *obj.ContentHash,
				TipEventHash: obj.TipHash,
				TipSeq:       obj.TipSeq,
			})
		}

		manifest, err := verify.BuildManifest(b.ID, b.TenantID, b.Purpose, chain.Timestamp(s.now()), items)
		if err != nil {
			return err
		}
		hash, err := verify.ManifestHash(manifest)
		if err != nil {
			return err
		}

		err = s.bundles.SealBundle(ctx, caller.TenantID, bundleID, b.Version, manifest, hash)
		if errors.Is(err, store.ErrBundleNotOpen) {
			return fmt.Errorf("%w: bundle %s: %w", ErrAlreadySealed, bundleID, err)
		}
		if err != nil {
			return err
		}
		manifestHash = hash
		return nil
	})
	if err != nil {
		if !IsDomainError(err) {
			log.Err(err).Str("func", "bundleService.Seal").Str("bundle_id", bundleID).Msg("failed to seal bundle")
		}
		return "", err
	}

	log.Info().Str("bundle_id", bundleID).Str("manifest_hash", manifestHash).Msg("bundle sealed")
	return manifestHash, nil
}

// Export builds the self-verifying artifact of a sealed bundle: the frozen
// manifest, its hash and the full current chain of every member.
func (s *bundleService) Export(ctx context.Context, caller models.Caller, bundleID string) (models.ExportResult, error) {
	log := logger.FromContext(ctx)

	b, err := s.Get(ctx, caller, bundleID)
	if err != nil {
		return models.ExportResult{}, err
	}
	if b.Status == models.BundleOpen || b.Manifest == nil || b.ManifestHash == nil {
		return models.ExportResult{}, fmt.Errorf("%w: bundle %s", ErrNotSealed, bundleID)
	}

	chains := make(map[string][]models.CustodyEvent, len(b.Manifest.Items))
	for _, item := range b.Manifest.Items {
		events, err := s.objects.ListEvents(ctx, caller.TenantID, item.ObjectID)
		if err != nil {
			log.Err(err).Str("func", "bundleService.Export").Str("object_id", item.ObjectID).Msg("failed to list member events")
			return models.ExportResult{}, err
		}
		chains[item.ObjectID] = events
	}

	exportedAt := chain.Timestamp(s.now())
	data, err := artifact.Encode(models.ExportArtifact{
		FormatVersion: artifact.FormatVersion,
		Manifest:      *b.Manifest,
		ManifestHash:  *b.ManifestHash,
		Chains:        chains,
		ExportedAt:    exportedAt,
	})
	if err != nil {
		log.Err(err).Str("func", "bundleService.Export").Str("bundle_id", bundleID).Msg("failed to encode artifact")
		return models.ExportResult{}, err
	}

	pointer, err := s.blobs.Put(ctx, data)
	if err != nil {
		log.Err(err).Str("func", "bundleService.Export").Str("bundle_id", bundleID).Msg("failed to store artifact")
		return models.ExportResult{}, err
	}
	if err = s.bundles.MarkExported(ctx, caller.TenantID, bundleID, pointer, exportedAt); err != nil {
		log.Err(err).Str("func", "bundleService.Export").Str("bundle_id", bundleID).Msg("failed to record export")
		return models.ExportResult{}, err
	}

	log.Info().Str("bundle_id", bundleID).Str("pointer", pointer).Int("size", len(data)).Msg("bundle exported")
	return models.ExportResult{
		BundleID:     bundleID,
		ManifestHash: *b.ManifestHash,
		Pointer:      pointer,
		Size:         len(data),
		Data:         data,
	}, nil
}
