package validators

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"

	"github.com/MKhiriev/go-custody-ledger/internal/hashing"
	"github.com/MKhiriev/go-custody-ledger/models"
)

// Field names accepted by [EvidenceValidator.Validate] to restrict
// validation to a subset of fields.
const (
	FieldSourceKind      = "source_kind"
	FieldClientHash      = "client_hash"
	FieldSourceURL       = "source_url"
	FieldScopeID         = "scope_id"
	FieldBatchRequestKey = "batch_request_key"
	FieldItemRequestKey  = "item_request_key"
	FieldItems           = "items"
	FieldTarget          = "target_object_id"
	FieldPurpose         = "purpose"
	FieldMetadata        = "metadata"
	FieldReplacementID   = "replacement_id"
	FieldReason          = "reason"
)

// EvidenceValidator checks the shape of capture, batch and bundle requests.
// It never looks at stored state; lifecycle rules belong to the services.
type EvidenceValidator struct{}

// NewEvidenceValidator returns an [EvidenceValidator] as a [Validator].
func NewEvidenceValidator() Validator {
	return &EvidenceValidator{}
}

// Validate dispatches on the dynamic type of obj. Value and pointer forms
// of every supported model are accepted:
//   - models.CreateRequest
//   - models.OfflineBatch and models.OfflineItem
//   - models.CreateBundleRequest
//   - models.SupersedeRequest and models.RevokeRequest
func (v *EvidenceValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.CreateRequest:
		return v.validateCreateRequest(value, fields...)
	case *models.CreateRequest:
		return v.validateCreateRequest(*value, fields...)

	case models.OfflineBatch:
		return v.validateBatch(value, fields...)
	case *models.OfflineBatch:
		return v.validateBatch(*value, fields...)

	case models.OfflineItem:
		return v.validateItem(value, fields...)
	case *models.OfflineItem:
		return v.validateItem(*value, fields...)

	case models.CreateBundleRequest:
		return v.validateBundleRequest(value, fields...)
	case *models.CreateBundleRequest:
		return v.validateBundleRequest(*value, fields...)

	case models.SupersedeRequest:
		return v.validateSupersede(value, fields...)
	case *models.SupersedeRequest:
		return v.validateSupersede(*value, fields...)

	case models.RevokeRequest:
		return v.validateRevoke(value, fields...)
	case *models.RevokeRequest:
		return v.validateRevoke(*value, fields...)

	default:
		return ErrUnsupportedType
	}
}

func (v *EvidenceValidator) validateCreateRequest(req models.CreateRequest, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldSourceKind, FieldClientHash, FieldSourceURL, FieldScopeID}
	}

	for _, f := range fields {
		switch f {
		case FieldSourceKind:
			if !req.SourceKind.Valid() {
				return ErrInvalidSourceKind
			}
			if req.Content != nil && req.Content.Kind() != req.SourceKind {
				return ErrInvalidSourceKind
			}
		case FieldClientHash:
			if err := validateClientHash(req.ClientHash); err != nil {
				return err
			}
		case FieldSourceURL:
			if err := validateSourceURL(req.SourceKind, req.SourceURL); err != nil {
				return err
			}
		case FieldScopeID:
			if req.ScopeID != nil && *req.ScopeID == "" {
				return ErrEmptyScopeID
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *EvidenceValidator) validateBatch(batch models.OfflineBatch, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldBatchRequestKey, FieldItems}
	}

	for _, f := range fields {
		switch f {
		case FieldBatchRequestKey:
			if batch.BatchRequestKey == "" {
				return ErrEmptyBatchRequestKey
			}
		case FieldItems:
			if len(batch.Items) == 0 {
				return ErrEmptyItems
			}
			if batch.Length != 0 && batch.Length != len(batch.Items) {
				return ErrLengthMismatch
			}
			seen := make(map[string]struct{}, len(batch.Items))
			for _, item := range batch.Items {
				if item.ItemRequestKey == "" {
					return ErrEmptyItemRequestKey
				}
				if _, dup := seen[item.ItemRequestKey]; dup {
					return ErrDuplicateItemKey
				}
				seen[item.ItemRequestKey] = struct{}{}
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

// validateItem checks one offline item. Item failures are reported per item
// by the reconciler and never reject the whole batch.
func (v *EvidenceValidator) validateItem(item models.OfflineItem, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldItemRequestKey, FieldSourceKind, FieldClientHash, FieldTarget}
	}

	for _, f := range fields {
		switch f {
		case FieldItemRequestKey:
			if item.ItemRequestKey == "" {
				return ErrEmptyItemRequestKey
			}
		case FieldSourceKind:
			if !item.SourceKind.Valid() {
				return ErrInvalidSourceKind
			}
		case FieldClientHash:
			if err := validateClientHash(item.ClientHash); err != nil {
				return err
			}
		case FieldSourceURL:
			if err := validateSourceURL(item.SourceKind, item.SourceURL); err != nil {
				return err
			}
		case FieldTarget:
			if item.TargetObjectID != nil && item.ScopeID != nil {
				return ErrTargetWithScopeChange
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *EvidenceValidator) validateBundleRequest(req models.CreateBundleRequest, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldPurpose, FieldMetadata}
	}

	for _, f := range fields {
		switch f {
		case FieldPurpose:
			if req.Purpose == "" {
				return ErrEmptyPurpose
			}
		case FieldMetadata:
			trimmed := bytes.TrimSpace(req.Metadata)
			if len(trimmed) == 0 {
				continue
			}
			var obj map[string]json.RawMessage
			if trimmed[0] != '{' || json.Unmarshal(trimmed, &obj) != nil {
				return ErrInvalidMetadata
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *EvidenceValidator) validateSupersede(req models.SupersedeRequest, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldReplacementID}
	}

	for _, f := range fields {
		switch f {
		case FieldReplacementID:
			if req.ReplacementID == "" {
				return ErrEmptyReplacementID
			}
		case FieldReason:
			if req.Reason == "" {
				return ErrEmptyReason
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *EvidenceValidator) validateRevoke(req models.RevokeRequest, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldReason}
	}

	for _, f := range fields {
		switch f {
		case FieldReason:
			if req.Reason == "" {
				return ErrEmptyReason
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func validateClientHash(h *string) error {
	if h != nil && !hashing.ValidHex(*h) {
		return ErrInvalidClientHash
	}
	return nil
}

func validateSourceURL(kind models.SourceKind, raw *string) error {
	if raw == nil {
		if kind == models.FetchedDocument {
			return ErrMissingSourceURL
		}
		return nil
	}

	u, err := url.Parse(*raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidSourceURL
	}
	return nil
}
