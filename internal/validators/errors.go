package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrInvalidSourceKind     = errors.New("invalid source kind")
	ErrInvalidClientHash     = errors.New("client hash must be a hex sha-256 digest")
	ErrInvalidSourceURL      = errors.New("invalid source url")
	ErrMissingSourceURL      = errors.New("fetched documents require a source url")
	ErrEmptyScopeID          = errors.New("scope id cannot be empty")
	ErrEmptyBatchRequestKey  = errors.New("batch request key is required")
	ErrEmptyItemRequestKey   = errors.New("item request key is required")
	ErrDuplicateItemKey      = errors.New("item request key repeated within a batch")
	ErrEmptyItems            = errors.New("items list cannot be empty")
	ErrLengthMismatch        = errors.New("length does not match the number of items")
	ErrEmptyPurpose          = errors.New("bundle purpose is required")
	ErrInvalidMetadata       = errors.New("bundle metadata must be a json object")
	ErrEmptyReplacementID    = errors.New("replacement id is required")
	ErrEmptyReason           = errors.New("reason is required")
	ErrTargetWithScopeChange = errors.New("an item completing an existing object cannot set its scope")
)
