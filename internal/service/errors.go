package service

import (
	"context"
	"errors"

	"github.com/MKhiriev/go-custody-ledger/internal/hashing"
	"github.com/MKhiriev/go-custody-ledger/internal/store"
	"github.com/MKhiriev/go-custody-ledger/internal/validators"
	"github.com/MKhiriev/go-custody-ledger/internal/verify"
)

// Domain errors. Each carries a stable code reported by [ErrorCode].
var (
	ErrHashMismatch        = errors.New("content does not match the asserted hash")
	ErrOnHold              = errors.New("evidence is under an active hold")
	ErrPendingBytes        = errors.New("content bytes have not arrived yet")
	ErrNotPending          = errors.New("content bytes were already recorded")
	ErrAlreadySealed       = errors.New("already sealed")
	ErrNotOpen             = errors.New("not open")
	ErrNotSealed           = errors.New("not sealed")
	ErrChainBroken         = errors.New("custody chain does not verify")
	ErrNotFound            = errors.New("not found")
	ErrBatchConflict       = errors.New("batch request key reused for different items")
	ErrBundleEmpty         = errors.New("bundle has no items")
	ErrBundleItemNotSealed = errors.New("bundle item is not sealed")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrFetchFailed         = errors.New("document fetch failed")

	// ErrConcurrentModification is returned when an object or bundle kept
	// changing for every retry of a compare-and-set.
	ErrConcurrentModification = errors.New("concurrent modification")
)

var (
	ErrTokenCreationFailed     = errors.New("token creation failed")
	ErrTokenIsExpiredOrInvalid = errors.New("token is expired or invalid")
	ErrVersionIsNotSpecified   = errors.New("application version is not specified")
)

// Stable error codes.
const (
	CodeHashMismatch        = "HASH_MISMATCH"
	CodeOnHold              = "ON_HOLD"
	CodePendingBytes        = "PENDING_BYTES"
	CodeNotPending          = "NOT_PENDING"
	CodeAlreadySealed       = "ALREADY_SEALED"
	CodeNotOpen             = "NOT_OPEN"
	CodeNotSealed           = "NOT_SEALED"
	CodeChainBroken         = "CHAIN_BROKEN"
	CodeNotFound            = "NOT_FOUND"
	CodeBatchConflict       = "BATCH_CONFLICT"
	CodeBundleEmpty         = "BUNDLE_EMPTY"
	CodeBundleItemNotSealed = "BUNDLE_ITEM_NOT_SEALED"
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidItem         = "INVALID_ITEM"
	CodeFetchFailed         = "FETCH_FAILED"
	CodeConflict            = "CONFLICT"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInternal            = "INTERNAL"
)

// errorCodes is checked in order; the first match wins.
var errorCodes = []struct {
	err  error
	code string
}{
	{ErrHashMismatch, CodeHashMismatch},
	{ErrOnHold, CodeOnHold},
	{ErrPendingBytes, CodePendingBytes},
	{ErrNotPending, CodeNotPending},
	{ErrAlreadySealed, CodeAlreadySealed},
	{ErrNotOpen, CodeNotOpen},
	{ErrNotSealed, CodeNotSealed},
	{ErrChainBroken, CodeChainBroken},
	{ErrBatchConflict, CodeBatchConflict},
	{ErrBundleEmpty, CodeBundleEmpty},
	{ErrBundleItemNotSealed, CodeBundleItemNotSealed},
	{ErrFetchFailed, CodeFetchFailed},
	{ErrConcurrentModification, CodeConflict},
	{ErrTokenIsExpiredOrInvalid, CodeUnauthorized},

	{ErrNotFound, CodeNotFound},
	{store.ErrObjectNotFound, CodeNotFound},
	{store.ErrBundleNotFound, CodeNotFound},
	{store.ErrBundleNotOpen, CodeNotOpen},
	{store.ErrBundleNotSealed, CodeNotSealed},

	{ErrInvalidRequest, CodeInvalidRequest},
	{hashing.ErrInvalidPayload, CodeInvalidRequest},
	{hashing.ErrUnknownContent, CodeInvalidRequest},
	{validators.ErrUnsupportedType, CodeInvalidRequest},
	{verify.ErrMalformedArtifact, CodeInvalidRequest},
}

// ErrorCode returns the stable code of err, [CodeInternal] for errors the
// engine does not classify and "" for nil.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeInternal
}

// IsDomainError reports whether err is a rejection decided by the engine
// rather than an infrastructure failure.
func IsDomainError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch ErrorCode(err) {
	case CodeInternal, CodeConflict, CodeFetchFailed:
		return false
	}
	return true
}
