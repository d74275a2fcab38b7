// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter holds the ledger's outbound collaborators.
//
// Server side, [HoldChecker] consults the external authorization layer and
// [Fetcher] retrieves documents from their source URLs. Device side,
// [ServerAdapter] submits offline batches to the ledger server.
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic error
// handling (e.g. [ErrConflict] for 409, [ErrUnauthorized] for 401).
package adapter

import (
	"context"

	"github.com/MKhiriev/go-custody-ledger/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/adapter_mock.go -package=mock

// HoldChecker answers whether a subject (an object id or a claim/scope id)
// of a tenant is under an active legal hold. Callers treat an error as
// "on hold".
type HoldChecker interface {
	IsOnHold(ctx context.Context, tenantID, subjectID string) (bool, error)
}

// Fetcher retrieves the raw bytes of a document exactly as the source served
// them. Fetch returns only after the complete body has been read, or an error.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchedDocument, error)
}

// FetchedDocument is a complete fetch result.
type FetchedDocument struct {
	Body       []byte
	StatusCode int
	MediaType  string
}

// ServerAdapter is the device agent's connection to the ledger server.
type ServerAdapter interface {
	// SetToken stores the bearer token attached to every request.
	SetToken(token string)

	// Token returns the bearer token currently stored in the adapter.
	Token() string

	// SubmitBatch sends an offline batch. Resubmitting the same batch
	// request key returns the recorded result.
	SubmitBatch(ctx context.Context, batch models.OfflineBatch) (models.BatchResult, error)

	// ExportBundle downloads the export artifact of a sealed bundle.
	ExportBundle(ctx context.Context, bundleID string) ([]byte, error)

	// Version returns the server build information.
	Version(ctx context.Context) (models.VersionResponse, error)
}
