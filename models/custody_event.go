// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"time"
)

// EventType names one entry kind of a custody chain.
type EventType string

const (
	EventCreated       EventType = "created"
	EventBytesUploaded EventType = "bytes_uploaded"
	EventFetched       EventType = "fetched"
	EventSealed        EventType = "sealed"
	EventSuperseded    EventType = "superseded"
	EventRevoked       EventType = "revoked"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventCreated, EventBytesUploaded, EventFetched, EventSealed, EventSuperseded, EventRevoked:
		return true
	}
	return false
}

// CustodyEvent is one immutable entry in an object's hash-linked ledger.
//
// EventHash = SHA-256(PrevEventHash || canonical({event_type, event_at, payload})).
// PrevEventHash is empty for the first event of a chain.
type CustodyEvent struct {
	ObjectID      string          `json:"object_id" cbor:"object_id"`
	TenantID      string          `json:"tenant_id" cbor:"tenant_id"`
	Seq           int64           `json:"seq" cbor:"seq"`
	EventType     EventType       `json:"event_type" cbor:"event_type"`
	EventAt       time.Time       `json:"event_at" cbor:"event_at"`
	Payload       json.RawMessage `json:"payload" cbor:"payload"`
	PrevEventHash string          `json:"prev_event_hash" cbor:"prev_event_hash"`
	EventHash     string          `json:"event_hash" cbor:"event_hash"`
}

// EventPayload is the closed set of typed event bodies.
type EventPayload interface {
	EventType() EventType
}

// CreatedPayload records the initial state of an object.
type CreatedPayload struct {
	SourceKind     SourceKind `json:"source_kind"`
	ContentHash    *string    `json:"content_hash"`
	PendingBytes   bool       `json:"pending_bytes"`
	ScopeID        *string    `json:"scope_id,omitempty"`
	SourceURL      *string    `json:"source_url,omitempty"`
	OccurredAt     *time.Time `json:"occurred_at,omitempty"`
	CapturedAt     *time.Time `json:"captured_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CreatedBy      string     `json:"created_by"`
	DeviceID       string     `json:"device_id,omitempty"`
	ItemRequestKey string     `json:"item_request_key,omitempty"`
}

// BytesUploadedPayload records completion of pending bytes.
type BytesUploadedPayload struct {
	ContentHash string `json:"content_hash"`
	ContentSize int64  `json:"content_size"`
	UploadedBy  string `json:"uploaded_by"`
	DeviceID    string `json:"device_id,omitempty"`
}

// FetchedPayload records retrieval of a document from its source URL.
type FetchedPayload struct {
	ContentHash string `json:"content_hash"`
	ContentSize int64  `json:"content_size"`
	SourceURL   string `json:"source_url"`
	HTTPStatus  int    `json:"http_status"`
	MediaType   string `json:"media_type,omitempty"`
	FetchedBy   string `json:"fetched_by"`
}

// SealedPayload records the content hash frozen by sealing.
type SealedPayload struct {
	ContentHash string `json:"content_hash"`
	SealedBy    string `json:"sealed_by"`
}

// SupersededPayload references the correcting object.
type SupersededPayload struct {
	ReplacementID string `json:"replacement_id"`
	Reason        string `json:"reason"`
	SupersededBy  string `json:"superseded_by"`
}

// RevokedPayload records a terminal revocation.
type RevokedPayload struct {
	Reason    string `json:"reason"`
	RevokedBy string `json:"revoked_by"`
}

func (CreatedPayload) EventType() EventType       { return EventCreated }
func (BytesUploadedPayload) EventType() EventType { return EventBytesUploaded }
func (FetchedPayload) EventType() EventType       { return EventFetched }
func (SealedPayload) EventType() EventType        { return EventSealed }
func (SupersededPayload) EventType() EventType    { return EventSuperseded }
func (RevokedPayload) EventType() EventType       { return EventRevoked }
