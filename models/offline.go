// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"time"
)

// OfflineBatch is a unit of work submitted by a device after a period of
// disconnection. It is idempotent on (tenant, DeviceID, BatchRequestKey).
type OfflineBatch struct {
	DeviceID        string        `json:"device_id"`
	BatchRequestKey string        `json:"batch_request_key"`
	Items           []OfflineItem `json:"items"`
	Length          int           `json:"length"`
}

// OfflineItem is one capture made on a device. It is idempotent on
// (tenant, ItemRequestKey) regardless of which batch carries it.
type OfflineItem struct {
	ItemRequestKey string     `json:"item_request_key"`
	SourceKind     SourceKind `json:"source_kind"`

	// Text is the note text for authored notes.
	Text string `json:"text,omitempty"`
	// Payload is the JSON payload for structured snapshots and feed items.
	Payload json.RawMessage `json:"payload,omitempty"`
	// Data is the raw bytes for stored blobs and fetched documents.
	Data []byte `json:"data,omitempty"`

	SourceURL *string `json:"source_url,omitempty"`
	ScopeID   *string `json:"scope_id,omitempty"`

	// TargetObjectID names an existing pending object whose bytes this item
	// delivers. Empty for a brand-new capture.
	TargetObjectID *string `json:"target_object_id,omitempty"`

	OccurredAt *time.Time `json:"occurred_at,omitempty"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`

	// ClientHash is the device-computed content hash, verified server-side.
	ClientHash *string `json:"client_hash,omitempty"`
}

// ContentBytes returns the raw capture data of the item for its kind.
func (i OfflineItem) ContentBytes() []byte {
	switch i.SourceKind {
	case AuthoredNote:
		return []byte(i.Text)
	case StructuredSnapshot, ExternalFeedItem:
		return i.Payload
	default:
		return i.Data
	}
}

// ItemOutcome is the result class of one reconciled item.
type ItemOutcome string

const (
	OutcomeCreatedNew        ItemOutcome = "created_new"
	OutcomeAlreadyApplied    ItemOutcome = "already_applied"
	OutcomeCompletedExisting ItemOutcome = "completed_existing"
	OutcomeRejected          ItemOutcome = "rejected"
)

// ItemResult is the recorded outcome of one offline item.
type ItemResult struct {
	ItemRequestKey string      `json:"item_request_key"`
	Outcome        ItemOutcome `json:"outcome"`
	ObjectID       string      `json:"object_id,omitempty"`
	ContentHash    string      `json:"content_hash,omitempty"`
	ErrorCode      string      `json:"error_code,omitempty"`
}

// BatchResult is the response to a batch submission. Items holds the per-item
// results exactly as they were first recorded, so replays are byte-identical.
type BatchResult struct {
	BatchRequestKey string          `json:"batch_request_key"`
	FromCache       bool            `json:"from_cache"`
	Items           json.RawMessage `json:"items"`
}

// DecodeItems decodes the recorded per-item results.
func (r BatchResult) DecodeItems() ([]ItemResult, error) {
	var items []ItemResult
	if err := json.Unmarshal(r.Items, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// BatchRecord is the persisted outcome of a batch keyed by
// (TenantID, DeviceID, BatchRequestKey).
type BatchRecord struct {
	TenantID        string
	DeviceID        string
	BatchRequestKey string
	Fingerprint     string
	Results         []byte
	RecordedAt      time.Time
}

// ItemKey records which object an offline item resolved to. It is written
// in the same transaction as the object change it describes.
type ItemKey struct {
	TenantID       string      `json:"tenant_id"`
	ItemRequestKey string      `json:"item_request_key"`
	ObjectID       string      `json:"object_id"`
	Outcome        ItemOutcome `json:"outcome"`
	ContentHash    string      `json:"content_hash,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}
