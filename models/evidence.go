// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// SourceKind is the closed set of evidence origins. The kind decides which
// bytes participate in the content hash (see package hashing).
type SourceKind string

const (
	// StoredBlob is an uploaded file; content is the raw uploaded bytes.
	StoredBlob SourceKind = "stored_blob"

	// FetchedDocument is a document retrieved from a URL; content is the raw
	// bytes exactly as received, never any extracted text.
	FetchedDocument SourceKind = "fetched_document"

	// StructuredSnapshot is a JSON payload; content is its canonical form.
	StructuredSnapshot SourceKind = "structured_snapshot"

	// AuthoredNote is free text; content is the UTF-8 note text only.
	AuthoredNote SourceKind = "authored_note"

	// ExternalFeedItem is an item received from an external feed; content is
	// the canonical JSON of the item payload.
	ExternalFeedItem SourceKind = "external_feed_item"
)

// Valid reports whether k is one of the known source kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case StoredBlob, FetchedDocument, StructuredSnapshot, AuthoredNote, ExternalFeedItem:
		return true
	}
	return false
}

// ChainStatus is the lifecycle state of an evidence object.
//
// Allowed transitions:
//
//	open   -> sealed | revoked
//	sealed -> superseded | revoked
//
// superseded and revoked are terminal.
type ChainStatus string

const (
	StatusOpen       ChainStatus = "open"
	StatusSealed     ChainStatus = "sealed"
	StatusSuperseded ChainStatus = "superseded"
	StatusRevoked    ChainStatus = "revoked"
)

// EvidenceObject is one captured artifact together with its integrity
// metadata and the current tip of its custody chain.
type EvidenceObject struct {
	ID       string  `json:"id"`
	TenantID string  `json:"tenant_id"`
	ScopeID  *string `json:"scope_id,omitempty"`

	SourceKind SourceKind `json:"source_kind"`

	// OccurredAt is the claimed real-world time of the event. Untrusted.
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
	// CapturedAt is the claimed time the bytes were obtained.
	CapturedAt *time.Time `json:"captured_at,omitempty"`
	// CreatedAt is set by the server when the record is persisted and is
	// never rewritten.
	CreatedAt time.Time `json:"created_at"`

	ContentHash  *string `json:"content_hash,omitempty"`
	ContentSize  int64   `json:"content_size"`
	PendingBytes bool    `json:"pending_bytes"`

	// BlobPointer references the bytes in the blob store for stored blobs
	// and fetched documents.
	BlobPointer *string `json:"blob_pointer,omitempty"`
	// SourceURL is the origin of a fetched document.
	SourceURL *string `json:"source_url,omitempty"`
	// InlineContent holds note text or canonical JSON for kinds that are not
	// kept in the blob store.
	InlineContent []byte `json:"inline_content,omitempty"`

	ChainStatus  ChainStatus `json:"chain_status"`
	SupersededBy *string     `json:"superseded_by,omitempty"`

	TipHash string `json:"tip_hash"`
	TipSeq  int64  `json:"tip_seq"`
}

// Tip returns the current chain tip of the object.
func (o EvidenceObject) Tip() ChainTip {
	return ChainTip{ObjectID: o.ID, Hash: o.TipHash, Seq: o.TipSeq}
}

// ChainTip identifies the last event of an object's custody chain.
// The zero Hash is the empty sentinel of a chain without events.
type ChainTip struct {
	ObjectID string
	Hash     string
	Seq      int64
}

// ClaimedTimestamps are the client-asserted times carried by a capture.
type ClaimedTimestamps struct {
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`
}
