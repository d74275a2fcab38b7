package models

import (
	"encoding/json"
	"time"
)

// CreateRequest describes a live capture. A nil Content creates the object
// with pending bytes and no hash.
type CreateRequest struct {
	SourceKind SourceKind
	ScopeID    *string
	SourceURL  *string
	Claimed    ClaimedTimestamps
	Content    Content
	ClientHash *string
}

// CreateEvidenceRequest is the HTTP body of a live capture.
type CreateEvidenceRequest struct {
	SourceKind SourceKind      `json:"source_kind"`
	ScopeID    *string         `json:"scope_id,omitempty"`
	SourceURL  *string         `json:"source_url,omitempty"`
	OccurredAt *time.Time      `json:"occurred_at,omitempty"`
	CapturedAt *time.Time      `json:"captured_at,omitempty"`
	Pending    bool            `json:"pending"`
	Text       string          `json:"text,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Data       []byte          `json:"data,omitempty"`
	ClientHash *string         `json:"client_hash,omitempty"`
}

// ToCreateRequest converts the HTTP body into a service request.
func (r CreateEvidenceRequest) ToCreateRequest() (CreateRequest, bool) {
	req := CreateRequest{
		SourceKind: r.SourceKind,
		ScopeID:    r.ScopeID,
		SourceURL:  r.SourceURL,
		Claimed:    ClaimedTimestamps{OccurredAt: r.OccurredAt, CapturedAt: r.CapturedAt},
		ClientHash: r.ClientHash,
	}
	if r.Pending {
		return req, r.SourceKind.Valid()
	}

	var data []byte
	switch r.SourceKind {
	case AuthoredNote:
		data = []byte(r.Text)
	case StructuredSnapshot, ExternalFeedItem:
		data = r.Payload
	default:
		data = r.Data
	}
	content, ok := ContentFromBytes(r.SourceKind, data)
	if !ok {
		return CreateRequest{}, false
	}
	if doc, isDoc := content.(DocumentContent); isDoc && r.SourceURL != nil {
		doc.URL = *r.SourceURL
		content = doc
	}
	req.Content = content
	return req, true
}

// SupersedeRequest is the HTTP body of a supersede call.
type SupersedeRequest struct {
	ReplacementID string `json:"replacement_id"`
	Reason        string `json:"reason"`
}

// RevokeRequest is the HTTP body of a revoke call.
type RevokeRequest struct {
	Reason string `json:"reason"`
}

// CreateBundleRequest is the HTTP body of a bundle creation.
type CreateBundleRequest struct {
	Purpose  string          `json:"purpose"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// AddBundleItemRequest is the HTTP body of adding an item to a bundle.
type AddBundleItemRequest struct {
	ObjectID string `json:"object_id"`
}

// SealBundleResponse is returned after a bundle is sealed.
type SealBundleResponse struct {
	BundleID     string `json:"bundle_id"`
	ManifestHash string `json:"manifest_hash"`
}

// EventsResponse lists the custody chain of one object.
type EventsResponse struct {
	ObjectID string         `json:"object_id"`
	Events   []CustodyEvent `json:"events"`
	Length   int            `json:"length"`
}

// ErrorResponse is the JSON error body returned by the HTTP API.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
