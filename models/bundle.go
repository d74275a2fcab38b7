// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"time"
)

// BundleStatus is the lifecycle state of a bundle: open -> sealed -> exported.
type BundleStatus string

const (
	BundleOpen     BundleStatus = "open"
	BundleSealed   BundleStatus = "sealed"
	BundleExported BundleStatus = "exported"
)

// Bundle groups evidence objects for one external purpose (a claim, a
// defense pack). Items may change only while the bundle is open; the
// manifest is frozen at seal time and never rewritten afterwards.
type Bundle struct {
	ID       string          `json:"id"`
	TenantID string          `json:"tenant_id"`
	Purpose  string          `json:"purpose"`
	Metadata json.RawMessage `json:"metadata,omitempty"`

	Status BundleStatus `json:"status"`
	// Version is bumped on every item change and guards sealing against a
	// concurrent add or remove.
	Version int64 `json:"version"`

	Items []string `json:"items"`

	Manifest     *Manifest  `json:"manifest,omitempty"`
	ManifestHash *string    `json:"manifest_hash,omitempty"`
	SealedAt     *time.Time `json:"sealed_at,omitempty"`

	ExportPointer *string    `json:"export_pointer,omitempty"`
	ExportedAt    *time.Time `json:"exported_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Manifest is the frozen description of a sealed bundle. Bundle metadata is
// deliberately absent so it cannot influence the manifest hash.
type Manifest struct {
	BundleID  string         `json:"bundle_id" cbor:"bundle_id"`
	TenantID  string         `json:"tenant_id" cbor:"tenant_id"`
	Purpose   string         `json:"purpose" cbor:"purpose"`
	SealedAt  time.Time      `json:"sealed_at" cbor:"sealed_at"`
	Items     []ManifestItem `json:"items" cbor:"items"`
	ItemsRoot string         `json:"items_root" cbor:"items_root"`
}

// ManifestItem is one member object as it stood when the manifest froze.
type ManifestItem struct {
	ObjectID     string `json:"object_id" cbor:"object_id"`
	ContentHash  string `json:"content_hash" cbor:"content_hash"`
	TipEventHash string `json:"tip_event_hash" cbor:"tip_event_hash"`
	TipSeq       int64  `json:"tip_seq" cbor:"tip_seq"`
}

// ExportArtifact is the portable, self-verifying form of a sealed bundle.
type ExportArtifact struct {
	FormatVersion int                       `cbor:"format_version"`
	Manifest      Manifest                  `cbor:"manifest"`
	ManifestHash  string                    `cbor:"manifest_hash"`
	Chains        map[string][]CustodyEvent `cbor:"chains"`
	ExportedAt    time.Time                 `cbor:"exported_at"`
}

// ExportResult is returned to the caller of a bundle export.
type ExportResult struct {
	BundleID     string `json:"bundle_id"`
	ManifestHash string `json:"manifest_hash"`
	Pointer      string `json:"pointer"`
	Size         int    `json:"size"`
	Data         []byte `json:"-"`
}
