// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package hashing computes content-identity hashes of evidence.
//
// The content bytes of every source kind are defined explicitly:
//   - authored_note: UTF-8 bytes of the note text only;
//   - fetched_document: the raw bytes exactly as received;
//   - stored_blob: the raw uploaded bytes;
//   - structured_snapshot and external_feed_item: canonical JSON of the payload.
//
// Derived data (extracted text, file names, thumbnails) never participates.
// The functions are pure, so live capture and offline reconciliation always
// agree on the hash of the same content.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"
	"sync"

	"github.com/MKhiriev/go-custody-ledger/internal/canonical"
	"github.com/MKhiriev/go-custody-ledger/models"
)

var (
	// ErrUnknownContent is returned for a nil or unknown content variant.
	ErrUnknownContent = errors.New("unknown content variant")

	// ErrInvalidPayload is returned when a structured payload is not valid JSON.
	ErrInvalidPayload = errors.New("structured payload is not valid json")
)

// hasherPool reuses SHA-256 states in the hot hashing paths.
var hasherPool = sync.Pool{
	New: func() any {
		return sha256.New()
	},
}

// ContentBytes returns the bytes that define the identity of content.
func ContentBytes(content models.Content) ([]byte, error) {
	switch c := content.(type) {
	case models.NoteContent:
		return []byte(c.Text), nil
	case models.DocumentContent:
		return c.Raw, nil
	case models.BlobContent:
		return c.Raw, nil
	case models.SnapshotContent:
		return canonicalPayload(c.Payload)
	case models.FeedItemContent:
		return canonicalPayload(c.Payload)
	}

	return nil, ErrUnknownContent
}

// ContentHash returns the hex SHA-256 of the content bytes of content.
func ContentHash(content models.Content) (string, error) {
	b, err := ContentBytes(content)
	if err != nil {
		return "", err
	}

	return HashBytes(b), nil
}

// HashBytes returns the lowercase hex SHA-256 digest of the concatenation
// of parts.
func HashBytes(parts ...[]byte) string {
	h := hasherPool.Get().(hash.Hash)
	h.Reset()

	for _, p := range parts {
		h.Write(p)
	}
	sum := h.Sum(nil)

	h.Reset()
	hasherPool.Put(h)

	return hex.EncodeToString(sum)
}

// Matches reports whether a client-asserted hash equals the computed one.
// Hex case is ignored; any other difference is a mismatch.
func Matches(asserted, computed string) bool {
	return strings.EqualFold(strings.TrimSpace(asserted), computed)
}

// ValidHex reports whether s looks like a hex SHA-256 digest.
func ValidHex(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func canonicalPayload(payload []byte) ([]byte, error) {
	b, err := canonical.CanonicalizeJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return b, nil
}
