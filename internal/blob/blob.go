// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package blob stores evidence bytes and export artifacts by content address.
//
// Pointers are opaque to callers. They have the form "blake3:<hex>", where
// the digest is a BLAKE3 keyed hash in the blob domain. Storing the same
// bytes twice yields the same pointer and a single copy.
package blob

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/zeebo/blake3"
)

const pointerPrefix = "blake3:"

var (
	// ErrNotFound is returned when no blob exists for a pointer.
	ErrNotFound = errors.New("blob not found")
	// ErrInvalidPointer is returned for pointers that were not issued by a store.
	ErrInvalidPointer = errors.New("invalid blob pointer")
	// ErrCorrupt is returned when stored bytes no longer match their address.
	ErrCorrupt = errors.New("blob content does not match its pointer")
)

// Store keeps immutable byte sequences.
type Store interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, pointer string) ([]byte, error)
}

// blobDomainKey separates blob addresses from every other BLAKE3 use.
var blobDomainKey = [32]byte{
	'c', 'u', 's', 't', 'o', 'd', 'y', '.', 'b', 'l', 'o', 'b',
}

// Address returns the pointer under which data is stored.
func Address(data []byte) string {
	h, err := blake3.NewKeyed(blobDomainKey[:])
	if err != nil {
		// key length is fixed at 32 bytes
		panic("blob: blake3 keyed hasher: " + err.Error())
	}
	_, _ = h.Write(data)
	return pointerPrefix + hex.EncodeToString(h.Sum(nil))
}

// digest extracts and validates the hex digest of a pointer.
func digest(pointer string) (string, error) {
	d, ok := strings.CutPrefix(pointer, pointerPrefix)
	if !ok || len(d) != 64 {
		return "", ErrInvalidPointer
	}
	if _, err := hex.DecodeString(d); err != nil {
		return "", ErrInvalidPointer
	}
	return d, nil
}
