// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package artifact encodes the portable export of a sealed bundle.
//
// The artifact is CBOR with Core Deterministic Encoding (RFC 8949 §4.2),
// compressed with zstd. The same artifact value always produces identical
// bytes, so the hash of an export file is itself reproducible.
package artifact

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/MKhiriev/go-custody-ledger/models"
	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// FormatVersion is written into every artifact.
const FormatVersion = 1

// MediaType is the content type of an encoded artifact.
const MediaType = "application/cbor+zstd"

// maxDecodedSize bounds decompression of untrusted artifact files.
const maxDecodedSize = 1 << 30

var (
	// ErrUnsupportedVersion is returned for artifacts of an unknown format.
	ErrUnsupportedVersion = errors.New("unsupported artifact format version")
	// ErrDecode is returned when artifact bytes cannot be decoded.
	ErrDecode = errors.New("cannot decode artifact")
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// keep nanoseconds: event hashes cover the RFC 3339 rendering of event_at
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("artifact: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("artifact: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("artifact: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
	if err != nil {
		panic("artifact: zstd decoder initialization failed: " + err.Error())
	}
}

// Encode serializes a into its compressed deterministic form.
func Encode(a models.ExportArtifact) ([]byte, error) {
	if a.FormatVersion == 0 {
		a.FormatVersion = FormatVersion
	}
	raw, err := encMode.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("cbor encode artifact: %w", err)
	}
	return zstdEncoder.EncodeAll(raw, nil), nil
}

// Decode parses artifact bytes produced by [Encode].
func Decode(data []byte) (models.ExportArtifact, error) {
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return models.ExportArtifact{}, fmt.Errorf("%w: zstd: %w", ErrDecode, err)
	}

	var a models.ExportArtifact
	if err = decMode.Unmarshal(raw, &a); err != nil {
		return models.ExportArtifact{}, fmt.Errorf("%w: cbor: %w", ErrDecode, err)
	}
	if a.FormatVersion != FormatVersion {
		return models.ExportArtifact{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, a.FormatVersion)
	}

	return a, nil
}
