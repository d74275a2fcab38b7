// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package chain links custody events into a per-object hash chain.
//
// Every event hash covers the previous event hash and the canonical form of
// {event_type, event_at, payload}:
//
//	event_hash = hex(SHA-256(prev_event_hash || canonical(material)))
//
// The first event of a chain uses the empty string as prev_event_hash.
// The package is pure: persistence and the compare-and-set on the chain tip
// belong to the store.
package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-custody-ledger/internal/canonical"
	"github.com/MKhiriev/go-custody-ledger/internal/hashing"
	"github.com/MKhiriev/go-custody-ledger/models"
)

// Genesis is the prev_event_hash of the first event of every chain.
const Genesis = ""

// ErrUnknownEventType is returned when an event type is outside the closed set.
var ErrUnknownEventType = errors.New("unknown event type")

// material is the hashed projection of an event.
type material struct {
	EventType models.EventType `json:"event_type"`
	EventAt   string           `json:"event_at"`
	Payload   json.RawMessage  `json:"payload"`
}

// Timestamp normalizes an event time the way it is stored and hashed:
// UTC with microsecond precision.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// FormatTime renders an event time for hashing.
func FormatTime(t time.Time) string {
	return Timestamp(t).Format(time.RFC3339Nano)
}

// Material returns the canonical bytes covered by an event hash, without
// the previous hash prefix.
func Material(eventType models.EventType, eventAt time.Time, payload json.RawMessage) ([]byte, error) {
	if !eventType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	return canonical.Canonicalize(material{
		EventType: eventType,
		EventAt:   FormatTime(eventAt),
		Payload:   payload,
	})
}

// Hash computes the event hash linking an event to prevHash.
func Hash(prevHash string, eventType models.EventType, eventAt time.Time, payload json.RawMessage) (string, error) {
	m, err := Material(eventType, eventAt, payload)
	if err != nil {
		return "", err
	}

	return hashing.HashBytes([]byte(prevHash), m), nil
}

// Recompute returns the hash an event should carry given prevHash.
func Recompute(prevHash string, event models.CustodyEvent) (string, error) {
	return Hash(prevHash, event.EventType, event.EventAt, event.Payload)
}

// Next builds the event that extends tip. The payload is stored in its
// canonical form so a verifier recomputes the exact bytes that were hashed.
func Next(tip models.ChainTip, tenantID string, payload models.EventPayload, eventAt time.Time) (models.CustodyEvent, error) {
	raw, err := canonical.Canonicalize(payload)
	if err != nil {
		return models.CustodyEvent{}, fmt.Errorf("canonicalize %s payload: %w", payload.EventType(), err)
	}

	seq := int64(0)
	if tip.Hash != Genesis {
		seq = tip.Seq + 1
	}
	at := Timestamp(eventAt)

	h, err := Hash(tip.Hash, payload.EventType(), at, raw)
	if err != nil {
		return models.CustodyEvent{}, err
	}

	return models.CustodyEvent{
		ObjectID:      tip.ObjectID,
		TenantID:      tenantID,
		Seq:           seq,
		EventType:     payload.EventType(),
		EventAt:       at,
		Payload:       raw,
		PrevEventHash: tip.Hash,
		EventHash:     h,
	}, nil
}

// Advance returns the tip after event has been appended.
func Advance(event models.CustodyEvent) models.ChainTip {
	return models.ChainTip{ObjectID: event.ObjectID, Hash: event.EventHash, Seq: event.Seq}
}

// DecodePayload decodes the payload of event into dst.
func DecodePayload(event models.CustodyEvent, dst models.EventPayload) error {
	if dst.EventType() != event.EventType {
		return fmt.Errorf("%w: payload %s for event %s", ErrUnknownEventType, dst.EventType(), event.EventType)
	}
	return json.Unmarshal(event.Payload, dst)
}
