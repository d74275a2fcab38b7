// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package verify recomputes custody chains and bundle manifests without any
// access to the storing server. Everything here is pure so the same code
// runs in the engine, in the device agent and in third-party tooling.
package verify

import (
	"errors"
	"fmt"
	"sort"

	"github.com/MKhiriev/go-custody-ledger/internal/chain"
	"github.com/MKhiriev/go-custody-ledger/models"
)

// Failure reasons reported by [Chain].
const (
	ReasonEmpty           = "empty chain"
	ReasonForeignEvent    = "event belongs to another object"
	ReasonDuplicateSeq    = "duplicate seq"
	ReasonSeqGap          = "non-contiguous seq"
	ReasonCycle           = "event hash repeats earlier event"
	ReasonPrevMismatch    = "prev_event_hash does not match recomputed predecessor"
	ReasonHashMismatch    = "event_hash does not match recomputed hash"
	ReasonUnknownType     = "unknown event type"
	ReasonTipMismatch     = "stored tip does not match recomputed chain"
	ReasonManifestHash    = "manifest hash mismatch"
	ReasonItemsRoot       = "items root mismatch"
	ReasonMissingChain    = "member chain missing"
	ReasonFrozenTipAbsent = "frozen tip not present in member chain"
	ReasonContentDrift    = "frozen content hash not recorded in member chain"
)

// ErrMalformedArtifact is returned when an export artifact cannot be decoded.
var ErrMalformedArtifact = errors.New("malformed export artifact")

// Chain verifies the custody chain of one object. Events are ordered by seq
// before checking; the stored order is not trusted. Every hash is
// recomputed from the recomputed predecessor, never from the stored one, so
// a tampered event is reported at its own index and nothing before it.
func Chain(events []models.CustodyEvent) models.ChainVerification {
	res := models.ChainVerification{FirstFailureIndex: -1}
	if len(events) == 0 {
		return fail(res, 0, ReasonEmpty)
	}

	ordered := make([]models.CustodyEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	res.ObjectID = ordered[0].ObjectID
	seen := make(map[string]struct{}, len(ordered))
	prev := chain.Genesis

	for i, ev := range ordered {
		switch {
		case ev.ObjectID != res.ObjectID:
			return fail(res, i, ReasonForeignEvent)
		case i > 0 && ev.Seq == ordered[i-1].Seq:
			return fail(res, i, ReasonDuplicateSeq)
		case ev.Seq != int64(i):
			return fail(res, i, ReasonSeqGap)
		case !ev.EventType.Valid():
			return fail(res, i, ReasonUnknownType)
		}
		if _, ok := seen[ev.EventHash]; ok {
			return fail(res, i, ReasonCycle)
		}
		if ev.PrevEventHash != prev {
			return fail(res, i, ReasonPrevMismatch)
		}

		recomputed, err := chain.Recompute(prev, ev)
		if err != nil {
			return fail(res, i, err.Error())
		}
		if recomputed != ev.EventHash {
			return fail(res, i, ReasonHashMismatch)
		}

		seen[ev.EventHash] = struct{}{}
		prev = recomputed
		res.Checked++
	}

	res.Valid = true
	res.TipHash = prev
	return res
}

// Object verifies events and additionally checks that the recomputed chain
// ends at the tip the object record claims.
func Object(obj models.EvidenceObject, events []models.CustodyEvent) models.ChainVerification {
	res := Chain(events)
	res.ObjectID = obj.ID
	if !res.Valid {
		return res
	}
	if res.TipHash != obj.TipHash || int64(res.Checked-1) != obj.TipSeq {
		return fail(res, res.Checked-1, ReasonTipMismatch)
	}
	return res
}

// ContainsTip reports whether events hold an event at seq with hash.
func ContainsTip(events []models.CustodyEvent, hash string, seq int64) bool {
	for _, ev := range events {
		if ev.Seq == seq && ev.EventHash == hash {
			return true
		}
	}
	return false
}

// RecordsContentHash reports whether the chain up to and including seq
// fixes contentHash, either at creation or through a later byte event.
func RecordsContentHash(events []models.CustodyEvent, contentHash string, seq int64) bool {
	for _, ev := range events {
		if ev.Seq > seq {
			continue
		}
		if h, ok := eventContentHash(ev); ok && h == contentHash {
			return true
		}
	}
	return false
}

func eventContentHash(ev models.CustodyEvent) (string, bool) {
	switch ev.EventType {
	case models.EventCreated:
		var p models.CreatedPayload
		if chain.DecodePayload(ev, &p) != nil || p.ContentHash == nil {
			return "", false
		}
		return *p.ContentHash, true
	case models.EventBytesUploaded:
		var p models.BytesUploadedPayload
		if chain.DecodePayload(ev, &p) != nil {
			return "", false
		}
		return p.ContentHash, true
	case models.EventFetched:
		var p models.FetchedPayload
		if chain.DecodePayload(ev, &p) != nil {
			return "", false
		}
		return p.ContentHash, true
	case models.EventSealed:
		var p models.SealedPayload
		if chain.DecodePayload(ev, &p) != nil {
			return "", false
		}
		return p.ContentHash, true
	}
	return "", false
}

func fail(res models.ChainVerification, index int, reason string) models.ChainVerification {
	res.Valid = false
	res.FirstFailureIndex = index
	res.Reason = reason
	return res
}

func failf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
