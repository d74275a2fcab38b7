// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package verify

import (
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/MKhiriev/go-custody-ledger/internal/canonical"
	"github.com/MKhiriev/go-custody-ledger/internal/hashing"
	"github.com/MKhiriev/go-custody-ledger/models"
)

// BuildManifest freezes items into a manifest. Items are sorted by object id
// and the items root is computed over their leaf hashes.
func BuildManifest(bundleID, tenantID, purpose string, sealedAt time.Time, items []models.ManifestItem) (models.Manifest, error) {
	sorted := make([]models.ManifestItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ObjectID < sorted[j].ObjectID })

	root, err := ItemsRoot(sorted)
	if err != nil {
		return models.Manifest{}, err
	}

	return models.Manifest{
		BundleID:  bundleID,
		TenantID:  tenantID,
		Purpose:   purpose,
		SealedAt:  sealedAt.UTC().Truncate(time.Microsecond),
		Items:     sorted,
		ItemsRoot: root,
	}, nil
}

// ManifestHash is hex(SHA-256(canonical(manifest))).
func ManifestHash(m models.Manifest) (string, error) {
	b, err := canonical.Canonicalize(m)
	if err != nil {
		return "", fmt.Errorf("canonicalize manifest: %w", err)
	}
	return hashing.HashBytes(b), nil
}

// ItemLeaf is the Merkle leaf of one manifest item.
func ItemLeaf(item models.ManifestItem) (string, error) {
	b, err := canonical.Canonicalize(item)
	if err != nil {
		return "", err
	}
	return hashing.HashBytes(b), nil
}

// ItemsRoot is the Merkle root over the leaves of items in their given order.
func ItemsRoot(items []models.ManifestItem) (string, error) {
	leaves := make([]string, 0, len(items))
	for _, item := range items {
		leaf, err := ItemLeaf(item)
		if err != nil {
			return "", err
		}
		leaves = append(leaves, leaf)
	}
	return MerkleRoot(leaves), nil
}

// MerkleRoot computes a binary Merkle root from hex leaf hashes. An odd node
// is paired with itself. An empty or malformed input yields "".
func MerkleRoot(hashes []string) string {
	if len(hashes) == 0 {
		return ""
	}
	level := make([][]byte, 0, len(hashes))
	for _, h := range hashes {
		b, err := hex.DecodeString(h)
		if err != nil {
			return ""
		}
		level = append(level, b)
	}
	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			right := level[i]
			if i+1 < len(level) {
				right = level[i+1]
			}
			sum, _ := hex.DecodeString(hashing.HashBytes(level[i], right))
			next = append(next, sum)
		}
		level = next
	}
	return hex.EncodeToString(level[0])
}

// Manifest checks that hash is the hash of m and that the items root
// matches the items. It returns the recomputed hash and a failure reason,
// empty when the manifest verifies.
func Manifest(m models.Manifest, hash string) (string, string) {
	recomputed, err := ManifestHash(m)
	if err != nil {
		return "", err.Error()
	}
	root, err := ItemsRoot(m.Items)
	if err != nil {
		return recomputed, err.Error()
	}
	if root != m.ItemsRoot {
		return recomputed, ReasonItemsRoot
	}
	if recomputed != hash {
		return recomputed, ReasonManifestHash
	}
	return recomputed, ""
}

// Bundle verifies a sealed manifest against the full chain of every member.
// Each member chain must verify, must still contain the tip frozen in the
// manifest, and must record the frozen content hash at or before that tip.
// Chains may have grown since sealing.
func Bundle(m models.Manifest, hash string, chains map[string][]models.CustodyEvent) models.BundleVerification {
	res := models.BundleVerification{BundleID: m.BundleID, Items: make([]models.ChainVerification, 0, len(m.Items))}

	recomputed, reason := Manifest(m, hash)
	res.RecomputedHash = recomputed
	res.ManifestHashValid = reason == ""
	if reason != "" {
		res.Reason = reason
	}

	for _, item := range m.Items {
		events, ok := chains[item.ObjectID]
		var cv models.ChainVerification
		switch {
		case !ok:
			cv = fail(models.ChainVerification{ObjectID: item.ObjectID}, 0, ReasonMissingChain)
		default:
			cv = Chain(events)
			cv.ObjectID = item.ObjectID
			if cv.Valid && !ContainsTip(events, item.TipEventHash, item.TipSeq) {
				cv = fail(cv, int(item.TipSeq), ReasonFrozenTipAbsent)
			}
			if cv.Valid && !RecordsContentHash(events, item.ContentHash, item.TipSeq) {
				cv = fail(cv, int(item.TipSeq), ReasonContentDrift)
			}
		}

		if !cv.Valid && res.FirstFailingObjectID == "" {
			res.FirstFailingObjectID = item.ObjectID
			if res.Reason == "" {
				res.Reason = failf("%s: %s", item.ObjectID, cv.Reason)
			}
		}
		res.Items = append(res.Items, cv)
	}

	res.Valid = res.ManifestHashValid && res.FirstFailingObjectID == ""
	return res
}
