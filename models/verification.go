package models

// ChainVerification reports whether an object's custody chain recomputes.
// FirstFailureIndex is -1 for a valid chain and otherwise the position of the
// first event that does not verify; every event before it verified.
type ChainVerification struct {
	ObjectID          string `json:"object_id"`
	Valid             bool   `json:"valid"`
	FirstFailureIndex int    `json:"first_failure_index"`
	Reason            string `json:"reason,omitempty"`
	Checked           int    `json:"checked"`
	TipHash           string `json:"tip_hash,omitempty"`
}

// BundleVerification reports the manifest check plus every member chain.
type BundleVerification struct {
	BundleID             string              `json:"bundle_id"`
	Valid                bool                `json:"valid"`
	ManifestHashValid    bool                `json:"manifest_hash_valid"`
	RecomputedHash       string              `json:"recomputed_hash"`
	Reason               string              `json:"reason,omitempty"`
	Items                []ChainVerification `json:"items"`
	FirstFailingObjectID string              `json:"first_failing_object_id,omitempty"`
}
