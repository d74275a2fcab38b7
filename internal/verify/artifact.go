package verify

import (
	"fmt"

	"github.com/MKhiriev/go-custody-ledger/internal/artifact"
	"github.com/MKhiriev/go-custody-ledger/models"
)

// Artifact verifies an exported bundle artifact fully offline: the manifest
// hash, the items root and every member chain carried in the file.
func Artifact(data []byte) (models.BundleVerification, error) {
	a, err := artifact.Decode(data)
	if err != nil {
		return models.BundleVerification{}, fmt.Errorf("%w: %w", ErrMalformedArtifact, err)
	}

	return Bundle(a.Manifest, a.ManifestHash, a.Chains), nil
}
