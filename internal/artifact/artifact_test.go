package artifact

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/MKhiriev/go-custody-ledger/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() models.ExportArtifact {
	at := time.Date(2026, 2, 3, 4, 5, 6, 123456000, time.UTC)
	return models.ExportArtifact{
		Manifest: models.Manifest{
			BundleID: "b1",
			TenantID: "t1",
			Purpose:  "claim",
			SealedAt: at,
			Items:    []models.ManifestItem{{ObjectID: "o1", ContentHash: "c", TipEventHash: "e", TipSeq: 1}},
		},
		ManifestHash: "m",
		Chains: map[string][]models.CustodyEvent{
			"o1": {{ObjectID: "o1", TenantID: "t1", Seq: 0, EventType: models.EventCreated, EventAt: at, Payload: json.RawMessage(`{"a":1}`), EventHash: "e0"}},
			"o2": {{ObjectID: "o2", TenantID: "t1", Seq: 0, EventType: models.EventCreated, EventAt: at, Payload: json.RawMessage(`{}`), EventHash: "e1"}},
		},
		ExportedAt: at.Add(time.Hour),
	}
}

func TestEncode_Deterministic(t *testing.T) {
	first, err := Encode(sample())
	require.NoError(t, err)

	for range 10 {
		again, err := Encode(sample())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDecode_RoundTripKeepsNanoseconds(t *testing.T) {
	data, err := Encode(sample())
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, FormatVersion, got.FormatVersion)
	assert.True(t, sample().Manifest.SealedAt.Equal(got.Manifest.SealedAt))
	assert.Equal(t, 123456000, got.Chains["o1"][0].EventAt.Nanosecond())
	assert.JSONEq(t, `{"a":1}`, string(got.Chains["o1"][0].Payload))
	assert.Len(t, got.Chains, 2)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte("plain text"))
	require.ErrorIs(t, err, ErrDecode)

	a := sample()
	a.FormatVersion = 7
	data, err := Encode(a)
	require.NoError(t, err)

	_, err = Decode(data)
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}
