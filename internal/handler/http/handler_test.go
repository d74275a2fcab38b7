package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MKhiriev/go-custody-ledger/internal/adapter"
	"github.com/MKhiriev/go-custody-ledger/internal/artifact"
	"github.com/MKhiriev/go-custody-ledger/internal/blob"
	"github.com/MKhiriev/go-custody-ledger/internal/config"
	"github.com/MKhiriev/go-custody-ledger/internal/hashing"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/internal/service"
	"github.com/MKhiriev/go-custody-ledger/internal/store"
	"github.com/MKhiriev/go-custody-ledger/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	server *httptest.Server
	holds  *adapter.StaticHoldChecker
	token  string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	cfg := &config.StructuredConfig{
		App: config.App{
			TokenSignKey:  "test-key",
			TokenIssuer:   "test-issuer",
			TokenDuration: time.Hour,
			Version:       "1.0.0",
		},
		Server:  config.Server{MaxBodyBytes: 1 << 20},
		Workers: config.Workers{IngestConcurrency: 2, AppendRetries: 3},
	}

	holds := adapter.NewStaticHoldChecker()
	services, err := service.NewServices(
		store.NewMemoryStorages(store.NewMemoryStore()),
		service.Collaborators{Blobs: blob.NewMemoryStore(), Holds: holds},
		cfg,
		models.NewAppBuildInfo("0.0.1", "2026-01-01", "abc123"),
		logger.Nop(),
	)
	require.NoError(t, err)

	token, err := services.AuthService.CreateToken(context.Background(),
		models.Caller{TenantID: "tenant-a", Subject: "alice", DeviceID: "dev-1"})
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(services, cfg.Server, logger.Nop()).Init())
	t.Cleanup(srv.Close)

	return &testAPI{server: srv, holds: holds, token: token.SignedString}
}

func (a *testAPI) do(t *testing.T, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, a.server.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+a.token)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := a.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (a *testAPI) doJSON(t *testing.T, method, path string, in any, out any) int {
	t.Helper()

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	resp := a.do(t, method, path, body, map[string]string{"Content-Type": "application/json"})
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestAPI_VersionIsPublic(t *testing.T) {
	api := newTestAPI(t)

	resp, err := api.server.Client().Get(api.server.URL + "/api/version/")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var v models.VersionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	assert.Equal(t, "1.0.0", v.Version)
	assert.Equal(t, "abc123", v.BuildCommit)
}

func TestAPI_RequiresToken(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic " + api.token},
		{"garbage token", "Bearer not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, api.server.URL+"/api/v1/evidence/x", nil)
			require.NoError(t, err)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := api.server.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			var e models.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
			assert.Equal(t, service.CodeUnauthorized, e.Code)
		})
	}
}

func TestAPI_EvidenceLifecycle(t *testing.T) {
	api := newTestAPI(t)

	var obj models.EvidenceObject
	status := api.doJSON(t, http.MethodPost, "/api/v1/evidence", models.CreateEvidenceRequest{
		SourceKind: models.AuthoredNote,
		Text:       "inspection passed",
	}, &obj)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, hashing.HashBytes([]byte("inspection passed")), *obj.ContentHash)

	var got models.EvidenceObject
	require.Equal(t, http.StatusOK, api.doJSON(t, http.MethodGet, "/api/v1/evidence/"+obj.ID, nil, &got))
	assert.Equal(t, obj.ID, got.ID)

	require.Equal(t, http.StatusOK, api.doJSON(t, http.MethodPost, "/api/v1/evidence/"+obj.ID+"/seal", nil, &got))
	assert.Equal(t, models.StatusSealed, got.ChainStatus)

	var e models.ErrorResponse
	require.Equal(t, http.StatusConflict, api.doJSON(t, http.MethodPost, "/api/v1/evidence/"+obj.ID+"/seal", nil, &e))
	assert.Equal(t, service.CodeAlreadySealed, e.Code)

	var events models.EventsResponse
	require.Equal(t, http.StatusOK, api.doJSON(t, http.MethodGet, "/api/v1/evidence/"+obj.ID+"/events", nil, &events))
	assert.Equal(t, 2, events.Length)

	var report models.ChainVerification
	require.Equal(t, http.StatusOK, api.doJSON(t, http.MethodGet, "/api/v1/evidence/"+obj.ID+"/verify", nil, &report))
	assert.True(t, report.Valid)

	require.Equal(t, http.StatusNotFound, api.doJSON(t, http.MethodGet, "/api/v1/evidence/missing", nil, &e))
	assert.Equal(t, service.CodeNotFound, e.Code)
}

func TestAPI_UploadBytesChecksClientHash(t *testing.T) {
	api := newTestAPI(t)

	var obj models.EvidenceObject
	require.Equal(t, http.StatusCreated, api.doJSON(t, http.MethodPost, "/api/v1/evidence",
		models.CreateEvidenceRequest{SourceKind: models.StoredBlob, Pending: true}, &obj))
	assert.True(t, obj.PendingBytes)

	data := []byte("photo bytes")
	resp := api.do(t, http.MethodPut, "/api/v1/evidence/"+obj.ID+"/bytes", bytes.NewReader(data),
		map[string]string{contentHashHeader: hashing.HashBytes([]byte("other"))})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = api.do(t, http.MethodPut, "/api/v1/evidence/"+obj.ID+"/bytes", bytes.NewReader(data),
		map[string]string{contentHashHeader: hashing.HashBytes(data)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&obj))
	assert.False(t, obj.PendingBytes)
}

func TestAPI_HoldAnswers423(t *testing.T) {
	api := newTestAPI(t)

	var obj models.EvidenceObject
	require.Equal(t, http.StatusCreated, api.doJSON(t, http.MethodPost, "/api/v1/evidence",
		models.CreateEvidenceRequest{SourceKind: models.AuthoredNote, Text: "held"}, &obj))

	api.holds.Place("tenant-a", adapter.TenantWide)

	var e models.ErrorResponse
	require.Equal(t, http.StatusLocked, api.doJSON(t, http.MethodPost, "/api/v1/evidence/"+obj.ID+"/seal", nil, &e))
	assert.Equal(t, service.CodeOnHold, e.Code)
}

func TestAPI_BundleExportAndVerify(t *testing.T) {
	api := newTestAPI(t)

	var obj models.EvidenceObject
	require.Equal(t, http.StatusCreated, api.doJSON(t, http.MethodPost, "/api/v1/evidence",
		models.CreateEvidenceRequest{SourceKind: models.StructuredSnapshot, Payload: json.RawMessage(`{"temp_c":21}`)}, &obj))
	require.Equal(t, http.StatusOK, api.doJSON(t, http.MethodPost, "/api/v1/evidence/"+obj.ID+"/seal", nil, &obj))

	var b models.Bundle
	require.Equal(t, http.StatusCreated, api.doJSON(t, http.MethodPost, "/api/v1/bundles",
		models.CreateBundleRequest{Purpose: "court"}, &b))

	var e models.ErrorResponse
	require.Equal(t, http.StatusConflict, api.doJSON(t, http.MethodPost, "/api/v1/bundles/"+b.ID+"/seal", nil, &e))
	assert.Equal(t, service.CodeBundleEmpty, e.Code)

	require.Equal(t, http.StatusOK, api.doJSON(t, http.MethodPost, "/api/v1/bundles/"+b.ID+"/items",
		models.AddBundleItemRequest{ObjectID: obj.ID}, &b))
	assert.Equal(t, []string{obj.ID}, b.Items)

	var sealed models.SealBundleResponse
	require.Equal(t, http.StatusOK, api.doJSON(t, http.MethodPost, "/api/v1/bundles/"+b.ID+"/seal", nil, &sealed))
	assert.NotEmpty(t, sealed.ManifestHash)

	require.Equal(t, http.StatusConflict, api.doJSON(t, http.MethodDelete, "/api/v1/bundles/"+b.ID+"/items/"+obj.ID, nil, &e))
	assert.Equal(t, service.CodeNotOpen, e.Code)

	resp := api.do(t, http.MethodPost, "/api/v1/bundles/"+b.ID+"/export", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, artifact.MediaType, resp.Header.Get("Content-Type"))
	assert.Equal(t, sealed.ManifestHash, resp.Header.Get(manifestHashHeader))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	resp = api.do(t, http.MethodPost, "/api/v1/artifacts/verify", bytes.NewReader(data), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report models.BundleVerification
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.True(t, report.Valid, report.Reason)

	var live models.BundleVerification
	require.Equal(t, http.StatusOK, api.doJSON(t, http.MethodGet, "/api/v1/bundles/"+b.ID+"/verify", nil, &live))
	assert.True(t, live.Valid)
}

func TestAPI_BatchReplayAndIntegrity(t *testing.T) {
	api := newTestAPI(t)

	raw, err := json.Marshal(models.OfflineBatch{
		BatchRequestKey: "batch-1",
		Items: []models.OfflineItem{
			{ItemRequestKey: "k1", SourceKind: models.AuthoredNote, Text: "inspection passed"},
		},
		Length: 1,
	})
	require.NoError(t, err)

	resp := api.do(t, http.MethodPost, "/api/v1/batches", bytes.NewReader(raw),
		map[string]string{bodyHashHeader: hashing.HashBytes([]byte("tampered"))})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var first, second models.BatchResult
	resp = api.do(t, http.MethodPost, "/api/v1/batches", bytes.NewReader(raw),
		map[string]string{bodyHashHeader: hashing.HashBytes(raw)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&first))

	resp = api.do(t, http.MethodPost, "/api/v1/batches", bytes.NewReader(raw), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&second))

	assert.False(t, first.FromCache)
	assert.True(t, second.FromCache)
	assert.Equal(t, string(first.Items), string(second.Items))

	conflicting := strings.Replace(string(raw), "inspection passed", "inspection failed", 1)
	resp = api.do(t, http.MethodPost, "/api/v1/batches", strings.NewReader(conflicting), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_UnknownMethodIsNotFound(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, http.MethodDelete, "/api/v1/evidence/some-id", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_InvalidJSON(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, http.MethodPost, "/api/v1/evidence", strings.NewReader("{"), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.do(t, http.MethodPost, "/api/v1/evidence", strings.NewReader(`{"source_kind":"telepathy"}`), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
