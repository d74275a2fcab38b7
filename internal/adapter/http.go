package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/MKhiriev/go-custody-ledger/internal/config"
	"github.com/MKhiriev/go-custody-ledger/internal/hashing"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/internal/utils"
	"github.com/MKhiriev/go-custody-ledger/models"
	"github.com/go-resty/resty/v2"
)

// bodyHashHeader lets the server detect a batch altered in transit.
const bodyHashHeader = "X-Body-SHA256"

type httpServerAdapter struct {
	client *utils.HTTPClient

	token string

	logger *logger.Logger
}

// NewHTTPServerAdapter constructs an HTTP/REST implementation of [ServerAdapter].
// It normalises and validates the base URL from adapterCfg.HTTPAddress and
// configures the underlying HTTP client with the resolved base URL and
// request timeout. A token present in adapterCfg is stored right away.
//
// Returns an error if adapterCfg.HTTPAddress is empty or cannot be parsed as a
// valid URL.
func NewHTTPServerAdapter(adapterCfg config.ClientAdapter, logger *logger.Logger) (ServerAdapter, error) {
	baseURL, err := normalizeBaseURL(adapterCfg.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid adapter http address: %w", err)
	}

	a := &httpServerAdapter{client: utils.NewHTTPClient(baseURL, adapterCfg.RequestTimeout), logger: logger}
	a.SetToken(adapterCfg.Token)
	return a, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// SetToken implements [ServerAdapter]. It stores token (whitespace-trimmed) for
// use in the Authorization header of all subsequent requests.
func (h *httpServerAdapter) SetToken(token string) {
	h.token = strings.TrimSpace(token)
}

// Token implements [ServerAdapter].
func (h *httpServerAdapter) Token() string {
	return h.token
}

// SubmitBatch implements [ServerAdapter]. It POSTs the batch to
// POST /api/v1/batches and decodes the recorded per-item results. A 409
// ([ErrConflict]) means the batch request key was already used for a
// different set of items.
func (h *httpServerAdapter) SubmitBatch(ctx context.Context, batch models.OfflineBatch) (models.BatchResult, error) {
	batch.Length = len(batch.Items)

	body, err := json.Marshal(batch)
	if err != nil {
		return models.BatchResult{}, fmt.Errorf("encode batch: %w", err)
	}

	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader(bodyHashHeader, hashing.HashBytes(body)).
		SetBody(body).
		Post("/api/v1/batches")
	if err != nil {
		h.logger.Err(err).Str("func", "httpServerAdapter.SubmitBatch").
			Str("batch_request_key", batch.BatchRequestKey).Msg("batch request failed")
		return models.BatchResult{}, fmt.Errorf("submit batch request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.BatchResult{}, err
	}

	var result models.BatchResult
	if err = json.Unmarshal(resp.Body(), &result); err != nil {
		return models.BatchResult{}, fmt.Errorf("decode batch response: %w", err)
	}
	return result, nil
}

// ExportBundle implements [ServerAdapter]. It POSTs to
// POST /api/v1/bundles/{id}/export and returns the artifact bytes unchanged.
func (h *httpServerAdapter) ExportBundle(ctx context.Context, bundleID string) ([]byte, error) {
	resp, err := h.authedRequest(ctx).
		SetPathParam("id", bundleID).
		Post("/api/v1/bundles/{id}/export")
	if err != nil {
		return nil, fmt.Errorf("export bundle request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	return resp.Body(), nil
}

// Version implements [ServerAdapter]. It GETs /api/version/.
func (h *httpServerAdapter) Version(ctx context.Context) (models.VersionResponse, error) {
	var version models.VersionResponse

	resp, err := h.client.R().
		SetContext(ctx).
		SetResult(&version).
		Get("/api/version/")
	if err != nil {
		return models.VersionResponse{}, fmt.Errorf("version request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.VersionResponse{}, err
	}

	return version, nil
}

func (h *httpServerAdapter) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.Token(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}
