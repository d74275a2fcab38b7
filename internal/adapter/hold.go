package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/internal/utils"
)

// TenantWide is the subject that puts every object of a tenant on hold.
const TenantWide = "*"

type holdResponse struct {
	OnHold bool `json:"on_hold"`
}

type httpHoldChecker struct {
	client *utils.HTTPClient
	logger *logger.Logger
}

// NewHTTPHoldChecker asks the authorization service at baseURL:
//
//	GET {baseURL}/api/v1/holds/{tenant}/{subject} -> {"on_hold": bool}
//
// Any answer other than a decodable 2xx body is an error, which callers
// treat as a hold.
func NewHTTPHoldChecker(baseURL string, timeout time.Duration, log *logger.Logger) (HoldChecker, error) {
	base, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid hold service address: %w", err)
	}

	return &httpHoldChecker{client: utils.NewHTTPClient(base, timeout), logger: log}, nil
}

func (h *httpHoldChecker) IsOnHold(ctx context.Context, tenantID, subjectID string) (bool, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"tenant": tenantID, "subject": subjectID}).
		Get("/api/v1/holds/{tenant}/{subject}")
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "httpHoldChecker.IsOnHold").
			Str("subject", subjectID).Msg("hold service request failed")
		return true, fmt.Errorf("%w: %w", ErrHoldUnavailable, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return true, fmt.Errorf("%w: %w", ErrHoldUnavailable, err)
	}

	var hr holdResponse
	if err = json.Unmarshal(resp.Body(), &hr); err != nil {
		return true, fmt.Errorf("%w: decode hold response: %w", ErrHoldUnavailable, err)
	}
	return hr.OnHold, nil
}

// StaticHoldChecker is an in-process hold registry for development and
// tests.
type StaticHoldChecker struct {
	mu    sync.RWMutex
	holds map[string]map[string]struct{}
}

// NewStaticHoldChecker builds a registry from "tenant:subject" entries.
func NewStaticHoldChecker(entries ...string) *StaticHoldChecker {
	s := &StaticHoldChecker{holds: make(map[string]map[string]struct{})}
	for _, e := range entries {
		if tenant, subject, ok := strings.Cut(e, ":"); ok {
			s.Place(tenant, subject)
		}
	}
	return s
}

// Place puts subject of tenant on hold. [TenantWide] holds the tenant.
func (s *StaticHoldChecker) Place(tenantID, subjectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.holds[tenantID] == nil {
		s.holds[tenantID] = make(map[string]struct{})
	}
	s.holds[tenantID][subjectID] = struct{}{}
}

// Release lifts a hold placed with [StaticHoldChecker.Place].
func (s *StaticHoldChecker) Release(tenantID, subjectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.holds[tenantID], subjectID)
}

func (s *StaticHoldChecker) IsOnHold(ctx context.Context, tenantID, subjectID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return true, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	subjects := s.holds[tenantID]
	if _, ok := subjects[TenantWide]; ok {
		return true, nil
	}
	_, ok := subjects[subjectID]
	return ok, nil
}
