package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

const userAgent = "custody-ledger"

// HTTPClient is the resty client shared by the outbound adapters: the hold
// checker, the document fetcher and the device agent's server adapter.
type HTTPClient struct {
	*resty.Client
}

// NewHTTPClient returns an independent client. An empty baseURL leaves
// request URLs absolute; a zero timeout means no timeout.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	client := resty.New().
		SetHeader("User-Agent", userAgent).
		SetTimeout(timeout)
	if baseURL != "" {
		client.SetBaseURL(baseURL)
	}
	return &HTTPClient{Client: client}
}
