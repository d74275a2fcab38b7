package adapter

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/internal/utils"
)

type httpFetcher struct {
	client   *utils.HTTPClient
	maxBytes int64
	logger   *logger.Logger
}

// NewHTTPFetcher returns a [Fetcher] that reads at most maxBytes of a body.
// The body is never decoded or transformed.
func NewHTTPFetcher(timeout time.Duration, maxBytes int64, log *logger.Logger) Fetcher {
	client := utils.NewHTTPClient("", timeout)
	client.
		SetDoNotParseResponse(true).
		SetHeader("Accept-Encoding", "identity")

	return &httpFetcher{client: client, maxBytes: maxBytes, logger: log}
}

func (f *httpFetcher) Fetch(ctx context.Context, rawURL string) (FetchedDocument, error) {
	log := logger.FromContext(ctx)

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return FetchedDocument{}, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	resp, err := f.client.R().SetContext(ctx).Get(u.String())
	if err != nil {
		log.Err(err).Str("func", "httpFetcher.Fetch").Str("url", rawURL).Msg("document request failed")
		return FetchedDocument{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return FetchedDocument{}, fmt.Errorf("%w: %d", ErrFetchStatus, resp.StatusCode())
	}

	// the hash must cover the whole document, so a short read is an error
	data, err := io.ReadAll(io.LimitReader(body, f.maxBytes+1))
	if err != nil {
		log.Err(err).Str("func", "httpFetcher.Fetch").Str("url", rawURL).Msg("document body read failed")
		return FetchedDocument{}, fmt.Errorf("read %s: %w", rawURL, err)
	}
	if int64(len(data)) > f.maxBytes {
		return FetchedDocument{}, ErrFetchTooLarge
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header().Get("Content-Type"))
	return FetchedDocument{Body: data, StatusCode: resp.StatusCode(), MediaType: mediaType}, nil
}
