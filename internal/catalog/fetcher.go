package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/omarluq/prompt-relay/internal/version"
)

// maxCatalogBytes bounds how much of the models response is read.
const maxCatalogBytes = 4 << 20

// Fetcher retrieves the current model catalog.
type Fetcher interface {
	Fetch(ctx context.Context) mo.Result[[]ModelDescriptor]
}

// HTTPFetcher reads the catalog from the provider's models-listing endpoint.
// Authentication is the client's concern; pass a client whose transport adds the bearer token.
type HTTPFetcher struct {
	client *http.Client
	url    string
}

var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher creates a fetcher for {baseURL}/models.
// A nil client uses http.DefaultClient.
func NewHTTPFetcher(baseURL string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{
		client: client,
		url:    strings.TrimRight(baseURL, "/") + "/models",
	}
}

// URL returns the models endpoint this fetcher calls.
func (f *HTTPFetcher) URL() string {
	return f.url
}

// Fetch performs one GET against the models endpoint.
func (f *HTTPFetcher) Fetch(ctx context.Context) mo.Result[[]ModelDescriptor] {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, http.NoBody)
	if err != nil {
		return mo.Err[[]ModelDescriptor](fmt.Errorf("catalog: create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := f.client.Do(req)
	if err != nil {
		return mo.Err[[]ModelDescriptor](fmt.Errorf("catalog: request models: %w", err))
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			zerolog.Ctx(ctx).Debug().Err(closeErr).Msg("failed to close catalog response body")
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return mo.Err[[]ModelDescriptor](fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return mo.Err[[]ModelDescriptor](fmt.Errorf("catalog: read body: %w", err))
	}

	return mo.TupleToResult(ParseCatalog(body))
}
