package upstream

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// NewBearerClient returns an HTTP client that sends apiKey as a bearer token on every request.
// A zero timeout leaves requests bounded only by their context.
func NewBearerClient(apiKey string, timeout time.Duration) *http.Client {
	return NewBearerClientWithBase(apiKey, timeout, nil)
}

// NewBearerClientWithBase is NewBearerClient on top of a caller-supplied base client,
// which tests use to reach httptest servers. A nil base uses http.DefaultClient.
func NewBearerClientWithBase(apiKey string, timeout time.Duration, base *http.Client) *http.Client {
	ctx := context.Background()
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: apiKey,
		TokenType:   "Bearer",
	})

	client := oauth2.NewClient(ctx, src)
	client.Timeout = timeout
	return client
}
