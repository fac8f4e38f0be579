package upstream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "model": "llama-3.3-70b",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "hello there"}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 4, "completion_tokens": 2}
}`

func newCompletionServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func defaultParams() Params {
	return Params{MaxTokens: 1024, Temperature: 0.2, TopP: 1}
}

func TestClient_CompleteSendsWireFormat(t *testing.T) {
	t.Parallel()

	var gotBody []byte
	var gotAuth, gotPath string
	server := newCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	})

	httpClient := NewBearerClientWithBase("sk-test", time.Second, server.Client())
	client := NewClient(server.URL+"/v1", httpClient)

	got, err := client.Complete(context.Background(), UserPrompt("llama-3.3-70b", "say hi", defaultParams()))
	require.NoError(t, err)

	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer sk-test", gotAuth)

	body := gjson.ParseBytes(gotBody)
	assert.Equal(t, "llama-3.3-70b", body.Get("model").String())
	assert.Equal(t, "user", body.Get("messages.0.role").String())
	assert.Equal(t, "say hi", body.Get("messages.0.content").String())
	assert.Equal(t, int64(1), body.Get("messages.#").Int())
	assert.Equal(t, int64(1024), body.Get("max_completion_tokens").Int())
	assert.InDelta(t, 0.2, body.Get("temperature").Float(), 1e-9)
	assert.InDelta(t, 1.0, body.Get("top_p").Float(), 1e-9)
	assert.False(t, body.Get("stream").Bool())
	assert.True(t, body.Get("stream").Exists())

	assert.Equal(t, "hello there", got.Text)
	assert.Equal(t, "chatcmpl-1", got.ID)
	assert.Equal(t, "stop", got.FinishReason)
	assert.Equal(t, int64(4), got.PromptTokens)
	assert.Equal(t, int64(2), got.CompletionTokens)
}

func TestClient_CompleteAPIError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantMsg string
		status  int
	}{
		{name: "nested error message", status: http.StatusUnauthorized, body: `{"error":{"message":"invalid api key"}}`, wantMsg: "invalid api key"},
		{name: "top-level message", status: http.StatusBadRequest, body: `{"message":"model not found"}`, wantMsg: "model not found"},
		{name: "string error", status: http.StatusTooManyRequests, body: `{"error":"slow down"}`, wantMsg: "slow down"},
		{name: "plain text", status: http.StatusBadGateway, body: "bad gateway", wantMsg: "bad gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := newCompletionServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := NewClient(server.URL, server.Client()).
				Complete(context.Background(), UserPrompt("m", "p", defaultParams()))

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestParseCompletion(t *testing.T) {
	t.Parallel()

	t.Run("empty choices", func(t *testing.T) {
		t.Parallel()
		_, err := ParseCompletion([]byte(`{"choices":[]}`))
		require.ErrorIs(t, err, ErrEmptyChoices)
	})

	t.Run("missing choices", func(t *testing.T) {
		t.Parallel()
		_, err := ParseCompletion([]byte(`{"id":"x"}`))
		require.ErrorIs(t, err, ErrEmptyChoices)
	})

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()
		_, err := ParseCompletion([]byte(`{"choices":`))
		require.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("null content is empty text", func(t *testing.T) {
		t.Parallel()
		got, err := ParseCompletion([]byte(`{"choices":[{"message":{"role":"assistant","content":null}}]}`))
		require.NoError(t, err)
		assert.Empty(t, got.Text)
	})
}

func TestClient_TransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url, nil).Complete(context.Background(), UserPrompt("m", "p", defaultParams()))
	require.Error(t, err)

	var apiErr *APIError
	assert.NotErrorAs(t, err, &apiErr)
}

func TestClient_URL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultBaseURL+"/chat/completions", NewClient(DefaultBaseURL+"/", nil).URL())
}

type failingCloseBody struct {
	io.Reader
}

func (failingCloseBody) Close() error { return errors.New("close failed") }

type bodyRoundTripper func(*http.Request) (*http.Response, error)

func (f bodyRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestClient_LogsBodyCloseError(t *testing.T) {
	t.Parallel()

	transport := bodyRoundTripper(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body: failingCloseBody{Reader: bytes.NewReader(
				[]byte(`{"choices":[{"message":{"content":"hi"}}]}`))},
			Request: r,
		}, nil
	})

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	ctx := logger.WithContext(context.Background())

	client := NewClient("https://api.example.test/v1", &http.Client{Transport: transport})
	got, err := client.Complete(ctx, UserPrompt("m", "p", defaultParams()))

	require.NoError(t, err)
	assert.Equal(t, "hi", got.Text)
	assert.Contains(t, buf.String(), "failed to close completion response body")
	assert.Contains(t, buf.String(), "close failed")
}
