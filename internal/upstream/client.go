// Package upstream implements the chat-completion call to the hosted LLM provider.
//
// The provider speaks the OpenAI-compatible chat completions API:
//
//	POST {base_url}/chat/completions
//	{"model": "...", "messages": [...], "max_completion_tokens": 1024,
//	 "temperature": 0.2, "top_p": 1, "stream": false}
//
// Only non-streaming requests are supported; the generated text is read from
// choices[0].message.content.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/omarluq/prompt-relay/internal/version"
)

// DefaultBaseURL is the Cerebras inference API root.
const DefaultBaseURL = "https://api.cerebras.ai/v1"

// maxErrorBodyBytes bounds how much of an error response is kept in APIError.
const maxErrorBodyBytes = 2048

// maxResponseBytes bounds how much of a completion response is read.
const maxResponseBytes = 8 << 20

// Upstream errors.
var (
	// ErrEmptyChoices is returned when a successful response carries no choices.
	ErrEmptyChoices = errors.New("upstream: response contained no choices")

	// ErrMalformedResponse is returned when the completion body is not valid JSON.
	ErrMalformedResponse = errors.New("upstream: malformed completion response")
)

// APIError is a non-2xx answer from the completion endpoint.
type APIError struct {
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream: status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream: status %d: %s", e.StatusCode, e.Message)
}

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest describes one chat completion.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	TopP        float64
	Stream      bool
}

// UserPrompt builds a request holding a single user message.
func UserPrompt(model, prompt string, params Params) CompletionRequest {
	return CompletionRequest{
		Model:       model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		Stream:      false,
	}
}

// Params are the fixed generation parameters applied to every prompt.
type Params struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Completion is the parsed result of a chat completion.
type Completion struct {
	ID               string
	Model            string
	Text             string
	FinishReason     string
	PromptTokens     int64
	CompletionTokens int64
}

// Completer produces generated text for a request.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// Client calls the provider's chat completions endpoint.
// Authentication is the HTTP client's concern; see NewBearerClient.
type Client struct {
	httpClient *http.Client
	url        string
}

var _ Completer = (*Client)(nil)

// NewClient creates a completion client for {baseURL}/chat/completions.
// A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		url:        strings.TrimRight(baseURL, "/") + "/chat/completions",
	}
}

// URL returns the completion endpoint this client calls.
func (c *Client) URL() string {
	return c.url
}

// Complete sends req and returns the first choice's message content.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	body, err := BuildRequestBody(req)
	if err != nil {
		return Completion{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Completion{}, fmt.Errorf("upstream: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Completion{}, fmt.Errorf("upstream: request completion: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			zerolog.Ctx(ctx).Debug().Err(closeErr).Msg("failed to close completion response body")
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Completion{}, newAPIError(resp)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Completion{}, fmt.Errorf("upstream: read response: %w", err)
	}

	return ParseCompletion(respBody)
}

// BuildRequestBody encodes req in the chat completions wire format.
func BuildRequestBody(req CompletionRequest) ([]byte, error) {
	body := []byte(`{}`)

	var err error
	set := func(path string, value any) {
		if err != nil {
			return
		}
		body, err = sjson.SetBytes(body, path, value)
	}

	set("model", req.Model)
	set("messages", req.Messages)
	set("max_completion_tokens", req.MaxTokens)
	set("temperature", req.Temperature)
	set("top_p", req.TopP)
	set("stream", req.Stream)

	if err != nil {
		return nil, fmt.Errorf("upstream: encode request: %w", err)
	}
	return body, nil
}

// ParseCompletion reads a chat completions response body.
func ParseCompletion(body []byte) (Completion, error) {
	if !gjson.ValidBytes(body) {
		return Completion{}, ErrMalformedResponse
	}

	doc := gjson.ParseBytes(body)
	choice := doc.Get("choices.0")
	if !choice.Exists() {
		return Completion{}, ErrEmptyChoices
	}

	return Completion{
		ID:               doc.Get("id").String(),
		Model:            doc.Get("model").String(),
		Text:             choice.Get("message.content").String(),
		FinishReason:     choice.Get("finish_reason").String(),
		PromptTokens:     doc.Get("usage.prompt_tokens").Int(),
		CompletionTokens: doc.Get("usage.completion_tokens").Int(),
	}, nil
}

// newAPIError builds an APIError from a non-2xx response, preferring the
// provider's error message over the raw body.
func newAPIError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	msg := strings.TrimSpace(string(raw))
	if gjson.ValidBytes(raw) {
		for _, path := range []string{"error.message", "message", "error"} {
			if v := gjson.GetBytes(raw, path); v.Type == gjson.String && v.String() != "" {
				msg = v.String()
				break
			}
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    msg,
	}
}
