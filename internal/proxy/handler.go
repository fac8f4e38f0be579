package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/omarluq/prompt-relay/internal/config"
	"github.com/omarluq/prompt-relay/internal/quota"
	"github.com/omarluq/prompt-relay/internal/upstream"
)

// Quota headers set on /generate responses.
const (
	HeaderQuotaLimit     = "X-Quota-Limit"
	HeaderQuotaRemaining = "X-Quota-Remaining"
)

const limitMessageFormat = "You’ve reached your daily limit of %d prompts. Please try again tomorrow."

// Admitter decides whether a client may spend one unit of its daily allowance.
type Admitter interface {
	TryConsume(clientKey string) bool
	Remaining(clientKey string) int
	Usage(clientKey string) (quota.UsageRecord, bool)
	Limit() int
}

// ModelSelector picks the model for one request. It never fails.
type ModelSelector interface {
	Select(ctx context.Context) string
}

// GenerateResponse is the 200 body of POST /generate.
type GenerateResponse struct {
	Response  string `json:"response"`
	ModelUsed string `json:"model_used"`
}

// LimitResponse is the 429 body of POST /generate.
type LimitResponse struct {
	Response string `json:"response"`
}

// GenerateHandler serves POST /generate: identify the caller, validate the prompt, admit
// against the daily quota, pick a model, then run one completion.
// The body is read before any quota is taken, so an invalid request never holds a unit.
type GenerateHandler struct {
	quota     Admitter
	selector  ModelSelector
	completer upstream.Completer
	runtime   config.RuntimeConfig
}

// NewGenerateHandler wires the handler. runtime supplies generation parameters,
// timeouts and forwarding trust per request.
func NewGenerateHandler(
	quota Admitter,
	selector ModelSelector,
	completer upstream.Completer,
	runtime config.RuntimeConfig,
) *GenerateHandler {
	return &GenerateHandler{
		quota:     quota,
		selector:  selector,
		completer: completer,
		runtime:   runtime,
	}
}

func (h *GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg := h.runtime.Get()

	clientKey := ClientKey(r, cfg.Server.TrustForwardedFor)
	logger := zerolog.Ctx(ctx).With().Str("client", clientKey).Logger()

	prompt, err := readPrompt(r)
	if err != nil {
		// An exhausted client is told about the limit whatever the body holds.
		if h.quota.Remaining(clientKey) == 0 {
			h.rejectOverLimit(w, clientKey, &logger)
			return
		}
		h.setQuotaHeaders(w, clientKey)
		logger.Debug().Err(err).Msg("rejected request")
		WriteError(w, http.StatusBadRequest, clientMessage(err))
		return
	}

	if !h.quota.TryConsume(clientKey) {
		h.rejectOverLimit(w, clientKey, &logger)
		return
	}

	model := h.selector.Select(ctx)

	completionCtx, cancel := context.WithTimeout(ctx, cfg.Upstream.GetCompletionTimeout())
	defer cancel()

	gen := cfg.Generation
	completion, err := h.completer.Complete(completionCtx, upstream.UserPrompt(model, prompt, upstream.Params{
		MaxTokens:   gen.MaxTokens,
		Temperature: gen.Temperature,
		TopP:        gen.TopP,
	}))

	h.setQuotaHeaders(w, clientKey)
	if err != nil {
		logger.Error().Err(err).Str("model", model).Msg("completion failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	usage, _ := h.quota.Usage(clientKey)
	logger.Info().
		Str("model", model).
		Int("used_today", usage.Count).
		Int64("prompt_tokens", completion.PromptTokens).
		Int64("completion_tokens", completion.CompletionTokens).
		Msg("prompt completed")

	writeJSON(w, http.StatusOK, GenerateResponse{
		Response:  completion.Text,
		ModelUsed: model,
	})
}

func (h *GenerateHandler) rejectOverLimit(w http.ResponseWriter, clientKey string, logger *zerolog.Logger) {
	h.setQuotaHeaders(w, clientKey)
	usage, _ := h.quota.Usage(clientKey)
	logger.Warn().
		Int("limit", h.quota.Limit()).
		Str("day", usage.Day).
		Msg("daily limit reached")
	writeJSON(w, http.StatusTooManyRequests, LimitResponse{
		Response: fmt.Sprintf(limitMessageFormat, h.quota.Limit()),
	})
}

func (h *GenerateHandler) setQuotaHeaders(w http.ResponseWriter, clientKey string) {
	w.Header().Set(HeaderQuotaLimit, strconv.Itoa(h.quota.Limit()))
	w.Header().Set(HeaderQuotaRemaining, strconv.Itoa(h.quota.Remaining(clientKey)))
}

// readPrompt extracts a non-empty string "prompt" from the JSON body.
// Malformed JSON and non-string prompts count as missing.
func readPrompt(r *http.Request) (string, error) {
	if r.Body == nil {
		return "", ErrPromptRequired
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		if IsBodyTooLargeError(err) {
			return "", ErrBodyTooLarge
		}
		return "", fmt.Errorf("%w: %w", ErrPromptRequired, err)
	}

	if !gjson.ValidBytes(body) {
		return "", ErrPromptRequired
	}

	prompt := gjson.GetBytes(body, "prompt")
	if prompt.Type != gjson.String || prompt.Str == "" {
		return "", ErrPromptRequired
	}
	return prompt.Str, nil
}
