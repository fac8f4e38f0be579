package proxy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/prompt-relay/internal/config"
	"github.com/omarluq/prompt-relay/internal/quota"
	"github.com/omarluq/prompt-relay/internal/upstream"
)

type fixedSelector struct {
	model string
	calls atomic.Int32
}

func (s *fixedSelector) Select(_ context.Context) string {
	s.calls.Add(1)
	return s.model
}

type recordingCompleter struct {
	err  error
	text string
	reqs []upstream.CompletionRequest
	mu   sync.Mutex
}

func (c *recordingCompleter) Complete(_ context.Context, req upstream.CompletionRequest) (upstream.Completion, error) {
	c.mu.Lock()
	c.reqs = append(c.reqs, req)
	c.mu.Unlock()

	if c.err != nil {
		return upstream.Completion{}, c.err
	}
	return upstream.Completion{Model: req.Model, Text: c.text}, nil
}

func (c *recordingCompleter) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reqs)
}

func (c *recordingCompleter) last() upstream.CompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reqs[len(c.reqs)-1]
}

type testRelay struct {
	handler   http.Handler
	tracker   *quota.Tracker
	selector  *fixedSelector
	completer *recordingCompleter
	runtime   *config.Runtime
}

func newTestRelay(t *testing.T, mutate func(*config.Config), opts ...quota.Option) *testRelay {
	t.Helper()

	cfg := config.Defaults()
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	relay := &testRelay{
		tracker:   quota.NewTracker(cfg.Quota.DailyLimit, opts...),
		selector:  &fixedSelector{model: "llama-4-scout"},
		completer: &recordingCompleter{text: "generated text"},
		runtime:   config.NewRuntime(cfg),
	}

	logger := zerolog.Nop()
	generate := NewGenerateHandler(relay.tracker, relay.selector, relay.completer, relay.runtime)
	relay.handler = SetupRoutes(&logger, generate, relay.runtime,
		NewConcurrencyLimiter(int64(cfg.Server.MaxConcurrent)))
	return relay
}

func (r *testRelay) post(t *testing.T, remoteAddr, body string) *httptest.ResponseRecorder {
	t.Helper()
	return r.postReader(t, remoteAddr, strings.NewReader(body))
}

func (r *testRelay) postReader(t *testing.T, remoteAddr string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/generate", body)
	req.Header.Set("Content-Type", "application/json")
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}

	rec := httptest.NewRecorder()
	r.handler.ServeHTTP(rec, req)
	return rec
}

// hookedBody runs hook once, on the first Read, before yielding its content.
type hookedBody struct {
	r    io.Reader
	hook func()
	once sync.Once
}

func newHookedBody(content string, hook func()) *hookedBody {
	return &hookedBody{r: strings.NewReader(content), hook: hook}
}

func (b *hookedBody) Read(p []byte) (int, error) {
	b.once.Do(b.hook)
	return b.r.Read(p)
}

type testClock struct {
	now time.Time
	mu  sync.Mutex
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
