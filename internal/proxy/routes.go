package proxy

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/omarluq/prompt-relay/internal/config"
)

// StatusMessage is reported by GET /.
const StatusMessage = "Cerebras prompt relay with daily limit running"

// StatusResponse is the body of GET /.
type StatusResponse struct {
	Status string `json:"status"`
}

// SetupRoutes creates the HTTP handler with all routes configured.
// Routes:
//   - GET / - liveness
//   - POST /generate - quota-checked completion
//   - OPTIONS /generate - CORS preflight
//
// Middleware, outermost first: logger, request ID, logging, CORS, concurrency cap, body cap.
func SetupRoutes(
	logger *zerolog.Logger,
	generate http.Handler,
	runtime config.RuntimeConfig,
	limiter *ConcurrencyLimiter,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, StatusResponse{Status: StatusMessage})
	})
	mux.Handle("POST /generate", generate)
	mux.HandleFunc("OPTIONS /generate", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, struct{}{})
	})

	var handler http.Handler = mux
	handler = MaxBodyBytesMiddleware(func() int64 {
		return runtime.Get().Server.MaxBodyBytes
	})(handler)
	if limiter != nil {
		handler = ConcurrencyMiddleware(limiter)(handler)
	}
	handler = CORSMiddleware(func() []string {
		return runtime.Get().Server.CORS.GetAllowedOrigins()
	})(handler)
	handler = LoggingMiddleware()(handler)
	handler = RequestIDMiddleware()(handler)
	if logger != nil {
		handler = LoggerMiddleware(logger)(handler)
	}

	return handler
}
