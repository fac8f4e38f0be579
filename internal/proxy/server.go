// Package proxy implements the HTTP surface of prompt-relay: routes, middleware,
// the /generate handler and the server wrapper.
package proxy

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Server wraps http.Server with prompt-relay configuration.
type Server struct {
	httpServer *http.Server
	addr       string
}

// DefaultWriteTimeout bounds a full /generate round trip when server.timeout_ms is unset.
const DefaultWriteTimeout = 120 * time.Second

// NewServer creates a Server. A zero writeTimeout uses DefaultWriteTimeout.
// If enableHTTP2 is true, enables HTTP/2 cleartext (h2c) support for non-TLS connections.
func NewServer(addr string, handler http.Handler, enableHTTP2 bool, writeTimeout time.Duration) *Server {
	finalHandler := handler
	if enableHTTP2 {
		finalHandler = h2c.NewHandler(handler, &http2.Server{})
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}

	return &Server{
		addr: addr,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           finalHandler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second, // Prevent slow client attacks
			WriteTimeout:      writeTimeout,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// ListenAndServe starts the server (blocks). Returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	return ignoreClosed(s.httpServer.ListenAndServe())
}

// Serve accepts connections on ln (blocks). Returns nil after Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	return ignoreClosed(s.httpServer.Serve(ln))
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
