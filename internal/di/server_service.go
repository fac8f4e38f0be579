package di

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/omarluq/prompt-relay/internal/proxy"
)

// shutdownTimeout bounds how long in-flight requests get to finish.
const shutdownTimeout = 30 * time.Second

// ServerService wraps the HTTP server.
type ServerService struct {
	Server *proxy.Server
}

// NewHTTPServer creates the HTTP server. Listen address and h2c are fixed at startup.
func NewHTTPServer(i do.Injector) (*ServerService, error) {
	cfg := do.MustInvoke[*ConfigService](i).Get()
	handlerSvc := do.MustInvoke[*HandlerService](i)

	server := proxy.NewServer(
		cfg.Server.Listen,
		handlerSvc.Handler,
		cfg.Server.EnableHTTP2,
		cfg.Server.GetTimeoutOption().OrEmpty(),
	)

	return &ServerService{Server: server}, nil
}

// Shutdown implements do.Shutdowner for graceful server shutdown.
func (s *ServerService) Shutdown() error {
	if s.Server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Server.Shutdown(ctx)
}
