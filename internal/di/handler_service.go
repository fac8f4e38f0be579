package di

import (
	"net/http"

	"github.com/samber/do/v2"

	"github.com/omarluq/prompt-relay/internal/proxy"
)

// HandlerService wraps the HTTP handler.
type HandlerService struct {
	Handler  http.Handler
	Generate *proxy.GenerateHandler
}

// NewHandler assembles the /generate handler and the routed middleware chain.
func NewHandler(i do.Injector) (*HandlerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	logger := do.MustInvoke[*LoggerService](i).Logger
	quotaSvc := do.MustInvoke[*QuotaService](i)
	catalogSvc := do.MustInvoke[*CatalogService](i)
	completionSvc := do.MustInvoke[*CompletionService](i)
	concurrencySvc := do.MustInvoke[*ConcurrencyService](i)

	generate := proxy.NewGenerateHandler(quotaSvc.Tracker, catalogSvc.Selector, completionSvc.Completer, cfgSvc)
	handler := proxy.SetupRoutes(logger, generate, cfgSvc, concurrencySvc.Limiter)

	return &HandlerService{Handler: handler, Generate: generate}, nil
}
