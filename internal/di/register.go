package di

import "github.com/samber/do/v2"

// RegisterSingletons registers all service providers as singletons.
// Services are registered in dependency order:
// 1. Config (no dependencies)
// 2. Logger (depends on Config)
// 3. Quota (depends on Config, Logger)
// 4. Catalog (depends on Config, Logger)
// 5. Completion (depends on Config, Logger)
// 6. Concurrency (depends on Config) - global request limiter
// 7. Handler (depends on all above services)
// 8. Server (depends on Handler, Config).
func RegisterSingletons(i do.Injector) {
	do.Provide(i, NewConfig)
	do.Provide(i, NewLogger)
	do.Provide(i, NewQuota)
	do.Provide(i, NewCatalog)
	do.Provide(i, NewCompletion)
	do.Provide(i, NewConcurrencyService)
	do.Provide(i, NewHandler)
	do.Provide(i, NewHTTPServer)
}
