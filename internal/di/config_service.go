package di

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"github.com/omarluq/prompt-relay/internal/config"
)

// ConfigService holds the live configuration and fans reloads out to subscribers.
type ConfigService struct {
	runtime   *config.Runtime
	watcher   *config.Watcher
	path      string
	callbacks []config.ReloadCallback
	mu        sync.Mutex
}

var _ config.RuntimeConfig = (*ConfigService)(nil)

// NewConfig resolves the configuration from the config path and environment.
func NewConfig(i do.Injector) (*ConfigService, error) {
	path := do.MustInvokeNamed[string](i, ConfigPathKey)

	cfg, err := config.Resolve(path)
	if err != nil {
		if path == "" {
			return nil, fmt.Errorf("failed to resolve config: %w", err)
		}
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	return &ConfigService{
		runtime: config.NewRuntime(cfg),
		path:    path,
	}, nil
}

// Get returns the current configuration (lock-free read).
func (c *ConfigService) Get() *config.Config {
	return c.runtime.Get()
}

// Path returns the config file path, empty when running without one.
func (c *ConfigService) Path() string {
	return c.path
}

// OnReload registers cb to run after every successful reload, after the new
// config has been stored.
func (c *ConfigService) OnReload(cb config.ReloadCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, cb)
}

// Apply stores cfg and notifies subscribers. The watcher calls it on file changes.
func (c *ConfigService) Apply(cfg *config.Config) error {
	c.runtime.Store(cfg)

	c.mu.Lock()
	callbacks := append([]config.ReloadCallback(nil), c.callbacks...)
	c.mu.Unlock()

	var firstErr error
	for _, cb := range callbacks {
		if err := cb(cfg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// StartWatching begins watching the config file until ctx is canceled.
// Without a config file, or if the watcher cannot be created, hot reload stays off.
func (c *ConfigService) StartWatching(ctx context.Context, logger *zerolog.Logger) {
	if c.path == "" {
		return
	}

	watcher, err := config.NewWatcher(c.path, config.WithLogger(logger))
	if err != nil {
		logger.Warn().Err(err).Str("path", c.path).Msg("config watcher creation failed, hot-reload disabled")
		return
	}

	c.mu.Lock()
	c.watcher = watcher
	c.mu.Unlock()

	watcher.OnReload(c.Apply)

	go func() {
		if err := watcher.Watch(ctx); err != nil {
			logger.Error().Err(err).Msg("config watcher error")
		}
	}()

	logger.Info().Str("path", c.path).Msg("config file watcher started")
}

// Shutdown implements do.Shutdowner for graceful watcher cleanup.
func (c *ConfigService) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}
