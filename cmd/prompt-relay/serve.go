package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/omarluq/prompt-relay/internal/di"
	"github.com/omarluq/prompt-relay/internal/ro"
	"github.com/omarluq/prompt-relay/internal/version"
)

const shutdownTimeout = 30 * time.Second

var envFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the prompt-relay server",
	Long: `Start the HTTP server. The provider API key is read from CEREBRAS_API_KEY and the
port from PORT; both may also come from a .env file.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config (missing file is ignored)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := loadDotEnv(envFile); err != nil {
		log.Error().Err(err).Str("path", envFile).Msg("failed to load env file")
		return err
	}

	path := configPath()
	container, err := di.NewContainer(path)
	if err != nil {
		return err
	}

	if err := container.HealthCheck(); err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to initialize services")
		if shutdownErr := container.Shutdown(); shutdownErr != nil {
			log.Debug().Err(shutdownErr).Msg("container shutdown after init failure")
		}
		return err
	}

	logger := di.MustInvoke[*di.LoggerService](container).Logger
	log.Logger = *logger
	zerolog.DefaultContextLogger = logger

	return runWithGracefulShutdown(cmd.Context(), container, logger)
}

// loadDotEnv loads path into the process environment without overriding variables
// that are already set.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// runWithGracefulShutdown serves until a shutdown signal arrives, ctx is canceled or the
// listener fails, then shuts the container down.
func runWithGracefulShutdown(ctx context.Context, container *di.Container, logger *zerolog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfgSvc := di.MustInvoke[*di.ConfigService](container)
	quotaSvc := di.MustInvoke[*di.QuotaService](container)
	server := di.MustInvoke[*di.ServerService](container).Server

	cfgSvc.StartWatching(ctx, logger)
	quotaSvc.Start(ctx)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	go func() {
		if _, err := ro.WaitForShutdown(ctx, logger); err == nil {
			cancel()
		}
	}()

	cfg := cfgSvc.Get()
	logger.Info().
		Str("listen", server.Addr()).
		Str("version", version.Version).
		Int("daily_limit", cfg.Quota.GetDailyLimit()).
		Str("fallback_model", cfg.Upstream.FallbackModel).
		Msg("starting " + appName)

	var runErr error
	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
			runErr = err
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down...")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := container.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		if runErr == nil {
			runErr = err
		}
	}

	logger.Info().Msg("server stopped")
	return runErr
}
