package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/prompt-relay/internal/di"
)

const serveConfigTemplate = `
server:
  listen: %q
upstream:
  base_url: https://api.cerebras.ai/v1
quota:
  daily_limit: 5
logging:
  level: error
  output: stderr
`

func newServeContainer(t *testing.T, listen string) *di.Container {
	t.Helper()
	path := filepath.Join(t.TempDir(), defaultConfigFile)
	writeFile(t, path, fmt.Sprintf(serveConfigTemplate, listen))

	container, err := di.NewContainer(path)
	require.NoError(t, err)
	require.NoError(t, container.HealthCheck())
	return container
}

func TestLoadDotEnv(t *testing.T) {
	const key = "PROMPT_RELAY_DOTENV_TEST"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	t.Run("missing file is ignored", func(t *testing.T) {
		assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("empty path is ignored", func(t *testing.T) {
		assert.NoError(t, loadDotEnv(""))
	})

	t.Run("loads variables", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		writeFile(t, path, key+"=from-dotenv\n")

		require.NoError(t, loadDotEnv(path))
		assert.Equal(t, "from-dotenv", os.Getenv(key))
	})

	t.Run("does not override existing", func(t *testing.T) {
		t.Setenv(key, "from-env")
		path := filepath.Join(t.TempDir(), ".env")
		writeFile(t, path, key+"=from-dotenv\n")

		require.NoError(t, loadDotEnv(path))
		assert.Equal(t, "from-env", os.Getenv(key))
	})
}

func TestRunWithGracefulShutdown(t *testing.T) {
	t.Parallel()

	t.Run("stops when context is canceled", func(t *testing.T) {
		t.Parallel()

		container := newServeContainer(t, "127.0.0.1:0")
		logger := zerolog.Nop()

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() {
			errCh <- runWithGracefulShutdown(ctx, container, &logger)
		}()

		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("server did not shut down in time")
		}
	})

	t.Run("returns listener errors", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		t.Cleanup(func() { _ = ln.Close() })

		container := newServeContainer(t, ln.Addr().String())
		logger := zerolog.Nop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- runWithGracefulShutdown(context.Background(), container, &logger)
		}()

		select {
		case err := <-errCh:
			assert.Error(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("expected listen error")
		}
	})
}
