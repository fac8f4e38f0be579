package main

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/omarluq/prompt-relay/internal/config"
)

const statusTimeout = 5 * time.Second

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check if prompt-relay server is running",
	Long: `Check the status of a running prompt-relay server by querying its
root endpoint.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Resolve(configPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	return checkStatus(cmd, statusURL(cfg.Server.Listen))
}

// statusURL maps a listen address to a URL reachable from this host.
func statusURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen + "/"
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}

func checkStatus(cmd *cobra.Command, url string) error {
	out := cmd.OutOrStdout()

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("build status request: %w", err)
	}

	client := &http.Client{Timeout: statusTimeout}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(out, "✗ %s is not running (%s)\n", appName, url)
		return fmt.Errorf("server not reachable: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Logger.Warn().Err(closeErr).Msg("failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(out, "✗ %s returned unexpected status: %d\n", appName, resp.StatusCode)
		return fmt.Errorf("status check failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("read status response: %w", err)
	}
	status := gjson.GetBytes(body, "status").String()
	fmt.Fprintf(out, "✓ %s is running (%s): %s\n", appName, url, status)
	return nil
}
