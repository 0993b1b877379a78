package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/swapkit-dev/swapkit"
	"github.com/swapkit-dev/swapkit/pkg/dom"
	"github.com/swapkit-dev/swapkit/pkg/form"
	"github.com/swapkit-dev/swapkit/pkg/preload"
	"github.com/swapkit-dev/swapkit/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		addr         string
		upstream     string
		watchDelay   time.Duration
		preloadDelay time.Duration
		pingInterval time.Duration
		logJSON      bool
		logLevel     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler host",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := buildLogger(logJSON, logLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			client := &http.Client{Timeout: 10 * time.Second}
			cfg := &server.Config{
				Address: addr,
				Session: &server.SessionConfig{PingInterval: pingInterval},
				Logger:  logger,
				Engine: swapkit.Config{
					OnChange: func(_ context.Context, name string, value dom.Value) error {
						logger.Info("field changed", "field", name, "value", value)
						return nil
					},
					OnActivate: func(_ context.Context, target *dom.Element) error {
						logger.Info("activated", "url", target.URL())
						return nil
					},
					Fetch:         upstreamFetch(client, upstream),
					WatchDefaults: form.Options{Delay: watchDelay},
					PreloadDelay:  preloadDelay,
					Logger:        logger,
				},
			}

			srv := server.New(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().StringVar(&upstream, "upstream", "http://127.0.0.1:3000",
		"Base URL speculative requests are sent to")
	cmd.Flags().DurationVar(&watchDelay, "watch-delay", form.DefaultDelay,
		"Default debounce delay for form observation")
	cmd.Flags().DurationVar(&preloadDelay, "preload-delay", preload.DefaultDelay,
		"Default hover delay before a speculative request")
	cmd.Flags().DurationVar(&pingInterval, "ping-interval", 30*time.Second,
		"WebSocket ping interval")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Log in JSON format")
	cmd.Flags().StringVar(&logLevel, "log-level", "info",
		"Log level (debug, info, warn, error)")

	return cmd
}

// upstreamFetch performs speculative round trips against the upstream
// application.
func upstreamFetch(client *http.Client, base string) preload.FetchFunc {
	return func(ctx context.Context, req preload.Request) ([]byte, error) {
		httpReq, err := http.NewRequestWithContext(ctx, req.Method, base+req.URL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("upstream responded %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
}

func buildLogger(json bool, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
}
