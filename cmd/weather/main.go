// Command weather manages the country, city and station hierarchy and
// fetches station measurements.
//
// Usage:
//
//	weather serve
//	weather countries | cities [country] | stations [city] | tree
//	weather add-country <id> <name>
//	weather add-city <id> <name> <country>
//	weather add-station [-no-validate] <id> <name> <city> <url>
//	weather set-url [-no-validate] <station> <url>
//	weather remove-country|remove-city|remove-station <id>
//	weather fetch <station>
//	weather refresh <station>
//	weather archive <station> [limit]
//	weather validate-url <url>
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/station-weather/internal/adapter/http"
	"github.com/couchcryptid/station-weather/internal/app"
	"github.com/couchcryptid/station-weather/internal/config"
	"github.com/couchcryptid/station-weather/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	a, err := app.New(cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	if args[0] == "serve" {
		err = serve(ctx, cfg, a, logger)
	} else {
		err = run(ctx, a, args, os.Stdout)
	}
	stop()

	if closeErr := a.Close(); closeErr != nil {
		logger.Error("close error", "error", closeErr)
	}
	if errors.Is(err, errUsage) {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", "command", args[0], "error", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config, a *app.App, logger *slog.Logger) error {
	srv := httpadapter.NewServer(cfg.HTTPAddr, a, a, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
