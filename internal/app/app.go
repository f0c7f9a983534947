package app

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/parleychat/parley-server/internal/config"
	"github.com/parleychat/parley-server/internal/core"
	transporthttp "github.com/parleychat/parley-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// New constructs the application with provided configuration. The registry,
// history store and router are built here and passed down explicitly; there
// are no package-level singletons.
func New(cfg config.Config, logger *zerolog.Logger) *App {
	registry := core.NewRegistry()
	history := core.NewHistory(cfg.HistoryLimit)
	router := core.NewRouter(registry, history, logger)
	server := transporthttp.NewServer(router, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}
