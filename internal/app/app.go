package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/riddle-gift/internal/config"
	"github.com/gokatarajesh/riddle-gift/internal/game"
	"github.com/gokatarajesh/riddle-gift/internal/logging"
	"github.com/gokatarajesh/riddle-gift/internal/server"
	"github.com/gokatarajesh/riddle-gift/internal/session"
	ws "github.com/gokatarajesh/riddle-gift/pkg/http/ws"
)

// Application aggregates shared infrastructure (store, completion client, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	game  *Game
	relay *game.Relay
	http  *http.Server
}

// New bootstraps logger, catalog, completion client, progress store and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	if cfg.Security.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET must be configured")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	g, err := NewGame(ctx, cfg, logger, registry)
	if err != nil {
		return nil, err
	}

	sessions := session.NewManager(session.Config{
		Secret: []byte(cfg.Security.SessionSecret),
		TTL:    cfg.Security.SessionTTL,
		Issuer: cfg.Name,
	})
	sessionHandler := session.NewHandler(sessions, cfg.Security.SecureCookie, logger)

	wsHub := ws.NewHub(logger)
	gameHTTP := game.NewHTTPHandlers(g.Service, logger)
	gameWS := game.NewHandler(g.Service, wsHub, logger).WithAllowedOrigins(cfg.Security.AllowedOrigins)

	var relay *game.Relay
	if cfg.Redis.Addr != "" {
		relay = game.NewRelay(redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
		}), wsHub, cfg.Redis.RelayChannel, logger)
		gameWS.WithPublisher(relay)
		logger.Info().Str("channel", cfg.Redis.RelayChannel).Msg("redis relay enabled")
	}

	apiServer := server.NewHTTPServer(cfg, logger, server.Routes{
		Store:         g.Store,
		Gatherer:      registry,
		Sessions:      sessions,
		CreateSession: sessionHandler.Create,
		Game:          gameHTTP.Routes,
		GameWebSocket: gameWS.HandleWebSocket,
	})

	return &Application{
		cfg:    cfg,
		logger: logger,
		game:   g,
		relay:  relay,
		http:   apiServer,
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	if a.relay != nil {
		go func() {
			if err := a.relay.Run(relayCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error().Err(err).Msg("relay stopped")
			}
		}()
	}

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}
	stopRelay()
	if a.relay != nil {
		if err := a.relay.Close(); err != nil {
			a.logger.Error().Err(err).Msg("relay shutdown error")
		}
	}
	if err := a.game.Close(); err != nil {
		a.logger.Error().Err(err).Msg("resource shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return runErr
}
