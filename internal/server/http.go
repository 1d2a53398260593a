package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/riddle-gift/internal/config"
	"github.com/gokatarajesh/riddle-gift/internal/logging"
	"github.com/gokatarajesh/riddle-gift/internal/session"
	httperrors "github.com/gokatarajesh/riddle-gift/pkg/http/errors"
)

// NewWSUpgrader accepts WebSocket upgrades from the API's own host, from
// allowedOrigins, and from clients that send no Origin header at all.
// A "*" entry allows every origin.
func NewWSUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			allowed[strings.ToLower(origin)] = true
		}
	}
	return &websocket.Upgrader{
		CheckOrigin:     originChecker(allowed),
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

func originChecker(allowed map[string]bool) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowed["*"] || allowed[strings.ToLower(origin)] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Routes collects the handlers the API serves. Nil handlers are skipped.
type Routes struct {
	Store         Pinger
	Gatherer      prometheus.Gatherer
	Sessions      *session.Manager
	CreateSession http.HandlerFunc
	Game          func(r chi.Router)
	GameWebSocket http.HandlerFunc
}

// NewRouter builds the API router.
func NewRouter(logger zerolog.Logger, routes Routes) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	gatherer := routes.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Get("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if routes.Store != nil {
			if err := routes.Store.Ping(r.Context()); err != nil {
				logging.FromContext(r.Context()).Error().Err(err).Msg("dependency ping failed")
				httperrors.RespondBadGateway(w, "progress store unreachable")
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	if routes.CreateSession != nil {
		r.Post("/v1/session", routes.CreateSession)
	}

	if routes.Sessions != nil {
		r.Group(func(r chi.Router) {
			r.Use(session.Middleware(routes.Sessions, logger))
			if routes.Game != nil {
				routes.Game(r)
			}
			if routes.GameWebSocket != nil {
				r.Get("/ws/game", routes.GameWebSocket)
			}
		})
	}

	return r
}

// NewHTTPServer wraps the router in a server bound to HTTP_ADDR.
// WriteTimeout stays unset: streamed answers and WebSockets are long-lived.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, routes Routes) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(logger, routes),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// requestLogger attaches a request-scoped logger and logs each request.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := logger.With().
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Logger()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(logging.IntoContext(r.Context(), reqLogger)))

			reqLogger.Debug().
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Msg("request served")
		})
	}
}
