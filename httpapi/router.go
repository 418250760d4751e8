package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	blogAuth "github.com/MrEthical07/blogAuth"
	"github.com/MrEthical07/blogAuth/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultMaxBodyBytes   = 64 << 10
)

// Options tunes the router. The zero value is usable.
type Options struct {
	Logger *slog.Logger
	// MetricsHandler is mounted at /metrics when non-nil.
	MetricsHandler http.Handler
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	// TrustProxyHeaders enables X-Forwarded-For / X-Real-IP handling. Only
	// set it behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
}

// NewRouter wires every route onto engine.
func NewRouter(engine *blogAuth.Engine, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}

	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	if opts.TrustProxyHeaders {
		r.Use(chiMiddleware.RealIP)
	}
	r.Use(requestLogger(opts.Logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(opts.RequestTimeout))
	r.Use(clientIP)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusNotFound, middleware.ErrorBody{Error: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusMethodNotAllowed, middleware.ErrorBody{Error: "method not allowed"})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := engine.Ping(r.Context()); err != nil {
			opts.Logger.ErrorContext(r.Context(), "health check failed", "error", err)
			middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	authHandler := NewAuthHandler(engine, opts.Logger, opts.MaxBodyBytes)
	adminHandler := NewAdminHandler(engine, opts.Logger, opts.MaxBodyBytes)

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", authHandler.RegisterRoutes)
		api.Route("/admin", func(admin chi.Router) {
			admin.Use(middleware.Authenticate(engine))
			admin.Use(middleware.RequireAdmin())
			admin.Route("/users", adminHandler.RegisterRoutes)
		})
	})

	return r
}
