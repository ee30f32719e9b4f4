// Package http exposes posts and their registered fields over a JSON:API
// surface.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/artpar/postmeta/adapters/metrics"
	"github.com/artpar/postmeta/app"
	"github.com/artpar/postmeta/pkg/jsonapi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/swaggo/swag"
	httpSwagger "github.com/swaggo/http-swagger"
)

// BasePath is where the post API is mounted.
const BasePath = "/api/v2"

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig holds the services and optional features of the router.
type RouterConfig struct {
	Posts  *app.PostService
	Fields *app.FieldService
	Auth   *app.AuthService
	Logger zerolog.Logger

	Metrics         *metrics.Collector  // optional
	MetricsGatherer prometheus.Gatherer // serves /metrics; defaults to the global registry
	Store           Pinger              // optional readiness check
	OpenAPIInstance string              // swag instance name; empty disables /swagger
	Version         string
	RequestTimeout  time.Duration // defaults to 60s
}

// NewRouter creates the main HTTP router.
func NewRouter(cfg RouterConfig) chi.Router {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(NewTracingMiddleware())
	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonapi.WriteError(w, errNotFoundRoute)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		jsonapi.WriteError(w, jsonapi.ErrMethodNotAllowed(r.Method))
	})

	health := &HealthHandler{store: cfg.Store}
	r.Get("/health", health.Liveness)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Get("/version", VersionHandler(cfg.Version))

	if cfg.Metrics != nil {
		gatherer := cfg.MetricsGatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	if name := cfg.OpenAPIInstance; name != "" {
		r.Get("/.well-known/openapi.json", func(w http.ResponseWriter, r *http.Request) {
			doc, err := swag.ReadDoc(name)
			if err != nil {
				writeError(w, r, cfg.Logger, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Write([]byte(doc))
		})
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.InstanceName(name),
			httpSwagger.URL("/.well-known/openapi.json"),
		))
	}

	h := &Handler{
		posts:  cfg.Posts,
		fields: cfg.Fields,
		logger: cfg.Logger,
	}

	r.Route(BasePath, func(r chi.Router) {
		r.Use(NewAuthMiddleware(cfg.Auth, cfg.Metrics, cfg.Logger))

		r.Get("/fields", h.ListFields)

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", h.ListPosts)
			r.Post("/", h.CreatePost)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetPost)
				r.Put("/", h.UpdatePost)
				r.Post("/", h.UpdatePost)
				r.Patch("/", h.UpdatePost)

				r.Get("/meta/{field}", h.GetField)
				r.Put("/meta/{field}", h.PutField)
			})
		})
	})

	return r
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	store Pinger
}

// Liveness returns OK while the process is running.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Readiness checks that the store answers.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// VersionResponse is the body of /version.
type VersionResponse struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

// VersionHandler reports the build version.
func VersionHandler(version string) http.HandlerFunc {
	if version == "" {
		version = "dev"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(VersionResponse{Version: version, Service: "postmeta"})
	}
}
