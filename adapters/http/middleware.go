package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/artpar/postmeta/adapters/metrics"
	"github.com/artpar/postmeta/app"
	"github.com/artpar/postmeta/domain/identity"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey struct{}

// WithIdentity returns a context carrying the resolved caller.
func WithIdentity(ctx context.Context, id identity.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFrom returns the caller stored by the auth middleware, or the
// anonymous identity.
func IdentityFrom(ctx context.Context) identity.Identity {
	if id, ok := ctx.Value(ctxKey{}).(identity.Identity); ok {
		return id
	}
	return identity.Anonymous
}

// NewAuthMiddleware resolves the caller from the X-API-Key header or an
// Authorization bearer credential. Requests without credentials continue
// as anonymous; bad credentials are rejected with 401.
func NewAuthMiddleware(auth *app.AuthService, m *metrics.Collector, logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey, bearer := credentials(r, auth.KeyPrefix())

			caller, err := auth.Resolve(r.Context(), apiKey, bearer)
			if err != nil {
				if m != nil && errors.Is(err, app.ErrUnauthorized) {
					scheme := "bearer"
					if apiKey != "" {
						scheme = "api_key"
					}
					m.AuthFailures.WithLabelValues(scheme).Inc()
				}
				writeError(w, r, logger, err)
				return
			}

			if !caller.IsAnonymous() {
				trace.SpanFromContext(r.Context()).SetAttributes(
					attribute.String("enduser.id", caller.UserID),
					attribute.String("enduser.role", string(caller.Role)),
				)
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), caller)))
		})
	}
}

// credentials extracts an API key and a bearer token. A bearer value that
// carries the API key prefix is treated as an API key.
func credentials(r *http.Request, keyPrefix string) (apiKey, bearer string) {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k, ""
	}
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", ""
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	if keyPrefix != "" && strings.HasPrefix(token, keyPrefix) {
		return token, ""
	}
	return "", token
}

// NewLoggingMiddleware logs HTTP requests.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if skipInstrumentation(r.URL.Path) {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

// NewMetricsMiddleware records request counts and latency by route pattern.
func NewMetricsMiddleware(m *metrics.Collector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipInstrumentation(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := routePattern(r)
			m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			m.RequestsTotal.WithLabelValues(r.Method, route, metrics.StatusClass(ww.Status())).Inc()
		})
	}
}

// NewTracingMiddleware starts a server span per request, continuing any
// trace propagated in the request headers.
func NewTracingMiddleware() func(next http.Handler) http.Handler {
	tracer := otel.Tracer("github.com/artpar/postmeta/adapters/http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipInstrumentation(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", r.Method),
					attribute.String("url.path", r.URL.Path),
				),
			)
			defer span.End()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			span.SetName(r.Method + " " + routePattern(r))
			span.SetAttributes(attribute.Int("http.response.status_code", ww.Status()))
			if ww.Status() >= 500 {
				span.SetStatus(codes.Error, http.StatusText(ww.Status()))
			}
		})
	}
}

// routePattern returns the matched chi pattern so labels stay bounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func skipInstrumentation(path string) bool {
	return strings.HasPrefix(path, "/health") || path == "/metrics" ||
		strings.HasPrefix(path, "/swagger") || strings.HasPrefix(path, "/.well-known")
}
