package http

import (
	"net/http"

	"github.com/artpar/postmeta/app"
	"github.com/artpar/postmeta/pkg/jsonapi"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

var errNotFoundRoute = jsonapi.NewError(http.StatusNotFound, "rest_no_route", "No route was found matching the URL and request method.")

// writeError maps an operation error to a JSON:API error response.
// Internal causes are logged, never written to the client.
func writeError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	e := app.AsError(err)
	status := e.Status()

	if status >= 500 {
		logger.Error().Err(err).
			Str("code", e.Code).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request failed")
	}

	out := jsonapi.NewError(status, e.Code, e.Message)
	if e.Field != "" {
		out = out.WithPointer(e.Field)
	}
	if e.Code == app.CodeInvalidPostID {
		out = out.WithParameter("id")
	}
	jsonapi.WriteError(w, out)
}
