package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"carteret/internal/identity"
	"carteret/internal/jwttoken"
	"carteret/pkg/platform/httputil"
)

// Registrar mounts a handler's routes on the router.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker func() error

// NewRouter assembles the full HTTP surface. Authentication is optional on
// every route; handlers and services decide what an anonymous caller may do.
func NewRouter(tokens *jwttoken.JWTService, resolver *identity.Resolver,
	logger *slog.Logger, health HealthChecker, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(RequestMetadata)
	r.Use(RequestLog(logger))
	r.Use(Authenticate(tokens, resolver, logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if health != nil {
			if err := health(); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	for _, h := range handlers {
		h.Register(r)
	}
	return r
}
