package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hearthgate/internal/auth/filter"
	authhandler "hearthgate/internal/auth/handler"
	"hearthgate/internal/auth/metrics"
	"hearthgate/internal/platform/health"
	tenanthandler "hearthgate/internal/tenant/handler"
	"hearthgate/pkg/platform/middleware/ingress"
	"hearthgate/pkg/platform/middleware/metadata"
	request "hearthgate/pkg/platform/middleware/request"
	"hearthgate/pkg/platform/middleware/requesttime"
)

// Deps collects what the router mounts. Handlers keep their own business
// logic; the router only composes middleware and routes.
type Deps struct {
	Logger         *slog.Logger
	Ingress        *ingress.Resolver
	Metadata       *metadata.Middleware
	RequestMetrics *request.Metrics
	RequestTimeout time.Duration

	Health        *health.Handler
	Metrics       http.Handler
	Auth          *authhandler.Handler
	Household     *tenanthandler.Handler
	Authenticator *filter.Authenticator
	AuthMetrics   *metrics.Metrics
}

// NewRouter wires the middleware stack and the public and protected routes.
// The ingress resolver runs before anything that reads the path, so logs,
// metrics and routing all see application-relative paths.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(d.Logger))
	r.Use(request.RequestID)
	r.Use(d.Ingress.Handler)
	r.Use(requesttime.Middleware)
	r.Use(d.Metadata.Handler)
	r.Use(request.Logger(d.Logger))
	r.Use(request.LatencyMiddleware(d.RequestMetrics))
	if d.RequestTimeout > 0 {
		r.Use(request.Timeout(d.RequestTimeout))
	}

	d.Health.Register(r)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.Group(func(r chi.Router) {
		d.Auth.RegisterPublic(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(d.Authenticator.Handler)
		r.Use(filter.RequireOnboarding(d.AuthMetrics))
		d.Auth.Register(r)
		d.Household.Register(r)
	})

	return r
}
