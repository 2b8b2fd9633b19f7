// Package filter gates protected routes behind a session. A request is
// authenticated from its session cookie, or, failing that, from trusted
// ingress headers; otherwise it is redirected to sign-in, or to first-account
// registration while a self-hosted installation has no users.
package filter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"hearthgate/internal/auth/metrics"
	"hearthgate/internal/auth/models"
	"hearthgate/internal/auth/redirect"
	"hearthgate/internal/auth/trustedheader"
	id "hearthgate/pkg/domain"
	"hearthgate/pkg/platform/middleware/ingress"
	"hearthgate/pkg/platform/privacy"
	"hearthgate/pkg/platform/sentinel"
	"hearthgate/pkg/requestcontext"
)

// SessionResolver finds the session referenced by a request's cookie.
type SessionResolver interface {
	FromRequest(r *http.Request) *models.Session
}

// Provisioner authenticates requests from trusted ingress headers.
type Provisioner interface {
	Enabled() bool
	Provision(ctx context.Context, w http.ResponseWriter, h http.Header, meta models.ClientMetadata) trustedheader.Result
}

// UserStore looks up session owners and counts accounts for first-run detection.
type UserStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	Count(ctx context.Context) (int, error)
}

// Config holds the deployment posture the filter depends on.
type Config struct {
	SelfHosted bool
}

// Authenticator is the authentication filter.
type Authenticator struct {
	cfg         Config
	sessions    SessionResolver
	users       UserStore
	provisioner Provisioner
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Authenticator)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Authenticator) {
		a.metrics = m
	}
}

// WithProvisioner enables the trusted-header fallback.
func WithProvisioner(p Provisioner) Option {
	return func(a *Authenticator) {
		a.provisioner = p
	}
}

func New(cfg Config, sessions SessionResolver, users UserStore, opts ...Option) *Authenticator {
	a := &Authenticator{
		cfg:      cfg,
		sessions: sessions,
		users:    users,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// state is the filter's position in the authentication state machine.
type state int

const (
	stateUnauthenticated state = iota
	stateAuthenticated
	stateRedirectRegistration
	stateRedirectSignIn
)

// Handler admits authenticated requests to next and redirects the rest.
func (a *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p, st := a.authenticate(w, r)
		switch st {
		case stateAuthenticated:
			ctx = withPrincipal(ctx, p)
			annotateSpan(ctx, p.user)
			next.ServeHTTP(w, r.WithContext(ctx))
		case stateRedirectRegistration:
			a.redirect(w, r, redirect.PathRegistration, "registration")
		default:
			a.redirect(w, r, redirect.PathSignIn, "sign_in")
		}
	})
}

// authenticate runs the transitions out of stateUnauthenticated: cookie, then
// trusted headers, then the redirect choice. A valid cookie always wins.
func (a *Authenticator) authenticate(w http.ResponseWriter, r *http.Request) (principal, state) {
	ctx := r.Context()

	if session := a.sessions.FromRequest(r); session != nil {
		if user := a.activeUser(ctx, session.UserID); user != nil {
			return principal{session: session, user: user}, stateAuthenticated
		}
	}

	if a.provisioner != nil && a.provisioner.Enabled() {
		meta := models.ClientMetadata{
			IPAddress: requestcontext.ClientIP(ctx),
			UserAgent: requestcontext.UserAgent(ctx),
		}
		if result := a.provisioner.Provision(ctx, w, r.Header, meta); result.Authenticated() {
			return principal{session: result.Session, user: result.User}, stateAuthenticated
		}
	}

	if a.firstRun(ctx) {
		return principal{}, stateRedirectRegistration
	}
	return principal{}, stateRedirectSignIn
}

// activeUser returns the session owner, or nil when it is gone, disabled or
// cannot be loaded.
func (a *Authenticator) activeUser(ctx context.Context, userID id.UserID) *models.User {
	user, err := a.users.FindByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			a.logger.WarnContext(ctx, "session owner lookup failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return nil
	}
	if !user.IsActive() {
		return nil
	}
	return user
}

// firstRun reports whether a self-hosted installation still has no accounts.
// Count failures fall back to the sign-in page.
func (a *Authenticator) firstRun(ctx context.Context) bool {
	if !a.cfg.SelfHosted {
		return false
	}
	count, err := a.users.Count(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "user count failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return false
	}
	return count == 0
}

func (a *Authenticator) redirect(w http.ResponseWriter, r *http.Request, target, label string) {
	a.metrics.IncFilterRedirect(label)
	location := ingress.PrefixedPath(requestcontext.MountPoint(r.Context()), target)
	http.Redirect(w, r, location, http.StatusFound)
}

func annotateSpan(ctx context.Context, user *models.User) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(
		attribute.String("enduser.id", user.ID.String()),
		attribute.String("client.address", privacy.AnonymizeIP(requestcontext.ClientIP(ctx))),
	)
}
