// Package handler serves the authentication pages and the signed-in landing,
// onboarding and profile endpoints as JSON. Links in every response carry the
// request's mount point.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hearthgate/internal/auth/filter"
	"hearthgate/internal/auth/models"
	"hearthgate/internal/auth/redirect"
	id "hearthgate/pkg/domain"
	dErrors "hearthgate/pkg/domain-errors"
	"hearthgate/pkg/platform/httputil"
	"hearthgate/pkg/platform/middleware/ingress"
	"hearthgate/pkg/requestcontext"
)

// UserStore records onboarding completion.
type UserStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	MarkOnboarded(ctx context.Context, userID id.UserID, at time.Time) error
}

type Handler struct {
	users  UserStore
	logger *slog.Logger
}

func New(users UserStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{users: users, logger: logger}
}

// RegisterPublic registers the pages reachable without a session.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get(redirect.PathSignIn, h.page("sign_in"))
	r.Get(redirect.PathRegistration, h.page("registration"))
	r.Get(redirect.PathPasswordReset, h.page("password_reset"))
	r.Get(redirect.PathEmailConfirmation, h.page("email_confirmation"))
}

// Register registers the routes that require Authenticator.Handler.
func (h *Handler) Register(r chi.Router) {
	r.Get(redirect.PathRoot, h.HandleLanding)
	r.Get(redirect.PathDashboard, h.HandleLanding)
	r.Get(redirect.PathOnboarding, h.HandleOnboarding)
	r.Post(redirect.PathOnboarding, h.HandleCompleteOnboarding)
	r.Get("/api/v1/me", h.HandleMe)
}

func (h *Handler) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mountPoint := requestcontext.MountPoint(r.Context())
		httputil.WriteJSON(w, http.StatusOK, &PageResponse{
			Page:       name,
			MountPoint: mountPoint,
			Links:      authLinks(mountPoint),
		})
	}
}

// HandleLanding implements GET / and GET /dashboard.
func (h *Handler) HandleLanding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, user := filter.Current(ctx)
	if user == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	mountPoint := requestcontext.MountPoint(ctx)
	httputil.WriteJSON(w, http.StatusOK, &LandingResponse{
		User:       toUserResponse(user),
		MountPoint: mountPoint,
		Navigation: navigation(mountPoint, r.URL.Path),
	})
}

// HandleOnboarding implements GET /onboarding.
func (h *Handler) HandleOnboarding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, user := filter.Current(ctx)
	if user == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	mountPoint := requestcontext.MountPoint(ctx)
	httputil.WriteJSON(w, http.StatusOK, &OnboardingResponse{
		User:     toUserResponse(user),
		Complete: !user.NeedsOnboarding(),
		Submit:   ingress.PrefixedPath(mountPoint, redirect.PathOnboarding),
		Next:     ingress.PrefixedPath(mountPoint, redirect.PathDashboard),
	})
}

// HandleCompleteOnboarding implements POST /onboarding. Completing twice is
// harmless; the first completion time is kept.
func (h *Handler) HandleCompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	_, user := filter.Current(ctx)
	if user == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	if err := h.users.MarkOnboarded(ctx, user.ID, requestcontext.Now(ctx)); err != nil {
		h.logger.ErrorContext(ctx, "complete onboarding failed",
			"error", err,
			"user_id", user.ID.String(),
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to complete onboarding"))
		return
	}
	updated, err := h.users.FindByID(ctx, user.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "reload user failed",
			"error", err,
			"user_id", user.ID.String(),
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user"))
		return
	}

	h.logger.InfoContext(ctx, "onboarding completed",
		"user_id", user.ID.String(),
		"request_id", requestID,
	)
	mountPoint := requestcontext.MountPoint(ctx)
	httputil.WriteJSON(w, http.StatusOK, &OnboardingResponse{
		User:     toUserResponse(updated),
		Complete: true,
		Submit:   ingress.PrefixedPath(mountPoint, redirect.PathOnboarding),
		Next:     ingress.PrefixedPath(mountPoint, redirect.PathDashboard),
	})
}

// HandleMe implements GET /api/v1/me.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	session, user := filter.Current(r.Context())
	if user == nil || session == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &MeResponse{
		User:    toUserResponse(user),
		Session: toSessionResponse(session),
	})
}

func authLinks(mountPoint string) map[string]string {
	return map[string]string{
		"sign_in":            ingress.PrefixedPath(mountPoint, redirect.PathSignIn),
		"registration":       ingress.PrefixedPath(mountPoint, redirect.PathRegistration),
		"password_reset":     ingress.PrefixedPath(mountPoint, redirect.PathPasswordReset),
		"email_confirmation": ingress.PrefixedPath(mountPoint, redirect.PathEmailConfirmation),
	}
}

func navigation(mountPoint, requestPath string) []NavLink {
	entries := []struct{ name, path string }{
		{"dashboard", redirect.PathDashboard},
		{"onboarding", redirect.PathOnboarding},
		{"me", "/api/v1/me"},
	}
	links := make([]NavLink, 0, len(entries))
	for _, e := range entries {
		href := ingress.PrefixedPath(mountPoint, e.path)
		links = append(links, NavLink{
			Name:   e.name,
			Href:   href,
			Active: redirect.PageActive(mountPoint, requestPath, href),
		})
	}
	return links
}
