// Package session issues browser sessions and resolves them from the signed cookie.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"hearthgate/internal/auth/cookie"
	"hearthgate/internal/auth/device"
	"hearthgate/internal/auth/metrics"
	"hearthgate/internal/auth/models"
	id "hearthgate/pkg/domain"
	"hearthgate/pkg/platform/sentinel"
	"hearthgate/pkg/requestcontext"
)

// DefaultCookieName is the cookie carrying the signed session id.
const DefaultCookieName = "session_token"

// permanentLifetime matches the conventional "permanent" cookie lifetime.
const permanentLifetime = 20 * 365 * 24 * time.Hour

// Store persists sessions.
// Error Contract: FindByID returns sentinel.ErrNotFound when the session does not exist.
type Store interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
}

// Service issues sessions and resolves them from request cookies.
type Service struct {
	store        Store
	signer       *cookie.Signer
	cookieName   string
	cookieSecure bool
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithCookieName overrides DefaultCookieName. Empty names are ignored.
func WithCookieName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.cookieName = name
		}
	}
}

// WithSecureCookie marks the session cookie Secure.
func WithSecureCookie(secure bool) Option {
	return func(s *Service) {
		s.cookieSecure = secure
	}
}

func NewService(store Store, signer *cookie.Signer, opts ...Option) *Service {
	svc := &Service{
		store:      store,
		signer:     signer,
		cookieName: DefaultCookieName,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// CookieName returns the name of the session cookie.
func (s *Service) CookieName() string {
	return s.cookieName
}

// Create persists a new session for user and sets the signed cookie on w.
func (s *Service) Create(ctx context.Context, w http.ResponseWriter, user *models.User, meta models.ClientMetadata) (*models.Session, error) {
	if user == nil || user.ID.IsNil() {
		return nil, fmt.Errorf("session requires a user: %w", sentinel.ErrInvalidInput)
	}
	now := requestcontext.Now(ctx)
	session := &models.Session{
		ID:                id.NewSessionID(),
		UserID:            user.ID,
		UserAgent:         meta.UserAgent,
		IPAddress:         meta.IPAddress,
		DeviceDisplayName: device.DisplayName(meta.UserAgent),
		CreatedAt:         now,
	}

	value, err := s.signer.Sign(session.ID, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    value,
		Path:     "/",
		Expires:  now.Add(permanentLifetime),
		MaxAge:   int(permanentLifetime.Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	s.metrics.IncSessionCreated()
	return session, nil
}

// FindByCookie resolves a raw cookie value to its session. It returns nil for
// an empty value, a value that fails verification, or an id with no stored
// session. Store failures are logged and also yield nil.
func (s *Service) FindByCookie(ctx context.Context, value string) *models.Session {
	if value == "" {
		s.metrics.IncCookieLookup(metrics.LookupAbsent)
		return nil
	}

	sessionID, err := s.signer.Verify(value)
	if err != nil {
		s.metrics.IncCookieLookup(metrics.LookupInvalid)
		s.logger.DebugContext(ctx, "session cookie rejected",
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil
	}

	session, err := s.store.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncCookieLookup(metrics.LookupNotFound)
			return nil
		}
		s.metrics.IncCookieLookup(metrics.LookupError)
		s.logger.WarnContext(ctx, "session lookup failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil
	}

	s.metrics.IncCookieLookup(metrics.LookupFound)
	return session
}

// FromRequest resolves the session referenced by the request's cookie.
func (s *Service) FromRequest(r *http.Request) *models.Session {
	var value string
	if c, err := r.Cookie(s.cookieName); err == nil {
		value = c.Value
	}
	return s.FindByCookie(r.Context(), value)
}
