// Package trustedheader signs users in from identity headers set by a trusted
// reverse proxy (Home Assistant ingress), provisioning local accounts on
// first sight.
package trustedheader

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"hearthgate/internal/auth/metrics"
	"hearthgate/internal/auth/models"
	tenantmodels "hearthgate/internal/tenant/models"
	id "hearthgate/pkg/domain"
	dErrors "hearthgate/pkg/domain-errors"
	"hearthgate/pkg/platform/sentinel"
	"hearthgate/pkg/requestcontext"
	"hearthgate/pkg/secrets"
)

// Headers set by the ingress proxy.
const (
	HeaderUserID      = "X-Remote-User-Id"
	HeaderUserName    = "X-Remote-User-Name"
	HeaderDisplayName = "X-Remote-User-Display-Name"
)

// DefaultEmailDomain is used for placeholder addresses when none is configured.
const DefaultEmailDomain = "home-assistant.local"

// Outcome classifies a provisioning attempt.
type Outcome int

const (
	// OutcomeDisabled: the deployment does not trust ingress headers.
	OutcomeDisabled Outcome = iota
	// OutcomeMissingIdentity: no usable external user id header was present.
	OutcomeMissingIdentity
	// OutcomeInactiveUser: the resolved user is disabled.
	OutcomeInactiveUser
	// OutcomeRejected: persistence refused the data (validation or a lost uniqueness race).
	OutcomeRejected
	// OutcomeFailed: an infrastructure error interrupted provisioning.
	OutcomeFailed
	// OutcomeAuthenticated: a session was issued.
	OutcomeAuthenticated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDisabled:
		return "disabled"
	case OutcomeMissingIdentity:
		return "missing_identity"
	case OutcomeInactiveUser:
		return "inactive_user"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	case OutcomeAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Result is the value returned by Provision. Session and User are set only
// for OutcomeAuthenticated.
type Result struct {
	Outcome Outcome
	Session *models.Session
	User    *models.User
}

// Authenticated reports whether a session was issued.
func (r Result) Authenticated() bool {
	return r.Outcome == OutcomeAuthenticated && r.Session != nil
}

// Config gates trusted-header provisioning. Both SelfHosted and AutoLogin must be set.
type Config struct {
	SelfHosted  bool
	AutoLogin   bool
	EmailDomain string
}

// Enabled reports whether ingress headers may be trusted at all.
func (c Config) Enabled() bool {
	return c.SelfHosted && c.AutoLogin
}

// UserStore persists local accounts.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	UpdateName(ctx context.Context, userID id.UserID, firstName, lastName string) error
}

// IdentityStore persists external identities, unique on (provider, uid).
type IdentityStore interface {
	FindByProviderUID(ctx context.Context, provider, uid string) (*models.Identity, error)
	Upsert(ctx context.Context, identity *models.Identity) (*models.Identity, error)
}

// TenantStore resolves the household new users join.
type TenantStore interface {
	FindOrCreateByName(ctx context.Context, name string, now time.Time) (*tenantmodels.Tenant, error)
}

// SessionIssuer creates a session and sets its cookie.
type SessionIssuer interface {
	Create(ctx context.Context, w http.ResponseWriter, user *models.User, meta models.ClientMetadata) (*models.Session, error)
}

// Provisioner signs in users presented by the ingress proxy.
type Provisioner struct {
	cfg        Config
	users      UserStore
	identities IdentityStore
	tenants    TenantStore
	sessions   SessionIssuer
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

type Option func(*Provisioner)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provisioner) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Provisioner) {
		p.metrics = m
	}
}

// WithTracer replaces the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(p *Provisioner) {
		p.tracer = t
	}
}

func New(cfg Config, users UserStore, identities IdentityStore, tenants TenantStore, sessions SessionIssuer, opts ...Option) *Provisioner {
	if cfg.EmailDomain == "" {
		cfg.EmailDomain = DefaultEmailDomain
	}
	p := &Provisioner{
		cfg:        cfg,
		users:      users,
		identities: identities,
		tenants:    tenants,
		sessions:   sessions,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer("hearthgate/trustedheader")
	}
	return p
}

// Enabled reports whether Provision can ever authenticate.
func (p *Provisioner) Enabled() bool {
	return p.cfg.Enabled()
}

// headerIdentity is the sanitized view of the trusted headers.
type headerIdentity struct {
	externalID  string
	username    string
	displayName string
	firstName   string
	lastName    string
}

func readHeaders(h http.Header) headerIdentity {
	hi := headerIdentity{
		externalID:  ExternalID(h.Get(HeaderUserID)),
		username:    HeaderValue(h, HeaderUserName),
		displayName: HeaderValue(h, HeaderDisplayName),
	}
	name := hi.displayName
	if name == "" {
		name = hi.username
	}
	hi.firstName, hi.lastName = SplitName(name)
	return hi
}

func (hi headerIdentity) info() map[string]string {
	info := make(map[string]string, 2)
	if hi.username != "" {
		info["username"] = hi.username
	}
	if hi.displayName != "" {
		info["display_name"] = hi.displayName
	}
	return info
}

// Provision resolves the user named by the trusted headers, creating the
// account and identity on first sight, and issues a session whose cookie is
// written to w. It never returns an error; failures are logged and reported
// through Result.Outcome.
func (p *Provisioner) Provision(ctx context.Context, w http.ResponseWriter, h http.Header, meta models.ClientMetadata) Result {
	if !p.cfg.Enabled() {
		return Result{Outcome: OutcomeDisabled}
	}

	hi := readHeaders(h)
	if hi.externalID == "" {
		p.metrics.IncProvisioningOutcome(OutcomeMissingIdentity.String())
		return Result{Outcome: OutcomeMissingIdentity}
	}

	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "trustedheader.Provision",
		trace.WithAttributes(attribute.String("identity.digest", Digest(hi.externalID))))
	defer span.End()

	result, err := p.provision(ctx, w, hi, meta)

	span.SetAttributes(attribute.String("outcome", result.Outcome.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result.Outcome.String())
		p.logger.WarnContext(ctx, "trusted header authentication failed",
			"outcome", result.Outcome.String(),
			"identity_digest", Digest(hi.externalID),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	p.metrics.IncProvisioningOutcome(result.Outcome.String())
	p.metrics.ObserveProvisioningDuration(time.Since(start).Seconds())
	return result
}

func (p *Provisioner) provision(ctx context.Context, w http.ResponseWriter, hi headerIdentity, meta models.ClientMetadata) (Result, error) {
	now := requestcontext.Now(ctx)

	user, err := p.resolveUser(ctx, hi, now)
	if err != nil {
		return Result{Outcome: classify(err)}, err
	}
	if !user.IsActive() {
		return Result{Outcome: OutcomeInactiveUser}, nil
	}

	if err := p.refreshIdentity(ctx, user, hi, now); err != nil {
		return Result{Outcome: classify(err)}, err
	}

	session, err := p.sessions.Create(ctx, w, user, meta)
	if err != nil {
		return Result{Outcome: OutcomeFailed}, err
	}
	return Result{Outcome: OutcomeAuthenticated, Session: session, User: user}, nil
}

// resolveUser returns the user linked to the external id, provisioning one
// when no identity exists or the linked user is gone.
func (p *Provisioner) resolveUser(ctx context.Context, hi headerIdentity, now time.Time) (*models.User, error) {
	identity, err := p.identities.FindByProviderUID(ctx, models.ProviderHomeAssistant, hi.externalID)
	switch {
	case err == nil:
		user, err := p.users.FindByID(ctx, identity.UserID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, err
		}
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, err
	}
	return p.createUser(ctx, hi, now)
}

func (p *Provisioner) createUser(ctx context.Context, hi headerIdentity, now time.Time) (*models.User, error) {
	tenant, err := p.tenants.FindOrCreateByName(ctx, tenantmodels.DefaultHouseholdName, now)
	if err != nil {
		return nil, err
	}
	credential, err := secrets.Unusable()
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           id.NewUserID(),
		TenantID:     tenant.ID,
		Email:        PlaceholderEmail(hi.externalID, p.cfg.EmailDomain),
		FirstName:    hi.firstName,
		LastName:     hi.lastName,
		Role:         models.RoleForNewTenantCreator(),
		Status:       models.UserStatusActive,
		PasswordHash: credential,
		CreatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := p.users.Create(ctx, user); err != nil {
		return nil, err
	}

	p.metrics.IncUserProvisioned()
	p.logger.InfoContext(ctx, "provisioned user from trusted headers",
		"user_id", user.ID.String(),
		"tenant_id", tenant.ID.String(),
		"identity_digest", Digest(hi.externalID),
		"request_id", requestcontext.RequestID(ctx),
	)
	return user, nil
}

// refreshIdentity caches the latest header names on the user and upserts the
// identity on (provider, external id).
func (p *Provisioner) refreshIdentity(ctx context.Context, user *models.User, hi headerIdentity, now time.Time) error {
	if user.ApplyName(hi.firstName, hi.lastName) {
		if err := p.users.UpdateName(ctx, user.ID, user.FirstName, user.LastName); err != nil {
			return err
		}
	}

	_, err := p.identities.Upsert(ctx, &models.Identity{
		Provider:            models.ProviderHomeAssistant,
		UID:                 hi.externalID,
		UserID:              user.ID,
		Info:                hi.info(),
		LastAuthenticatedAt: now,
		CreatedAt:           now,
		UpdatedAt:           now,
	})
	return err
}

// classify maps persistence errors to outcomes. Uniqueness and validation
// failures are data rejections; anything else is infrastructure.
func classify(err error) Outcome {
	switch {
	case errors.Is(err, sentinel.ErrAlreadyUsed),
		errors.Is(err, sentinel.ErrInvalidInput),
		dErrors.HasCode(err, dErrors.CodeValidation),
		dErrors.HasCode(err, dErrors.CodeInvariantViolation):
		return OutcomeRejected
	default:
		return OutcomeFailed
	}
}
