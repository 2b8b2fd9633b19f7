package trustedheader

//go:generate mockgen -source=provisioner.go -destination=mocks/mocks.go -package=mocks UserStore,IdentityStore,TenantStore,SessionIssuer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"hearthgate/internal/auth/metrics"
	"hearthgate/internal/auth/models"
	"hearthgate/internal/auth/trustedheader/mocks"
	tenantmodels "hearthgate/internal/tenant/models"
	id "hearthgate/pkg/domain"
	"hearthgate/pkg/platform/sentinel"
	"hearthgate/pkg/requestcontext"
)

const externalID = "c0ffee00c0ffee00c0ffee00c0ffee00"

type ProvisionerSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	users      *mocks.MockUserStore
	identities *mocks.MockIdentityStore
	tenants    *mocks.MockTenantStore
	sessions   *mocks.MockSessionIssuer
	metrics    *metrics.Metrics
	logs       *bytes.Buffer
	now        time.Time
	ctx        context.Context
}

func TestProvisionerSuite(t *testing.T) {
	suite.Run(t, new(ProvisionerSuite))
}

func (s *ProvisionerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.users = mocks.NewMockUserStore(s.ctrl)
	s.identities = mocks.NewMockIdentityStore(s.ctrl)
	s.tenants = mocks.NewMockTenantStore(s.ctrl)
	s.sessions = mocks.NewMockSessionIssuer(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.logs = &bytes.Buffer{}
	s.now = time.Date(2026, 6, 1, 8, 30, 0, 0, time.UTC)
	s.ctx = requestcontext.WithRequestID(requestcontext.WithTime(context.Background(), s.now), "req-42")
}

func (s *ProvisionerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ProvisionerSuite) provisioner(cfg Config) *Provisioner {
	return New(cfg, s.users, s.identities, s.tenants, s.sessions,
		WithLogger(slog.New(slog.NewJSONHandler(s.logs, nil))),
		WithMetrics(s.metrics),
	)
}

func enabled() Config {
	return Config{SelfHosted: true, AutoLogin: true}
}

func headers(kv ...string) http.Header {
	h := http.Header{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}

func activeUser() *models.User {
	return &models.User{
		ID:        id.NewUserID(),
		TenantID:  id.NewTenantID(),
		Email:     PlaceholderEmail(externalID, DefaultEmailDomain),
		FirstName: "Ada",
		LastName:  "Lovelace",
		Role:      models.RoleAdmin,
		Status:    models.UserStatusActive,
	}
}

func (s *ProvisionerSuite) outcomeCount(o Outcome) float64 {
	return testutil.ToFloat64(s.metrics.ProvisioningOutcomes.WithLabelValues(o.String()))
}

func (s *ProvisionerSuite) TestDisabled() {
	h := headers(HeaderUserID, externalID)

	for name, cfg := range map[string]Config{
		"hosted deployment": {SelfHosted: false, AutoLogin: true},
		"auto login off":    {SelfHosted: true, AutoLogin: false},
		"both switches off": {},
	} {
		s.Run(name, func() {
			result := s.provisioner(cfg).Provision(s.ctx, httptest.NewRecorder(), h, models.ClientMetadata{})
			s.Equal(OutcomeDisabled, result.Outcome)
			s.False(result.Authenticated())
		})
	}
}

func (s *ProvisionerSuite) TestMissingIdentity() {
	for name, h := range map[string]http.Header{
		"no headers":          headers(),
		"blank id":            headers(HeaderUserID, "   "),
		"only names provided": headers(HeaderUserName, "ada", HeaderDisplayName, "Ada Lovelace"),
	} {
		s.Run(name, func() {
			result := s.provisioner(enabled()).Provision(s.ctx, httptest.NewRecorder(), h, models.ClientMetadata{})
			s.Equal(OutcomeMissingIdentity, result.Outcome)
		})
	}
}

func (s *ProvisionerSuite) TestExistingIdentity() {
	user := activeUser()
	identity := &models.Identity{Provider: models.ProviderHomeAssistant, UID: externalID, UserID: user.ID}
	session := &models.Session{ID: id.NewSessionID(), UserID: user.ID}
	meta := models.ClientMetadata{IPAddress: "172.30.32.2", UserAgent: "HomeAssistant/2026.6"}

	s.identities.EXPECT().FindByProviderUID(gomock.Any(), models.ProviderHomeAssistant, externalID).Return(identity, nil)
	s.users.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)
	s.users.EXPECT().UpdateName(gomock.Any(), user.ID, "ada", "Lovelace").Return(nil)
	s.identities.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, got *models.Identity) (*models.Identity, error) {
			s.Equal(externalID, got.UID)
			s.Equal(user.ID, got.UserID)
			s.Equal(s.now, got.LastAuthenticatedAt)
			s.Equal(map[string]string{"username": "ada"}, got.Info)
			return got, nil
		})
	s.sessions.EXPECT().Create(gomock.Any(), gomock.Any(), user, meta).Return(session, nil)

	result := s.provisioner(enabled()).Provision(s.ctx, httptest.NewRecorder(),
		headers(HeaderUserID, externalID, HeaderUserName, "ada"), meta)

	s.Equal(OutcomeAuthenticated, result.Outcome)
	s.True(result.Authenticated())
	s.Equal(session, result.Session)
	s.Equal(user.ID, result.User.ID)
	s.InDelta(1, s.outcomeCount(OutcomeAuthenticated), 0)
}

func (s *ProvisionerSuite) TestExistingIdentityRefreshesCachedName() {
	user := activeUser()
	identity := &models.Identity{Provider: models.ProviderHomeAssistant, UID: externalID, UserID: user.ID}

	s.identities.EXPECT().FindByProviderUID(gomock.Any(), gomock.Any(), gomock.Any()).Return(identity, nil)
	s.users.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)
	s.users.EXPECT().UpdateName(gomock.Any(), user.ID, "Grace", "Hopper").Return(nil)
	s.identities.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, got *models.Identity) (*models.Identity, error) {
			s.Equal(map[string]string{"username": "grace", "display_name": "Grace Hopper"}, got.Info)
			return got, nil
		})
	s.sessions.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&models.Session{ID: id.NewSessionID(), UserID: user.ID}, nil)

	result := s.provisioner(enabled()).Provision(s.ctx, httptest.NewRecorder(),
		headers(HeaderUserID, externalID, HeaderUserName, "grace", HeaderDisplayName, "Grace Hopper"),
		models.ClientMetadata{})

	s.Equal(OutcomeAuthenticated, result.Outcome)
	s.Equal("Grace", result.User.FirstName)
}

func (s *ProvisionerSuite) TestNewUser() {
	tenant := &tenantmodels.Tenant{ID: id.NewTenantID(), Name: tenantmodels.DefaultHouseholdName}
	var created *models.User

	s.identities.EXPECT().FindByProviderUID(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("identity not found: %w", sentinel.ErrNotFound))
	s.tenants.EXPECT().FindOrCreateByName(gomock.Any(), tenantmodels.DefaultHouseholdName, s.now).Return(tenant, nil)
	s.users.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, u *models.User) error {
			created = u
			return nil
		})
	s.identities.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, got *models.Identity) (*models.Identity, error) {
			s.Equal(created.ID, got.UserID)
			return got, nil
		})
	s.sessions.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ http.ResponseWriter, u *models.User, _ models.ClientMetadata) (*models.Session, error) {
			return &models.Session{ID: id.NewSessionID(), UserID: u.ID}, nil
		})

	result := s.provisioner(Config{SelfHosted: true, AutoLogin: true, EmailDomain: "ha.example"}).Provision(
		s.ctx, httptest.NewRecorder(),
		headers(HeaderUserID, externalID, HeaderUserName, "ada", HeaderDisplayName, "Ada  Lovelace"),
		models.ClientMetadata{})

	s.Require().Equal(OutcomeAuthenticated, result.Outcome)
	s.Require().NotNil(created)
	s.Equal(tenant.ID, created.TenantID)
	s.Equal(PlaceholderEmail(externalID, "ha.example"), created.Email)
	s.Equal("Ada", created.FirstName)
	s.Equal("Lovelace", created.LastName)
	s.Equal(models.RoleForNewTenantCreator(), created.Role)
	s.True(created.IsActive())
	s.True(created.NeedsOnboarding())
	s.NotEmpty(created.PasswordHash)
	s.InDelta(1, testutil.ToFloat64(s.metrics.UsersProvisioned), 0)
}

func (s *ProvisionerSuite) TestNewUserFallsBackToUsername() {
	var created *models.User
	s.identities.EXPECT().FindByProviderUID(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
	s.tenants.EXPECT().FindOrCreateByName(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&tenantmodels.Tenant{ID: id.NewTenantID()}, nil)
	s.users.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *models.User) error {
		created = u
		return nil
	})
	s.identities.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(&models.Identity{}, nil)
	s.sessions.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(&models.Session{}, nil)

	s.provisioner(enabled()).Provision(s.ctx, httptest.NewRecorder(),
		headers(HeaderUserID, externalID, HeaderUserName, "ada"), models.ClientMetadata{})

	s.Require().NotNil(created)
	s.Equal("ada", created.FirstName)
	s.Empty(created.LastName)
}

func (s *ProvisionerSuite) TestDanglingIdentityProvisionsNewUser() {
	identity := &models.Identity{Provider: models.ProviderHomeAssistant, UID: externalID, UserID: id.NewUserID()}

	s.identities.EXPECT().FindByProviderUID(gomock.Any(), gomock.Any(), gomock.Any()).Return(identity, nil)
	s.users.EXPECT().FindByID(gomock.Any(), identity.UserID).Return(nil, sentinel.ErrNotFound)
	s.tenants.EXPECT().FindOrCreateByName(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&tenantmodels.Tenant{ID: id.NewTenantID()}, nil)
	s.users.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	s.identities.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(identity, nil)
	s.sessions.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(&models.Session{}, nil)

	result := s.provisioner(enabled()).Provision(s.ctx, httptest.NewRecorder(),
		headers(HeaderUserID, externalID), models.ClientMetadata{})
	s.Equal(OutcomeAuthenticated, result.Outcome)
}

func (s *ProvisionerSuite) TestInactiveUserGetsNoSession() {
	user := activeUser()
	user.Status = models.UserStatusInactive

	s.identities.EXPECT().FindByProviderUID(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&models.Identity{UserID: user.ID}, nil)
	s.users.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)

	result := s.provisioner(enabled()).Provision(s.ctx, httptest.NewRecorder(),
		headers(HeaderUserID, externalID), models.ClientMetadata{})

	s.Equal(OutcomeInactiveUser, result.Outcome)
	s.Nil(result.Session)
}

func (s *ProvisionerSuite) TestLostUniquenessRaceIsRejected() {
	s.identities.EXPECT().FindByProviderUID(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
	s.tenants.EXPECT().FindOrCreateByName(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&tenantmodels.Tenant{ID: id.NewTenantID()}, nil)
	s.users.EXPECT().Create(gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("email already registered: %w", sentinel.ErrAlreadyUsed))

	result := s.provisioner(enabled()).Provision(s.ctx, httptest.NewRecorder(),
		headers(HeaderUserID, externalID, HeaderDisplayName, "Ada Lovelace"), models.ClientMetadata{})

	s.Equal(OutcomeRejected, result.Outcome)
	s.Nil(result.Session)
	s.InDelta(1, s.outcomeCount(OutcomeRejected), 0)

	logged := s.logs.String()
	s.Contains(logged, "trusted header authentication failed")
	s.Contains(logged, Digest(externalID))
	s.Contains(logged, "req-42")
	s.NotContains(logged, externalID)
	s.NotContains(logged, "Ada Lovelace")
}

func (s *ProvisionerSuite) TestInvalidEmailDomainIsRejectedBeforePersistence() {
	s.identities.EXPECT().FindByProviderUID(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
	s.tenants.EXPECT().FindOrCreateByName(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&tenantmodels.Tenant{ID: id.NewTenantID()}, nil)

	result := s.provisioner(Config{SelfHosted: true, AutoLogin: true, EmailDomain: "not a domain"}).Provision(
		s.ctx, httptest.NewRecorder(), headers(HeaderUserID, externalID), models.ClientMetadata{})

	s.Equal(OutcomeRejected, result.Outcome)
}

func (s *ProvisionerSuite) TestInfrastructureFailures() {
	boom := errors.New("connection reset by peer")

	s.Run("identity lookup", func() {
		s.identities.EXPECT().FindByProviderUID(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, boom)

		result := s.provisioner(enabled()).Provision(s.ctx, httptest.NewRecorder(),
			headers(HeaderUserID, externalID), models.ClientMetadata{})
		s.Equal(OutcomeFailed, result.Outcome)
	})

	s.Run("identity upsert", func() {
		user := activeUser()
		s.identities.EXPECT().FindByProviderUID(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&models.Identity{UserID: user.ID}, nil)
		s.users.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)
		s.identities.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(nil, boom)

		result := s.provisioner(enabled()).Provision(s.ctx, httptest.NewRecorder(),
			headers(HeaderUserID, externalID), models.ClientMetadata{})
		s.Equal(OutcomeFailed, result.Outcome)
	})

	s.Run("session issue", func() {
		user := activeUser()
		s.identities.EXPECT().FindByProviderUID(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&models.Identity{UserID: user.ID}, nil)
		s.users.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)
		s.identities.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(&models.Identity{}, nil)
		s.sessions.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, boom)

		result := s.provisioner(enabled()).Provision(s.ctx, httptest.NewRecorder(),
			headers(HeaderUserID, externalID), models.ClientMetadata{})
		s.Equal(OutcomeFailed, result.Outcome)
		s.Nil(result.Session)
	})
}

func TestOutcomeString(t *testing.T) {
	for o, want := range map[Outcome]string{
		OutcomeDisabled:        "disabled",
		OutcomeMissingIdentity: "missing_identity",
		OutcomeInactiveUser:    "inactive_user",
		OutcomeRejected:        "rejected",
		OutcomeFailed:          "failed",
		OutcomeAuthenticated:   "authenticated",
		Outcome(99):            "unknown",
	} {
		if got := o.String(); got != want {
			t.Errorf("Outcome(%d).String() = %q, want %q", o, got, want)
		}
	}
}
