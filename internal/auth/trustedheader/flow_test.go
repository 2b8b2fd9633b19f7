package trustedheader_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearthgate/internal/auth/cookie"
	"hearthgate/internal/auth/metrics"
	"hearthgate/internal/auth/models"
	"hearthgate/internal/auth/session"
	identitystore "hearthgate/internal/auth/store/identity"
	sessionstore "hearthgate/internal/auth/store/session"
	userstore "hearthgate/internal/auth/store/user"
	"hearthgate/internal/auth/trustedheader"
	tenantstore "hearthgate/internal/tenant/store/tenant"
	"hearthgate/pkg/requestcontext"
	"hearthgate/pkg/testutil"
)

type stack struct {
	users       *userstore.InMemoryUserStore
	identities  *identitystore.InMemoryIdentityStore
	tenants     *tenantstore.InMemory
	sessions    *session.Service
	provisioner *trustedheader.Provisioner
}

func newStack(t *testing.T, identities trustedheader.IdentityStore) *stack {
	t.Helper()
	signer, err := cookie.NewSigner("flow-test-secret")
	require.NoError(t, err)

	m := metrics.New(prometheus.NewRegistry())
	st := &stack{
		users:      userstore.New(),
		identities: identitystore.New(),
		tenants:    tenantstore.NewInMemory(),
	}
	if identities == nil {
		identities = st.identities
	}
	st.sessions = session.NewService(sessionstore.New(), signer, session.WithMetrics(m))
	st.provisioner = trustedheader.New(
		trustedheader.Config{SelfHosted: true, AutoLogin: true},
		st.users, identities, st.tenants, st.sessions,
		trustedheader.WithMetrics(m),
	)
	return st
}

func ingressHeaders(uid, username, display string) http.Header {
	h := http.Header{}
	h.Set(trustedheader.HeaderUserID, uid)
	h.Set(trustedheader.HeaderUserName, username)
	h.Set(trustedheader.HeaderDisplayName, display)
	return h
}

func TestProvisionIsIdempotentAcrossRequests(t *testing.T) {
	st := newStack(t, nil)
	first := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	second := first.Add(36 * time.Hour)
	h := ingressHeaders("ha-user-1", "ada", "Ada Lovelace")

	rec := httptest.NewRecorder()
	r1 := st.provisioner.Provision(requestcontext.WithTime(context.Background(), first), rec, h, models.ClientMetadata{})
	require.Equal(t, trustedheader.OutcomeAuthenticated, r1.Outcome)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.DefaultCookieName, cookies[0].Name)
	assert.Equal(t, r1.Session.ID, st.sessions.FindByCookie(context.Background(), cookies[0].Value).ID)

	r2 := st.provisioner.Provision(requestcontext.WithTime(context.Background(), second), httptest.NewRecorder(), h, models.ClientMetadata{})
	require.Equal(t, trustedheader.OutcomeAuthenticated, r2.Outcome)
	assert.Equal(t, r1.User.ID, r2.User.ID)
	assert.NotEqual(t, r1.Session.ID, r2.Session.ID)

	userCount, err := st.users.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, userCount)

	identityCount, err := st.identities.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, identityCount)

	identity, err := st.identities.FindByProviderUID(context.Background(), models.ProviderHomeAssistant, "ha-user-1")
	require.NoError(t, err)
	assert.Equal(t, second, identity.LastAuthenticatedAt)
	assert.Equal(t, first, identity.CreatedAt)
	assert.Equal(t, "Ada Lovelace", identity.Info["display_name"])
}

func TestProvisionRenamesCachedUser(t *testing.T) {
	st := newStack(t, nil)
	ctx := context.Background()

	r1 := st.provisioner.Provision(ctx, httptest.NewRecorder(), ingressHeaders("ha-user-2", "ada", "Ada Lovelace"), models.ClientMetadata{})
	require.True(t, r1.Authenticated())

	r2 := st.provisioner.Provision(ctx, httptest.NewRecorder(), ingressHeaders("ha-user-2", "ada", "Ada King"), models.ClientMetadata{})
	require.True(t, r2.Authenticated())

	stored, err := st.users.FindByID(ctx, r1.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", stored.FirstName)
	assert.Equal(t, "King", stored.LastName)
}

func TestProvisionToleratesMalformedHeaderBytes(t *testing.T) {
	st := newStack(t, nil)
	ctx := context.Background()

	h := ingressHeaders("ha-user-3", "ad\xffa", "\xef\xbb\xbfZo\xc3\xab\x00 D\xe9ja")
	result := st.provisioner.Provision(ctx, httptest.NewRecorder(), h, models.ClientMetadata{})
	require.Equal(t, trustedheader.OutcomeAuthenticated, result.Outcome)

	assert.True(t, utf8.ValidString(result.User.FirstName))
	assert.True(t, utf8.ValidString(result.User.LastName))

	identity, err := st.identities.FindByProviderUID(ctx, models.ProviderHomeAssistant, "ha-user-3")
	require.NoError(t, err)
	for key, value := range identity.Info {
		assert.Truef(t, utf8.ValidString(value), "info[%s] is not valid UTF-8", key)
	}
}

func TestProvisionKeepsDistinctExternalIDsApart(t *testing.T) {
	tests := []struct {
		name  string
		first string
		other string
	}{
		{name: "ids sharing a long prefix", first: strings.Repeat("a", 1000) + "-alice", other: strings.Repeat("a", 1000) + "-mallory"},
		{name: "composed and decomposed forms", first: "caf\u00e9", other: "cafe\u0301"},
		{name: "ids differing by a control character", first: "ha\x01user", other: "ha user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newStack(t, nil)
			ctx := context.Background()

			r1 := st.provisioner.Provision(ctx, httptest.NewRecorder(), ingressHeaders(tt.first, "ada", ""), models.ClientMetadata{})
			r2 := st.provisioner.Provision(ctx, httptest.NewRecorder(), ingressHeaders(tt.other, "grace", ""), models.ClientMetadata{})
			require.Equal(t, trustedheader.OutcomeAuthenticated, r1.Outcome)
			require.Equal(t, trustedheader.OutcomeAuthenticated, r2.Outcome)
			assert.NotEqual(t, r1.User.ID, r2.User.ID)

			userCount, err := st.users.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, userCount)

			identity, err := st.identities.FindByProviderUID(ctx, models.ProviderHomeAssistant, tt.first)
			require.NoError(t, err)
			assert.Equal(t, r1.User.ID, identity.UserID)
		})
	}
}

func TestProvisionRejectsOverlongExternalID(t *testing.T) {
	st := newStack(t, nil)
	ctx := context.Background()

	h := ingressHeaders(strings.Repeat("a", 1024)+"-alice", "ada", "")
	result := st.provisioner.Provision(ctx, httptest.NewRecorder(), h, models.ClientMetadata{})
	assert.Equal(t, trustedheader.OutcomeMissingIdentity, result.Outcome)

	userCount, err := st.users.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, userCount)
}

// barrierIdentities holds every lookup until all callers have arrived so that
// each of them observes "no identity yet".
type barrierIdentities struct {
	trustedheader.IdentityStore
	arrived sync.WaitGroup
}

func (b *barrierIdentities) FindByProviderUID(ctx context.Context, provider, uid string) (*models.Identity, error) {
	b.arrived.Done()
	b.arrived.Wait()
	return b.IdentityStore.FindByProviderUID(ctx, provider, uid)
}

func TestConcurrentFirstSightCreatesOneUser(t *testing.T) {
	const callers = 16

	backing := identitystore.New()
	barrier := &barrierIdentities{IdentityStore: backing}
	barrier.arrived.Add(callers)
	st := newStack(t, barrier)
	h := ingressHeaders("ha-user-race", "ada", "Ada Lovelace")

	results := testutil.Collect(callers, func(int) trustedheader.Result {
		return st.provisioner.Provision(context.Background(), httptest.NewRecorder(), h, models.ClientMetadata{})
	})

	outcomes := map[trustedheader.Outcome]int{}
	for _, r := range results {
		outcomes[r.Outcome]++
	}
	assert.Equal(t, 1, outcomes[trustedheader.OutcomeAuthenticated])
	assert.Equal(t, callers-1, outcomes[trustedheader.OutcomeRejected])

	userCount, err := st.users.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, userCount)

	identityCount, err := backing.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, identityCount)

	tenantCount, err := st.tenants.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, tenantCount)
}
