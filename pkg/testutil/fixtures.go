package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	authmodels "hearthgate/internal/auth/models"
	tenantmodels "hearthgate/internal/tenant/models"
	id "hearthgate/pkg/domain"
)

// TestIDs provides pre-generated IDs for deterministic test data.
var TestIDs = struct {
	UserID1    id.UserID
	UserID2    id.UserID
	TenantID1  id.TenantID
	SessionID1 id.SessionID
	SessionID2 id.SessionID
}{
	UserID1:    id.UserID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
	UserID2:    id.UserID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
	TenantID1:  id.TenantID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000001")),
	SessionID1: id.SessionID(uuid.MustParse("eeee0000-0000-0000-0000-000000000001")),
	SessionID2: id.SessionID(uuid.MustParse("eeee0000-0000-0000-0000-000000000002")),
}

// UserBuilder provides a fluent interface for building test users.
type UserBuilder struct {
	user *authmodels.User
}

// NewUserBuilder creates an active, already-onboarded member with a unique email.
func NewUserBuilder() *UserBuilder {
	userID := id.NewUserID()
	onboarded := time.Now().Add(-time.Hour)
	return &UserBuilder{
		user: &authmodels.User{
			ID:           userID,
			TenantID:     TestIDs.TenantID1,
			Email:        fmt.Sprintf("user-%s@example.com", userID.String()[:8]),
			FirstName:    "Test",
			LastName:     "User",
			Role:         authmodels.RoleMember,
			Status:       authmodels.UserStatusActive,
			PasswordHash: "unusable",
			OnboardedAt:  &onboarded,
			CreatedAt:    time.Now(),
		},
	}
}

func (b *UserBuilder) WithID(userID id.UserID) *UserBuilder {
	b.user.ID = userID
	return b
}

func (b *UserBuilder) WithTenantID(tenantID id.TenantID) *UserBuilder {
	b.user.TenantID = tenantID
	return b
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.user.Email = email
	return b
}

func (b *UserBuilder) WithName(firstName, lastName string) *UserBuilder {
	b.user.FirstName = firstName
	b.user.LastName = lastName
	return b
}

func (b *UserBuilder) WithStatus(status authmodels.UserStatus) *UserBuilder {
	b.user.Status = status
	return b
}

func (b *UserBuilder) WithRole(role authmodels.Role) *UserBuilder {
	b.user.Role = role
	return b
}

// NotOnboarded clears the onboarding timestamp.
func (b *UserBuilder) NotOnboarded() *UserBuilder {
	b.user.OnboardedAt = nil
	return b
}

func (b *UserBuilder) Build() *authmodels.User {
	return b.user
}

// SessionBuilder provides a fluent interface for building test sessions.
type SessionBuilder struct {
	session *authmodels.Session
}

func NewSessionBuilder() *SessionBuilder {
	return &SessionBuilder{
		session: &authmodels.Session{
			ID:                id.NewSessionID(),
			UserID:            TestIDs.UserID1,
			UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) Gecko/20100101 Firefox/128.0",
			IPAddress:         "192.168.1.20",
			DeviceDisplayName: "Firefox on Linux",
			CreatedAt:         time.Now(),
		},
	}
}

func (b *SessionBuilder) WithID(sessionID id.SessionID) *SessionBuilder {
	b.session.ID = sessionID
	return b
}

func (b *SessionBuilder) WithUserID(userID id.UserID) *SessionBuilder {
	b.session.UserID = userID
	return b
}

func (b *SessionBuilder) Build() *authmodels.Session {
	return b.session
}

// TenantBuilder provides a fluent interface for building test tenants.
type TenantBuilder struct {
	tenant *tenantmodels.Tenant
}

func NewTenantBuilder() *TenantBuilder {
	now := time.Now()
	return &TenantBuilder{
		tenant: &tenantmodels.Tenant{
			ID:        TestIDs.TenantID1,
			Name:      tenantmodels.DefaultHouseholdName,
			Status:    tenantmodels.TenantStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func (b *TenantBuilder) WithID(tenantID id.TenantID) *TenantBuilder {
	b.tenant.ID = tenantID
	return b
}

func (b *TenantBuilder) WithName(name string) *TenantBuilder {
	b.tenant.Name = name
	return b
}

func (b *TenantBuilder) Build() *tenantmodels.Tenant {
	return b.tenant
}
