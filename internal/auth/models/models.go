package models

import (
	"time"

	id "hearthgate/pkg/domain"
)

// This file contains pure domain models for authentication: entities that do
// not depend on transport or storage concerns.

// User is a local account. Email is unique across the system.
type User struct {
	ID           id.UserID   `validate:"-"`
	TenantID     id.TenantID `validate:"-"`
	Email        string      `validate:"required,email,max=254"`
	FirstName    string      `validate:"max=100"`
	LastName     string      `validate:"max=100"`
	Role         Role        `validate:"required,oneof=member admin super_admin"`
	Status       UserStatus  `validate:"required,oneof=active inactive"`
	PasswordHash string      `validate:"required"`
	OnboardedAt  *time.Time  `validate:"-"`
	CreatedAt    time.Time   `validate:"-"`
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// NeedsOnboarding reports whether the user has not finished first-run setup.
func (u *User) NeedsOnboarding() bool {
	return u.OnboardedAt == nil
}

// DisplayName joins the name parts, falling back to the email address.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Email
	}
}

// ApplyName overwrites cached name parts. Empty values leave the field alone
// so a header that only carries a username cannot wipe a surname.
func (u *User) ApplyName(firstName, lastName string) bool {
	changed := false
	if firstName != "" && firstName != u.FirstName {
		u.FirstName = firstName
		changed = true
	}
	if lastName != "" && lastName != u.LastName {
		u.LastName = lastName
		changed = true
	}
	return changed
}

// Session is an authenticated browser session. Sessions are immutable after
// issuance; expiry and logout happen elsewhere.
type Session struct {
	ID                id.SessionID
	UserID            id.UserID
	UserAgent         string
	IPAddress         string
	DeviceDisplayName string // e.g. "Chrome on macOS"
	CreatedAt         time.Time
}

// ClientMetadata describes the client a session is issued to.
type ClientMetadata struct {
	UserAgent string
	IPAddress string
}

// Identity links an external principal to a local user. (Provider, UID) is
// unique; saving an identity is always an upsert on that pair.
type Identity struct {
	ID                  id.IdentityID
	Provider            string
	UID                 string
	UserID              id.UserID
	Info                map[string]string
	LastAuthenticatedAt time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Key identifies the external principal for logs and map keys.
func (i *Identity) Key() string {
	return IdentityKey(i.Provider, i.UID)
}

// IdentityKey builds the composite key for an external principal.
func IdentityKey(provider, uid string) string {
	return provider + ":" + uid
}
