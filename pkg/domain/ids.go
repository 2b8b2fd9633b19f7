// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "hearthgate/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing UserID where TenantID is expected.
type (
	UserID     uuid.UUID
	SessionID  uuid.UUID
	TenantID   uuid.UUID
	IdentityID uuid.UUID
)

// Constructors for freshly issued identifiers. uuid.New draws from crypto/rand.

func NewUserID() UserID         { return UserID(uuid.New()) }
func NewSessionID() SessionID   { return SessionID(uuid.New()) }
func NewTenantID() TenantID     { return TenantID(uuid.New()) }
func NewIdentityID() IdentityID { return IdentityID(uuid.New()) }

// Parse functions - use at trust boundaries (handlers, cookies, API inputs).

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

func ParseSessionID(s string) (SessionID, error) {
	id, err := parseUUID(s, "session ID")
	return SessionID(id), err
}

func ParseTenantID(s string) (TenantID, error) {
	id, err := parseUUID(s, "tenant ID")
	return TenantID(id), err
}

func ParseIdentityID(s string) (IdentityID, error) {
	id, err := parseUUID(s, "identity ID")
	return IdentityID(id), err
}

// String methods - for logging and debugging.

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id SessionID) String() string  { return uuid.UUID(id).String() }
func (id TenantID) String() string   { return uuid.UUID(id).String() }
func (id IdentityID) String() string { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id TenantID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id IdentityID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// parseUUID is the shared validation logic. Nil UUIDs are rejected: no
// issued identifier is ever the zero value, so one arriving from outside is
// either forged or corrupted.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return id, nil
}
