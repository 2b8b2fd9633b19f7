package models

import (
	"time"
	"unicode/utf8"

	id "hearthgate/pkg/domain"
	dErrors "hearthgate/pkg/domain-errors"
)

// DefaultHouseholdName names the household that ingress-provisioned users join.
const DefaultHouseholdName = "Семья"

// Tenant is a household: the unit that owns users and their data.
type Tenant struct {
	ID        id.TenantID  `json:"id"`
	Name      string       `json:"name"`
	Status    TenantStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// NewTenant builds an active tenant. Names are measured in characters,
// not bytes, so Cyrillic names get the same allowance as ASCII ones.
func NewTenant(tenantID id.TenantID, name string, now time.Time) (*Tenant, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant name cannot be empty")
	}
	if utf8.RuneCountInString(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant name must be 128 characters or less")
	}
	return &Tenant{
		ID:        tenantID,
		Name:      name,
		Status:    TenantStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
