package models

// Role is a user's role within their tenant.
type Role string

const (
	RoleMember     Role = "member"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// RoleForNewTenantCreator is the role given to whoever brings a tenant into
// existence.
func RoleForNewTenantCreator() Role {
	return RoleAdmin
}

func (r Role) String() string {
	return string(r)
}

// UserStatus represents whether a user may sign in.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// ProviderHomeAssistant tags identities asserted by the Home Assistant
// ingress proxy.
const ProviderHomeAssistant = "home_assistant"
