package handler

import (
	"time"

	"hearthgate/internal/auth/models"
)

type PageResponse struct {
	Page       string            `json:"page"`
	MountPoint string            `json:"mount_point"`
	Links      map[string]string `json:"links"`
}

type UserResponse struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	DisplayName string     `json:"display_name"`
	Role        string     `json:"role"`
	OnboardedAt *time.Time `json:"onboarded_at,omitempty"`
}

type SessionResponse struct {
	ID        string    `json:"id"`
	Device    string    `json:"device"`
	IPAddress string    `json:"ip_address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type NavLink struct {
	Name   string `json:"name"`
	Href   string `json:"href"`
	Active bool   `json:"active"`
}

type LandingResponse struct {
	User       *UserResponse `json:"user"`
	MountPoint string        `json:"mount_point"`
	Navigation []NavLink     `json:"navigation"`
}

type OnboardingResponse struct {
	User     *UserResponse `json:"user"`
	Complete bool          `json:"complete"`
	Submit   string        `json:"submit"`
	Next     string        `json:"next"`
}

type MeResponse struct {
	User    *UserResponse    `json:"user"`
	Session *SessionResponse `json:"session"`
}

func toUserResponse(u *models.User) *UserResponse {
	return &UserResponse{
		ID:          u.ID.String(),
		TenantID:    u.TenantID.String(),
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		DisplayName: u.DisplayName(),
		Role:        u.Role.String(),
		OnboardedAt: u.OnboardedAt,
	}
}

func toSessionResponse(s *models.Session) *SessionResponse {
	return &SessionResponse{
		ID:        s.ID.String(),
		Device:    s.DeviceDisplayName,
		IPAddress: s.IPAddress,
		CreatedAt: s.CreatedAt,
	}
}
