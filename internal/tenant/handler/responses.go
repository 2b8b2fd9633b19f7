package handler

import (
	"time"

	"hearthgate/internal/tenant/models"
)

type TenantResponse struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Status    models.TenantStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func toTenantResponse(t *models.Tenant) *TenantResponse {
	return &TenantResponse{
		ID:        t.ID.String(),
		Name:      t.Name,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
