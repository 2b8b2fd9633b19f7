package tenant

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"hearthgate/internal/tenant/models"
	id "hearthgate/pkg/domain"
	"hearthgate/pkg/platform/sentinel"
)

// InMemory stores tenants in memory for single-process deployments and tests.
type InMemory struct {
	mu      sync.RWMutex
	tenants map[id.TenantID]*models.Tenant
	nameIdx map[string]id.TenantID
}

// NewInMemory creates an in-memory tenant store.
func NewInMemory() *InMemory {
	return &InMemory{
		tenants: make(map[id.TenantID]*models.Tenant),
		nameIdx: make(map[string]id.TenantID),
	}
}

// CreateIfNameAvailable atomically creates the tenant if the name is not already taken (case-insensitive).
func (s *InMemory) CreateIfNameAvailable(_ context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lower := strings.ToLower(t.Name)
	if _, exists := s.nameIdx[lower]; exists {
		return fmt.Errorf("tenant name must be unique: %w", sentinel.ErrAlreadyUsed)
	}
	stored := *t
	s.tenants[t.ID] = &stored
	s.nameIdx[lower] = t.ID
	return nil
}

// FindOrCreateByName returns the tenant with the given name, creating it when absent.
// Concurrent callers observe a single tenant.
func (s *InMemory) FindOrCreateByName(_ context.Context, name string, now time.Time) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lower := strings.ToLower(name)
	if existing, ok := s.nameIdx[lower]; ok {
		found := *s.tenants[existing]
		return &found, nil
	}
	t, err := models.NewTenant(id.NewTenantID(), name, now)
	if err != nil {
		return nil, err
	}
	stored := *t
	s.tenants[t.ID] = &stored
	s.nameIdx[lower] = t.ID
	return t, nil
}

// FindByID retrieves a tenant by its UUID.
func (s *InMemory) FindByID(_ context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tenants[tenantID]; ok {
		found := *t
		return &found, nil
	}
	return nil, fmt.Errorf("tenant not found: %w", sentinel.ErrNotFound)
}

// FindByName retrieves a tenant by name (case-insensitive).
func (s *InMemory) FindByName(_ context.Context, name string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tenantID, ok := s.nameIdx[strings.ToLower(name)]; ok {
		found := *s.tenants[tenantID]
		return &found, nil
	}
	return nil, fmt.Errorf("tenant not found: %w", sentinel.ErrNotFound)
}

// Count returns the total number of tenants.
func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tenants), nil
}
