package identity

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"hearthgate/internal/auth/models"
	id "hearthgate/pkg/domain"
	"hearthgate/pkg/platform/sentinel"
)

// InMemoryIdentityStore keeps external identities keyed by (provider, uid).
type InMemoryIdentityStore struct {
	mu         sync.RWMutex
	identities map[string]*models.Identity
}

// New constructs an empty in-memory identity store.
func New() *InMemoryIdentityStore {
	return &InMemoryIdentityStore{identities: make(map[string]*models.Identity)}
}

func (s *InMemoryIdentityStore) FindByProviderUID(_ context.Context, provider, uid string) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if identity, ok := s.identities[models.IdentityKey(provider, uid)]; ok {
		return clone(identity), nil
	}
	return nil, fmt.Errorf("identity not found: %w", sentinel.ErrNotFound)
}

// Upsert inserts the identity or updates the row already stored for its
// (provider, uid) pair. The stored row keeps its original ID and CreatedAt.
func (s *InMemoryIdentityStore) Upsert(_ context.Context, identity *models.Identity) (*models.Identity, error) {
	if identity == nil {
		return nil, fmt.Errorf("identity is required: %w", sentinel.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := identity.Key()
	stored, ok := s.identities[key]
	if !ok {
		stored = clone(identity)
		if stored.ID.IsNil() {
			stored.ID = id.NewIdentityID()
		}
		s.identities[key] = stored
		return clone(stored), nil
	}

	stored.UserID = identity.UserID
	stored.Info = maps.Clone(identity.Info)
	stored.LastAuthenticatedAt = identity.LastAuthenticatedAt
	stored.UpdatedAt = identity.UpdatedAt
	return clone(stored), nil
}

// Count returns the number of stored identities. It is a test aid for
// asserting one identity per external principal; no request path calls it.
func (s *InMemoryIdentityStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.identities), nil
}

func clone(identity *models.Identity) *models.Identity {
	c := *identity
	c.Info = maps.Clone(identity.Info)
	return &c
}
