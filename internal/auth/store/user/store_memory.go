package user

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"hearthgate/internal/auth/models"
	id "hearthgate/pkg/domain"
	"hearthgate/pkg/platform/sentinel"
)

// Error Contract:
// - Return sentinel.ErrNotFound when the requested user does not exist
// - Return sentinel.ErrAlreadyUsed when an email is already taken
// - Return wrapped errors with context for infrastructure failures

// InMemoryUserStore stores users in memory for single-process deployments and tests.
// Stored values are copied on the way in and out so callers cannot mutate shared state.
type InMemoryUserStore struct {
	mu       sync.RWMutex
	users    map[id.UserID]*models.User
	emailIdx map[string]id.UserID
}

// New constructs an empty in-memory user store.
func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:    make(map[id.UserID]*models.User),
		emailIdx: make(map[string]id.UserID),
	}
}

func (s *InMemoryUserStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

// Create inserts a new user. The email must be unused (case-insensitive).
func (s *InMemoryUserStore) Create(_ context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required: %w", sentinel.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(user.Email)
	if _, taken := s.emailIdx[email]; taken {
		return fmt.Errorf("email already registered: %w", sentinel.ErrAlreadyUsed)
	}
	if _, exists := s.users[user.ID]; exists {
		return fmt.Errorf("user id already exists: %w", sentinel.ErrAlreadyUsed)
	}
	stored := *user
	s.users[user.ID] = &stored
	s.emailIdx[email] = user.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[userID]; ok {
		found := *user
		return &found, nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if userID, ok := s.emailIdx[strings.ToLower(email)]; ok {
		found := *s.users[userID]
		return &found, nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

// UpdateName overwrites the cached name fields.
func (s *InMemoryUserStore) UpdateName(_ context.Context, userID id.UserID, firstName, lastName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	user.FirstName = firstName
	user.LastName = lastName
	return nil
}

// MarkOnboarded records the first time the user completed onboarding.
// Later calls keep the original timestamp.
func (s *InMemoryUserStore) MarkOnboarded(_ context.Context, userID id.UserID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	if user.OnboardedAt == nil {
		onboarded := at
		user.OnboardedAt = &onboarded
	}
	return nil
}
