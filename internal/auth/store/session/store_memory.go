package session

import (
	"context"
	"fmt"
	"sync"

	"hearthgate/internal/auth/models"
	id "hearthgate/pkg/domain"
	"hearthgate/pkg/platform/sentinel"
)

// InMemorySessionStore stores sessions in memory for single-process deployments and tests.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*models.Session
}

// New constructs an empty in-memory session store.
func New() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[id.SessionID]*models.Session)}
}

// Create persists a new session. Session ids are never reused.
func (s *InMemorySessionStore) Create(_ context.Context, session *models.Session) error {
	if session == nil {
		return fmt.Errorf("session is required: %w", sentinel.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("session id already exists: %w", sentinel.ErrAlreadyUsed)
	}
	stored := *session
	s.sessions[session.ID] = &stored
	return nil
}

func (s *InMemorySessionStore) FindByID(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if session, ok := s.sessions[sessionID]; ok {
		found := *session
		return &found, nil
	}
	return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
}

// Delete removes a session. Used by operators and tests to invalidate a cookie.
func (s *InMemorySessionStore) Delete(_ context.Context, sessionID id.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	delete(s.sessions, sessionID)
	return nil
}
