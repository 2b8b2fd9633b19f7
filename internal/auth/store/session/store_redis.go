package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"hearthgate/internal/auth/models"
	id "hearthgate/pkg/domain"
	"hearthgate/pkg/platform/sentinel"
)

const sessionKeyPrefix = "hearthgate:session:"

// sessionJSON is the JSON-serializable representation of a Session.
type sessionJSON struct {
	ID                string `json:"id"`
	UserID            string `json:"user_id"`
	UserAgent         string `json:"user_agent,omitempty"`
	IPAddress         string `json:"ip_address,omitempty"`
	DeviceDisplayName string `json:"device_display_name,omitempty"`
	CreatedAt         int64  `json:"created_at"` // Unix nano
}

func sessionToJSON(s *models.Session) *sessionJSON {
	return &sessionJSON{
		ID:                s.ID.String(),
		UserID:            s.UserID.String(),
		UserAgent:         s.UserAgent,
		IPAddress:         s.IPAddress,
		DeviceDisplayName: s.DeviceDisplayName,
		CreatedAt:         s.CreatedAt.UnixNano(),
	}
}

func sessionFromJSON(j *sessionJSON) (*models.Session, error) {
	sessionID, err := uuid.Parse(j.ID)
	if err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	userID, err := uuid.Parse(j.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	return &models.Session{
		ID:                id.SessionID(sessionID),
		UserID:            id.UserID(userID),
		UserAgent:         j.UserAgent,
		IPAddress:         j.IPAddress,
		DeviceDisplayName: j.DeviceDisplayName,
		CreatedAt:         time.Unix(0, j.CreatedAt),
	}, nil
}

// RedisStore persists sessions in Redis so several gateway instances can share them.
// Keys carry no TTL; sessions are long-lived like the cookie that references them.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedis constructs a Redis-backed session store.
func NewRedis(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(sessionID id.SessionID) string {
	return sessionKeyPrefix + sessionID.String()
}

// Create stores the session with SET NX so an existing id is never overwritten.
func (s *RedisStore) Create(ctx context.Context, session *models.Session) error {
	if session == nil {
		return fmt.Errorf("session is required: %w", sentinel.ErrInvalidInput)
	}
	payload, err := json.Marshal(sessionToJSON(session))
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	created, err := s.client.SetNX(ctx, sessionKey(session.ID), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !created {
		return fmt.Errorf("session id already exists: %w", sentinel.ErrAlreadyUsed)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	payload, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find session by id: %w", err)
	}
	var j sessionJSON
	if err := json.Unmarshal(payload, &j); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return sessionFromJSON(&j)
}

func (s *RedisStore) Delete(ctx context.Context, sessionID id.SessionID) error {
	removed, err := s.client.Del(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if removed == 0 {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	return nil
}
