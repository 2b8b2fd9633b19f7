package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"hearthgate/internal/auth/models"
	"hearthgate/internal/platform/database"
	id "hearthgate/pkg/domain"
	"hearthgate/pkg/platform/sentinel"
)

// PostgresStore persists sessions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed session store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, session *models.Session) error {
	if session == nil {
		return fmt.Errorf("session is required: %w", sentinel.ErrInvalidInput)
	}
	query := `
		INSERT INTO sessions (id, user_id, user_agent, ip_address, device_display_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(session.ID),
		uuid.UUID(session.UserID),
		session.UserAgent,
		session.IPAddress,
		session.DeviceDisplayName,
		session.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("session id already exists: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	query := `
		SELECT id, user_id, user_agent, ip_address, device_display_name, created_at
		FROM sessions
		WHERE id = $1
	`
	var (
		session   models.Session
		rowID     uuid.UUID
		userID    uuid.UUID
		userAgent sql.NullString
		ipAddress sql.NullString
		device    sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(sessionID)).Scan(
		&rowID, &userID, &userAgent, &ipAddress, &device, &session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find session by id: %w", err)
	}
	session.ID = id.SessionID(rowID)
	session.UserID = id.UserID(userID)
	session.UserAgent = userAgent.String
	session.IPAddress = ipAddress.String
	session.DeviceDisplayName = device.String
	return &session, nil
}

func (s *PostgresStore) Delete(ctx context.Context, sessionID id.SessionID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, uuid.UUID(sessionID))
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	return nil
}
