package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hearthgate/internal/auth/models"
	"hearthgate/internal/platform/database"
	id "hearthgate/pkg/domain"
	"hearthgate/pkg/platform/sentinel"
)

const userColumns = `id, tenant_id, email, first_name, last_name, role, status, password_hash, onboarded_at, created_at`

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// Create inserts a new user. A duplicate email maps to sentinel.ErrAlreadyUsed.
func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required: %w", sentinel.ErrInvalidInput)
	}
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(user.ID),
		uuid.UUID(user.TenantID),
		user.Email,
		user.FirstName,
		user.LastName,
		string(user.Role),
		string(user.Status),
		user.PasswordHash,
		nullTime(user.OnboardedAt),
		user.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("email already registered: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, uuid.UUID(userID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}

// UpdateName overwrites the cached name fields.
func (s *PostgresStore) UpdateName(ctx context.Context, userID id.UserID, firstName, lastName string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET first_name = $2, last_name = $3 WHERE id = $1`,
		uuid.UUID(userID), firstName, lastName,
	)
	if err != nil {
		return fmt.Errorf("update user name: %w", err)
	}
	return requireRow(res)
}

// MarkOnboarded records the first time the user completed onboarding.
func (s *PostgresStore) MarkOnboarded(ctx context.Context, userID id.UserID, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET onboarded_at = COALESCE(onboarded_at, $2) WHERE id = $1`,
		uuid.UUID(userID), at,
	)
	if err != nil {
		return fmt.Errorf("mark user onboarded: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("user rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

type userRow interface {
	Scan(dest ...any) error
}

func scanUser(row userRow) (*models.User, error) {
	var (
		user        models.User
		userID      uuid.UUID
		tenantID    uuid.UUID
		role        string
		status      string
		onboardedAt sql.NullTime
	)
	if err := row.Scan(
		&userID,
		&tenantID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&role,
		&status,
		&user.PasswordHash,
		&onboardedAt,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	user.ID = id.UserID(userID)
	user.TenantID = id.TenantID(tenantID)
	user.Role = models.Role(role)
	user.Status = models.UserStatus(status)
	if onboardedAt.Valid {
		at := onboardedAt.Time
		user.OnboardedAt = &at
	}
	return &user, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
