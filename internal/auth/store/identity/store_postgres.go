package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"hearthgate/internal/auth/models"
	"hearthgate/internal/platform/database"
	id "hearthgate/pkg/domain"
	"hearthgate/pkg/platform/sentinel"
)

const identityColumns = `id, provider, uid, user_id, info, last_authenticated_at, created_at, updated_at`

// PostgresStore persists external identities in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed identity store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByProviderUID(ctx context.Context, provider, uid string) (*models.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE provider = $1 AND uid = $2`
	identity, err := scanIdentity(s.db.QueryRowContext(ctx, query, provider, uid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("identity not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return identity, nil
}

// Upsert inserts the identity or updates the row already stored for its
// (provider, uid) pair in a single statement.
func (s *PostgresStore) Upsert(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	if identity == nil {
		return nil, fmt.Errorf("identity is required: %w", sentinel.ErrInvalidInput)
	}
	info, err := json.Marshal(identity.Info)
	if err != nil {
		return nil, fmt.Errorf("marshal identity info: %w", err)
	}
	identityID := identity.ID
	if identityID.IsNil() {
		identityID = id.NewIdentityID()
	}
	query := `
		INSERT INTO identities (` + identityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider, uid) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			info = EXCLUDED.info,
			last_authenticated_at = EXCLUDED.last_authenticated_at,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + identityColumns
	stored, err := scanIdentity(s.db.QueryRowContext(ctx, query,
		uuid.UUID(identityID),
		identity.Provider,
		identity.UID,
		uuid.UUID(identity.UserID),
		info,
		identity.LastAuthenticatedAt,
		identity.CreatedAt,
		identity.UpdatedAt,
	))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("identity already linked: %w", sentinel.ErrAlreadyUsed)
		}
		return nil, fmt.Errorf("upsert identity: %w", err)
	}
	return stored, nil
}

// Count returns the number of stored identities. It is a test aid for
// asserting one identity per external principal; no request path calls it.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM identities`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

type identityRow interface {
	Scan(dest ...any) error
}

func scanIdentity(row identityRow) (*models.Identity, error) {
	var (
		identity   models.Identity
		identityID uuid.UUID
		userID     uuid.UUID
		info       []byte
	)
	if err := row.Scan(
		&identityID,
		&identity.Provider,
		&identity.UID,
		&userID,
		&info,
		&identity.LastAuthenticatedAt,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	); err != nil {
		return nil, err
	}
	identity.ID = id.IdentityID(identityID)
	identity.UserID = id.UserID(userID)
	if len(info) > 0 {
		if err := json.Unmarshal(info, &identity.Info); err != nil {
			return nil, fmt.Errorf("unmarshal identity info: %w", err)
		}
	}
	return &identity, nil
}
