package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hearthgate/internal/platform/database"
	"hearthgate/internal/tenant/models"
	id "hearthgate/pkg/domain"
	"hearthgate/pkg/platform/sentinel"
)

// PostgresStore persists tenants in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed tenant store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateIfNameAvailable atomically creates the tenant if the name is not already taken (case-insensitive).
func (s *PostgresStore) CreateIfNameAvailable(ctx context.Context, tenant *models.Tenant) error {
	if tenant == nil {
		return fmt.Errorf("tenant is required")
	}
	query := `
		INSERT INTO tenants (id, name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(tenant.ID),
		tenant.Name,
		string(tenant.Status),
		tenant.CreatedAt,
		tenant.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("tenant name must be unique: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

// FindOrCreateByName returns the tenant with the given name, creating it when absent.
// The unique index on lower(name) makes concurrent callers converge on one row.
func (s *PostgresStore) FindOrCreateByName(ctx context.Context, name string, now time.Time) (*models.Tenant, error) {
	candidate, err := models.NewTenant(id.NewTenantID(), name, now)
	if err != nil {
		return nil, err
	}
	query := `
		INSERT INTO tenants (id, name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ((lower(name))) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query,
		uuid.UUID(candidate.ID),
		candidate.Name,
		string(candidate.Status),
		candidate.CreatedAt,
		candidate.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	return s.FindByName(ctx, name)
}

// FindByID retrieves a tenant by its UUID.
func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	query := `
		SELECT id, name, status, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`
	tenant, err := scanTenant(s.db.QueryRowContext(ctx, query, uuid.UUID(tenantID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tenant not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find tenant by id: %w", err)
	}
	return tenant, nil
}

// FindByName retrieves a tenant by name (case-insensitive).
func (s *PostgresStore) FindByName(ctx context.Context, name string) (*models.Tenant, error) {
	query := `
		SELECT id, name, status, created_at, updated_at
		FROM tenants
		WHERE lower(name) = lower($1)
	`
	tenant, err := scanTenant(s.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tenant not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find tenant by name: %w", err)
	}
	return tenant, nil
}

// Count returns the total number of tenants.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tenants: %w", err)
	}
	return count, nil
}

type tenantRow interface {
	Scan(dest ...any) error
}

func scanTenant(row tenantRow) (*models.Tenant, error) {
	var tenant models.Tenant
	var status string
	var tenantID uuid.UUID
	if err := row.Scan(&tenantID, &tenant.Name, &status, &tenant.CreatedAt, &tenant.UpdatedAt); err != nil {
		return nil, err
	}
	tenant.ID = id.TenantID(tenantID)
	tenant.Status = models.TenantStatus(status)
	return &tenant, nil
}
