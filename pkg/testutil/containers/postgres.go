//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"hearthgate/internal/platform/database"
	"hearthgate/migrations"
	id "hearthgate/pkg/domain"
)

// PostgresContainer wraps a testcontainers Postgres instance.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new Postgres container with migrations applied.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("hearthgate_test"),
		postgres.WithUsername("hearthgate"),
		postgres.WithPassword("hearthgate_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to postgres: %v", err)
	}

	pc := &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}

	if err := database.Migrate(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to run migrations: %v", err)
	}

	// The container is shared through Manager; Ryuk removes it when the process exits.
	return pc
}

// TruncateModuleTables clears every gateway table. CASCADE handles foreign keys.
func (p *PostgresContainer) TruncateModuleTables(ctx context.Context) error {
	for _, table := range []string{"sessions", "identities", "users", "tenants"} {
		if _, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// CreateTestTenant inserts a tenant and returns its ID.
func (p *PostgresContainer) CreateTestTenant(ctx context.Context, t testing.TB) id.TenantID {
	t.Helper()
	tenantID := id.NewTenantID()
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO tenants (id, name, status, created_at, updated_at)
		VALUES ($1, $2, 'active', NOW(), NOW())
	`, uuid.UUID(tenantID), "Test Tenant "+uuid.NewString())
	if err != nil {
		t.Fatalf("CreateTestTenant: %v", err)
	}
	return tenantID
}

// CreateTestUser inserts an active member of the given tenant and returns its ID.
func (p *PostgresContainer) CreateTestUser(ctx context.Context, t testing.TB, tenantID id.TenantID) id.UserID {
	t.Helper()
	userID := id.NewUserID()
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO users (id, tenant_id, email, first_name, last_name, role, status, password_hash)
		VALUES ($1, $2, $3, 'Test', 'User', 'member', 'active', 'unusable')
	`, uuid.UUID(userID), uuid.UUID(tenantID), "test-"+uuid.NewString()+"@example.com")
	if err != nil {
		t.Fatalf("CreateTestUser: %v", err)
	}
	return userID
}
