package main

import (
	"context"
	"log/slog"
	"time"

	"hearthgate/internal/auth/session"
	identitystore "hearthgate/internal/auth/store/identity"
	sessionstore "hearthgate/internal/auth/store/session"
	userstore "hearthgate/internal/auth/store/user"
	"hearthgate/internal/auth/trustedheader"
	"hearthgate/internal/platform/database"
	"hearthgate/internal/platform/redis"
	tenantmodels "hearthgate/internal/tenant/models"
	tenantstore "hearthgate/internal/tenant/store/tenant"
	id "hearthgate/pkg/domain"
)

type userStore interface {
	trustedheader.UserStore
	Count(ctx context.Context) (int, error)
	MarkOnboarded(ctx context.Context, userID id.UserID, at time.Time) error
}

type tenantStore interface {
	trustedheader.TenantStore
	FindByID(ctx context.Context, tenantID id.TenantID) (*tenantmodels.Tenant, error)
}

type storeSet struct {
	users      userStore
	identities trustedheader.IdentityStore
	tenants    tenantStore
	sessions   session.Store
}

// buildStores picks PostgreSQL when a pool is configured and in-memory
// stores otherwise. Sessions move to Redis when a client is configured.
func buildStores(pool *database.Pool, redisClient *redis.Client, log *slog.Logger) storeSet {
	var set storeSet
	if pool != nil {
		set = storeSet{
			users:      userstore.NewPostgres(pool.DB()),
			identities: identitystore.NewPostgres(pool.DB()),
			tenants:    tenantstore.NewPostgres(pool.DB()),
			sessions:   sessionstore.NewPostgres(pool.DB()),
		}
		log.Info("using postgres stores")
	} else {
		set = storeSet{
			users:      userstore.New(),
			identities: identitystore.New(),
			tenants:    tenantstore.NewInMemory(),
			sessions:   sessionstore.New(),
		}
		log.Warn("DATABASE_URL is not set; using in-memory stores, data is lost on restart")
	}

	if redisClient != nil {
		set.sessions = sessionstore.NewRedis(redisClient.Client)
		log.Info("using redis session store")
	}
	return set
}
