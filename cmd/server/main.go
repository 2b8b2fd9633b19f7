package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"hearthgate/internal/auth/cookie"
	"hearthgate/internal/auth/filter"
	authhandler "hearthgate/internal/auth/handler"
	"hearthgate/internal/auth/metrics"
	"hearthgate/internal/auth/session"
	"hearthgate/internal/auth/trustedheader"
	"hearthgate/internal/platform/config"
	"hearthgate/internal/platform/database"
	"hearthgate/internal/platform/health"
	"hearthgate/internal/platform/logger"
	"hearthgate/internal/platform/redis"
	tenanthandler "hearthgate/internal/tenant/handler"
	httptransport "hearthgate/internal/transport/http"
	"hearthgate/migrations"
	"hearthgate/pkg/platform/middleware/ingress"
	"hearthgate/pkg/platform/middleware/metadata"
	request "hearthgate/pkg/platform/middleware/request"
)

const (
	shutdownTimeout   = 10 * time.Second
	poolStatsInterval = 15 * time.Second
)

// main wires dependencies and runs the HTTP server until SIGINT or SIGTERM.
// Business logic lives in the internal packages.
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load .env file", "error", err)
	}

	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing hearthgate",
		"addr", cfg.Addr,
		"self_hosted", cfg.SelfHosted,
		"ingress_auto_login", cfg.Ingress.AutoLogin,
		"ingress_path", cfg.Ingress.Path,
	)
	if cfg.UsesDefaultSecret() {
		log.Warn("SESSION_COOKIE_SECRET is not set; using the development secret")
	}
	if cfg.Ingress.AutoLogin && !cfg.SelfHosted {
		log.Warn("HA_INGRESS_AUTO_LOGIN has no effect outside self-hosted mode")
	}

	pool, err := database.New(ctx, database.DefaultConfig(cfg.Database.URL))
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
		if err := database.Migrate(ctx, pool.DB(), migrations.FS); err != nil {
			return err
		}
	}
	redisClient, err := redis.New(ctx, redis.DefaultConfig(cfg.Redis.URL))
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	stores := buildStores(pool, redisClient, log)
	mode := "managed"
	if cfg.SelfHosted {
		mode = "self_hosted"
	}
	healthHandler := health.New(mode)
	if pool != nil {
		healthHandler.RegisterCheck("postgres", pool.Health)
	}
	if redisClient != nil {
		healthHandler.RegisterCheck("redis", redisClient.Health)
	}

	trustedProxies, err := metadata.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return err
	}

	signer, err := cookie.NewSigner(cfg.Session.CookieSecret)
	if err != nil {
		return err
	}
	authMetrics := metrics.New(prometheus.DefaultRegisterer)

	sessions := session.NewService(stores.sessions, signer,
		session.WithLogger(log),
		session.WithMetrics(authMetrics),
		session.WithCookieName(cfg.Session.CookieName),
		session.WithSecureCookie(cfg.Session.CookieSecure),
	)
	provisioner := trustedheader.New(
		trustedheader.Config{
			SelfHosted:  cfg.SelfHosted,
			AutoLogin:   cfg.Ingress.AutoLogin,
			EmailDomain: cfg.Ingress.EmailDomain,
		},
		stores.users, stores.identities, stores.tenants, sessions,
		trustedheader.WithLogger(log),
		trustedheader.WithMetrics(authMetrics),
	)
	authenticator := filter.New(filter.Config{SelfHosted: cfg.SelfHosted}, sessions, stores.users,
		filter.WithProvisioner(provisioner),
		filter.WithLogger(log),
		filter.WithMetrics(authMetrics),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Ingress:        ingress.NewResolver(cfg.Ingress.Path),
		Metadata:       metadata.NewMiddleware(metadata.Config{TrustedProxies: trustedProxies}),
		RequestMetrics: request.NewMetrics(prometheus.DefaultRegisterer),
		RequestTimeout: cfg.RequestTimeout,
		Health:         healthHandler,
		Metrics:        promhttp.Handler(),
		Auth:           authhandler.New(stores.users, log),
		Household:      tenanthandler.New(stores.tenants, log),
		Authenticator:  authenticator,
		AuthMetrics:    authMetrics,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if redisClient != nil {
		g.Go(func() error {
			return redisClient.RunPoolStats(gctx, poolStatsInterval)
		})
	}
	if pool != nil {
		g.Go(func() error {
			ticker := time.NewTicker(poolStatsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					pool.RecordPoolStats()
				}
			}
		})
	}

	return g.Wait()
}
