package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultSessionCookieSecret is used when SESSION_COOKIE_SECRET is unset.
// Production deployments must override it.
const DefaultSessionCookieSecret = "dev-session-secret-change-in-production"

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	SelfHosted     bool
	RequestTimeout time.Duration
	LogLevel       string
	TrustedProxies string

	Ingress  Ingress
	Session  Session
	Database Database
	Redis    Redis
}

// Ingress holds the reverse-proxy ingress settings.
type Ingress struct {
	// AutoLogin enables trusted-header provisioning (self-hosted only).
	AutoLogin bool
	// Path is the static ingress path used when no proxy header is present.
	Path string
	// EmailDomain is the domain of synthesized placeholder addresses.
	EmailDomain string
}

// Session holds session cookie settings.
type Session struct {
	CookieName   string
	CookieSecret string
	CookieSecure bool
}

// Database holds the PostgreSQL connection settings. An empty URL selects in-memory stores.
type Database struct {
	URL string
}

// Redis holds the Redis connection settings. An empty URL keeps sessions in the primary store.
type Redis struct {
	URL string
}

// UsesDefaultSecret reports whether the development cookie secret is in use.
func (s Server) UsesDefaultSecret() bool {
	return s.Session.CookieSecret == DefaultSessionCookieSecret
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	timeout := 30 * time.Second
	if raw := os.Getenv("REQUEST_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			timeout = d
		}
	}

	return Server{
		Addr:           envOr("HEARTHGATE_ADDR", ":8080"),
		SelfHosted:     envBool("SELF_HOSTED", true),
		RequestTimeout: timeout,
		LogLevel:       envOr("LOG_LEVEL", "info"),
		TrustedProxies: os.Getenv("TRUSTED_PROXIES"),
		Ingress: Ingress{
			AutoLogin:   envBool("HA_INGRESS_AUTO_LOGIN", false),
			Path:        strings.TrimSpace(os.Getenv("HA_INGRESS_PATH")),
			EmailDomain: envOr("HA_INGRESS_EMAIL_DOMAIN", "home-assistant.local"),
		},
		Session: Session{
			CookieName:   envOr("SESSION_COOKIE_NAME", "session_token"),
			CookieSecret: envOr("SESSION_COOKIE_SECRET", DefaultSessionCookieSecret),
			CookieSecure: envBool("SESSION_COOKIE_SECURE", false),
		},
		Database: Database{URL: os.Getenv("DATABASE_URL")},
		Redis:    Redis{URL: os.Getenv("REDIS_URL")},
	}
}

// ParseBool is a lenient boolean cast: strconv.ParseBool forms plus yes/on and no/off.
// The second return value is false when raw is not recognised.
func ParseBool(raw string) (bool, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch v {
	case "yes", "y", "on":
		return true, true
	case "no", "n", "off":
		return false, true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	if b, ok := ParseBool(raw); ok {
		return b
	}
	return fallback
}
