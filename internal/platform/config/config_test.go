package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"HEARTHGATE_ADDR", "SELF_HOSTED", "HA_INGRESS_AUTO_LOGIN", "HA_INGRESS_PATH",
		"HA_INGRESS_EMAIL_DOMAIN", "SESSION_COOKIE_SECRET", "SESSION_COOKIE_NAME",
		"SESSION_COOKIE_SECURE", "TRUSTED_PROXIES", "DATABASE_URL", "REDIS_URL",
		"LOG_LEVEL", "REQUEST_TIMEOUT",
	} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.True(t, cfg.SelfHosted)
	assert.False(t, cfg.Ingress.AutoLogin)
	assert.Empty(t, cfg.Ingress.Path)
	assert.Equal(t, "home-assistant.local", cfg.Ingress.EmailDomain)
	assert.Equal(t, "session_token", cfg.Session.CookieName)
	assert.True(t, cfg.UsesDefaultSecret())
	assert.False(t, cfg.Session.CookieSecure)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.Redis.URL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("HEARTHGATE_ADDR", ":9090")
	t.Setenv("SELF_HOSTED", "false")
	t.Setenv("HA_INGRESS_AUTO_LOGIN", "yes")
	t.Setenv("HA_INGRESS_PATH", " /api/hassio_ingress/abc ")
	t.Setenv("HA_INGRESS_EMAIL_DOMAIN", "ha.example")
	t.Setenv("SESSION_COOKIE_SECRET", "s3cret")
	t.Setenv("SESSION_COOKIE_SECURE", "on")
	t.Setenv("REQUEST_TIMEOUT", "5s")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.False(t, cfg.SelfHosted)
	assert.True(t, cfg.Ingress.AutoLogin)
	assert.Equal(t, "/api/hassio_ingress/abc", cfg.Ingress.Path)
	assert.Equal(t, "ha.example", cfg.Ingress.EmailDomain)
	assert.False(t, cfg.UsesDefaultSecret())
	assert.True(t, cfg.Session.CookieSecure)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestFromEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("SELF_HOSTED", "maybe")
	t.Setenv("REQUEST_TIMEOUT", "soon")

	cfg := FromEnv()

	assert.True(t, cfg.SelfHosted)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		raw    string
		want   bool
		parsed bool
	}{
		{"1", true, true},
		{"t", true, true},
		{"TRUE", true, true},
		{"yes", true, true},
		{" on ", true, true},
		{"0", false, true},
		{"false", false, true},
		{"off", false, true},
		{"no", false, true},
		{"", false, false},
		{"enabled", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseBool(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.parsed, ok)
		})
	}
}
