// Package requestcontext holds the request-scoped values that middleware
// establishes and handlers, services and loggers read. Nothing here is
// process-wide: every value lives on the request's context.Context.
package requestcontext

import (
	"context"
	"time"

	id "hearthgate/pkg/domain"
)

type (
	requestIDKey  struct{}
	clientIPKey   struct{}
	userAgentKey  struct{}
	timeKey       struct{}
	mountPointKey struct{}
	userIDKey     struct{}
	sessionIDKey  struct{}
	tenantIDKey   struct{}
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request id or "" outside an HTTP request.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// WithClientMetadata stores the resolved client IP and User-Agent.
func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, ip)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey{}).(string)
	return v
}

func UserAgent(ctx context.Context) string {
	v, _ := ctx.Value(userAgentKey{}).(string)
	return v
}

// WithTime pins "now" for the rest of the request so every timestamp written
// while handling it agrees.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, timeKey{}, t)
}

// Now returns the request-scoped time, falling back to time.Now() for
// workers, CLI commands and tests that never ran the middleware.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(timeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithMountPoint records the path prefix the application is served under.
// It is the Go counterpart of CGI's SCRIPT_NAME.
func WithMountPoint(ctx context.Context, mountPoint string) context.Context {
	return context.WithValue(ctx, mountPointKey{}, mountPoint)
}

// MountPoint returns "" when the application is served at the root.
func MountPoint(ctx context.Context) string {
	v, _ := ctx.Value(mountPointKey{}).(string)
	return v
}

func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func UserID(ctx context.Context) id.UserID {
	v, _ := ctx.Value(userIDKey{}).(id.UserID)
	return v
}

func WithSessionID(ctx context.Context, sessionID id.SessionID) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

func SessionID(ctx context.Context) id.SessionID {
	v, _ := ctx.Value(sessionIDKey{}).(id.SessionID)
	return v
}

func WithTenantID(ctx context.Context, tenantID id.TenantID) context.Context {
	return context.WithValue(ctx, tenantIDKey{}, tenantID)
}

func TenantID(ctx context.Context) id.TenantID {
	v, _ := ctx.Value(tenantIDKey{}).(id.TenantID)
	return v
}
