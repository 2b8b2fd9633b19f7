package filter

import (
	"context"

	"hearthgate/internal/auth/models"
	"hearthgate/pkg/requestcontext"
)

type principalKey struct{}

type principal struct {
	session *models.Session
	user    *models.User
}

func withPrincipal(ctx context.Context, p principal) context.Context {
	ctx = context.WithValue(ctx, principalKey{}, p)
	ctx = requestcontext.WithUserID(ctx, p.user.ID)
	ctx = requestcontext.WithSessionID(ctx, p.session.ID)
	return requestcontext.WithTenantID(ctx, p.user.TenantID)
}

// Current returns the session and user admitted by the filter. Both are nil
// outside an authenticated request.
func Current(ctx context.Context) (*models.Session, *models.User) {
	p, ok := ctx.Value(principalKey{}).(principal)
	if !ok {
		return nil, nil
	}
	return p.session, p.user
}

// WithCurrent stores session and user as the request's authenticated
// principal, as Authenticator.Handler does.
func WithCurrent(ctx context.Context, session *models.Session, user *models.User) context.Context {
	return withPrincipal(ctx, principal{session: session, user: user})
}
