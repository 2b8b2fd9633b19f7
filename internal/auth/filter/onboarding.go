package filter

import (
	"net/http"

	"hearthgate/internal/auth/metrics"
	"hearthgate/internal/auth/redirect"
	"hearthgate/pkg/platform/middleware/ingress"
	"hearthgate/pkg/requestcontext"
)

// RequireOnboarding sends users who have not finished first-run setup to the
// onboarding page. It must run after Authenticator.Handler; requests without
// a current user pass through.
func RequireOnboarding(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			_, user := Current(ctx)
			if user == nil || !user.NeedsOnboarding() {
				next.ServeHTTP(w, r)
				return
			}

			mountPoint := requestcontext.MountPoint(ctx)
			if !redirect.Redirectable(mountPoint, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			m.IncFilterRedirect("onboarding")
			http.Redirect(w, r, ingress.PrefixedPath(mountPoint, redirect.PathOnboarding), http.StatusFound)
		})
	}
}
