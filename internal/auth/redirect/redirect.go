// Package redirect decides which request paths the authentication and
// onboarding filters may redirect away from.
package redirect

import (
	"net/url"
	"strings"

	"hearthgate/pkg/platform/middleware/ingress"
)

// Application routes the filters redirect to or must leave reachable.
const (
	PathRoot              = "/"
	PathDashboard         = "/dashboard"
	PathSignIn            = "/sessions/new"
	PathRegistration      = "/registration/new"
	PathPasswordReset     = "/password_reset/new"
	PathEmailConfirmation = "/email_confirmation/new"
	PathOnboarding        = "/onboarding"
)

// protectedPrefixes are sections a forced redirect must never interrupt.
var protectedPrefixes = []string{
	"/settings",
	"/subscription",
	PathOnboarding,
	"/users",
	"/api",
}

// authFlowPaths stay reachable while a user still has setup to finish.
var authFlowPaths = map[string]struct{}{
	PathRegistration:      {},
	PathSignIn:            {},
	PathPasswordReset:     {},
	PathEmailConfirmation: {},
}

// Normalize reduces path to the application-relative form used for
// comparisons: absolute URLs lose scheme and host, the mount point is
// stripped, trailing slashes go and empty input becomes "/".
func Normalize(mountPoint, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return PathRoot
	}

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		if u, err := url.Parse(path); err == nil {
			path = u.Path
		}
	}

	if mountPoint = strings.TrimRight(mountPoint, "/"); mountPoint != "" {
		path = ingress.StripPrefix(path, mountPoint)
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	path = strings.TrimRight(path, "/")
	if path == "" {
		return PathRoot
	}
	return path
}

// Redirectable reports whether a request for path may be redirected to a
// setup step. Settings, onboarding, user management and API routes are
// exempt, as are the sign-in and registration flows.
func Redirectable(mountPoint, path string) bool {
	normalized := Normalize(mountPoint, path)
	for _, prefix := range protectedPrefixes {
		if normalized == prefix || strings.HasPrefix(normalized, prefix+"/") {
			return false
		}
	}
	_, authFlow := authFlowPaths[normalized]
	return !authFlow
}

// PageActive reports whether a navigation link to linkPath should render as
// active for requestPath. The root link is only active on the root itself.
func PageActive(mountPoint, requestPath, linkPath string) bool {
	current := Normalize(mountPoint, requestPath)
	link := Normalize(mountPoint, linkPath)
	if current == link {
		return true
	}
	return link != PathRoot && strings.HasPrefix(current, link+"/")
}
