// Package ingress makes the application mountable under a path prefix chosen
// at runtime by a fronting reverse proxy (Home Assistant ingress, Traefik
// StripPrefix, nginx sub-path deployments).
//
// The middleware runs outermost. It resolves the prefix from request headers
// or static configuration, records it as the request's mount point and strips
// it from the URL path, so routing downstream sees application-relative paths
// while link generation can re-add the mount point with PrefixedPath.
package ingress

import (
	"net/http"
	"strings"

	"hearthgate/pkg/requestcontext"
)

const (
	// HeaderIngressPath is set by Home Assistant's ingress proxy.
	HeaderIngressPath = "X-Ingress-Path"
	// HeaderForwardedPrefix is the de-facto standard prefix header; proxies
	// chaining it produce a comma-separated list, of which the first counts.
	HeaderForwardedPrefix = "X-Forwarded-Prefix"
)

// Resolver resolves the ingress prefix for a request. The zero value consults
// headers only.
type Resolver struct {
	staticPath string
}

// NewResolver creates a resolver that falls back to staticPath when neither
// ingress header yields a usable prefix.
func NewResolver(staticPath string) *Resolver {
	return &Resolver{staticPath: staticPath}
}

// Prefix returns the first candidate that normalizes to a usable prefix, in
// priority order: ingress header, first forwarded-prefix element, static path.
func (r *Resolver) Prefix(h http.Header) (string, bool) {
	forwarded, _, _ := strings.Cut(h.Get(HeaderForwardedPrefix), ",")
	candidates := [...]string{
		h.Get(HeaderIngressPath),
		forwarded,
		r.staticPath,
	}
	for _, candidate := range candidates {
		if prefix, ok := NormalizePrefix(candidate); ok {
			return prefix, true
		}
	}
	return "", false
}

// Resolve computes the rewritten mount point and path for a request. When no
// prefix applies both values come back unchanged.
func (r *Resolver) Resolve(h http.Header, mountPoint, path string) (string, string) {
	prefix, ok := r.Prefix(h)
	if !ok {
		return mountPoint, path
	}
	return MergeMountPoint(mountPoint, prefix), StripPrefix(path, prefix)
}

// Handler applies Resolve to the request: the mount point goes into the
// request context and r.URL.Path loses the prefix.
func (r *Resolver) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		prefix, ok := r.Prefix(req.Header)
		if !ok {
			next.ServeHTTP(w, req)
			return
		}

		ctx := req.Context()
		mountPoint := MergeMountPoint(requestcontext.MountPoint(ctx), prefix)
		ctx = requestcontext.WithMountPoint(ctx, mountPoint)

		rewritten := req.WithContext(ctx)
		u := *req.URL
		u.Path = StripPrefix(u.Path, prefix)
		if u.RawPath != "" {
			if hasPathPrefix(u.RawPath, prefix) {
				u.RawPath = StripPrefix(u.RawPath, prefix)
			} else {
				u.RawPath = ""
			}
		}
		rewritten.URL = &u

		next.ServeHTTP(w, rewritten)
	})
}

// NormalizePrefix trims whitespace, ensures a leading slash and drops
// trailing slashes. "" and "/" are not prefixes. NormalizePrefix is
// idempotent.
func NormalizePrefix(value string) (string, bool) {
	prefix := strings.TrimSpace(value)
	if prefix == "" {
		return "", false
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" || prefix == "/" {
		return "", false
	}
	return prefix, true
}

// MergeMountPoint folds prefix into an existing mount point without ever
// applying the same prefix twice, so repeated invocations (chained proxies,
// re-entrant handlers) are harmless.
func MergeMountPoint(existing, prefix string) string {
	if existing == "" {
		return prefix
	}
	if hasPathPrefix(existing, prefix) {
		return existing
	}
	return strings.TrimRight(existing, "/") + prefix
}

// StripPrefix removes prefix from path when path lies under it. Paths outside
// the prefix are returned untouched rather than guessed at; a path equal to
// the prefix becomes "/".
func StripPrefix(path, prefix string) string {
	if path == "" || !hasPathPrefix(path, prefix) {
		return path
	}
	stripped := strings.TrimPrefix(path, prefix)
	if stripped == "" {
		return "/"
	}
	return stripped
}

// PrefixedPath re-adds mountPoint to an application-relative path for links
// and redirects. Absolute URLs, blank paths and paths already under the mount
// point pass through.
func PrefixedPath(mountPoint, path string) string {
	if strings.TrimSpace(path) == "" {
		return path
	}
	mountPoint = strings.TrimRight(mountPoint, "/")
	if mountPoint == "" {
		return path
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "//") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if strings.HasPrefix(path, mountPoint+"/") {
		return path
	}
	return mountPoint + path
}

// hasPathPrefix matches whole segments only: "/ingress/ab" is not under
// "/ingress/a".
func hasPathPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
