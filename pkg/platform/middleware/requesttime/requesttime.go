// Package requesttime pins a single "now" per request so that every
// timestamp written while handling it (session creation, identity refresh)
// agrees.
package requesttime

import (
	"net/http"
	"time"

	"hearthgate/pkg/requestcontext"
)

// Middleware captures the current time and stores it on the request context.
// Read it back with requestcontext.Now.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
