package middleware

import (
	"context"
	"net/http"
	"strings"
)

type ownerKey struct{}

// DefaultOwner is attributed to requests that carry no identity header.
const DefaultOwner = "anonymous"

// Owner resolves the requesting principal from the X-Owner header and stores
// it in the request context. The header is set by the authenticating reverse
// proxy in front of this service; without a proxy (local development) every
// request runs as DefaultOwner.
func Owner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get("X-Owner"))
		if owner == "" {
			owner = DefaultOwner
		}
		ctx := context.WithValue(r.Context(), ownerKey{}, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OwnerFromContext returns the principal stored by Owner, or DefaultOwner
// when the middleware did not run.
func OwnerFromContext(ctx context.Context) string {
	if owner, ok := ctx.Value(ownerKey{}).(string); ok {
		return owner
	}
	return DefaultOwner
}
