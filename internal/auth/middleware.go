package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"securityapi/internal/observability"
)

// IdentityResolver turns a bearer token into a user.
type IdentityResolver interface {
	ResolveCurrentIdentity(ctx context.Context, token string) (User, error)
}

// Middleware rejects requests without a valid bearer token and hands the
// resolved user to next through the request context.
func Middleware(resolver IdentityResolver, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			writeError(w, http.StatusUnauthorized, "invalid authorization format")
			return
		}

		user, err := resolver.ResolveCurrentIdentity(r.Context(), strings.TrimSpace(token))
		if err != nil {
			if errors.Is(err, ErrUnauthenticated) {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			observability.CaptureError(err)
			writeError(w, http.StatusInternalServerError, "failed to authenticate")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}
