package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	vaultauth "github.com/vaultauth/vaultauth"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity attached by [Guard], if any.
func IdentityFromContext(ctx context.Context) (*vaultauth.Identity, bool) {
	ident, ok := ctx.Value(identityContextKey{}).(*vaultauth.Identity)
	return ident, ok
}

// Guard returns middleware that rejects requests without a valid bearer
// access token. Missing tokens yield 401, revoked or invalid ones 403, and
// store outages 500. An infrastructure failure is never reported as an
// authorization answer.
func Guard(engine *vaultauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ident, err := engine.VerifyAccess(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, vaultauth.ErrUnauthenticated):
					http.Error(w, "unauthorized", http.StatusUnauthorized)
				case errors.Is(err, vaultauth.ErrStoreUnavailable):
					http.Error(w, "internal error", http.StatusInternalServerError)
				default:
					http.Error(w, "forbidden", http.StatusForbidden)
				}
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
