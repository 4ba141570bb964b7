package chi

import (
	"context"
	"net/http"
	"strings"

	authuc "github.com/vincent3477/GraduateSupportApp/internal/usecase/auth"
)

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*authuc.Claims, error)
}

// exemptPaths are routes that bypass authentication.
var exemptPaths = map[string]struct{}{
	"/":                 {},
	"/health":           {},
	"/metrics":          {},
	"/api/register":     {},
	"/api/login":        {},
	"/api/verify-token": {},
}

// JWTAuthMiddleware returns a middleware that validates Bearer JWTs.
// A nil verifier disables authentication (pass-through).
func JWTAuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		// Auth disabled — pass everything through
		if verifier == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Exempt paths
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing bearer token")
				return
			}

			if _, err := verifier.Verify(r.Context(), token); err != nil {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", false
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(auth, bearerPrefix) {
		return "", false
	}

	token := auth[len(bearerPrefix):]
	if token == "" {
		return "", false
	}
	return token, true
}
