package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bookverse/bookverse/internal/auth/application"
	"github.com/bookverse/bookverse/internal/auth/domain"
)

type contextKey struct{}

// IdentityFrom returns the verified caller placed in the context by Require.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(domain.Identity)
	return id, ok
}

// Require returns middleware that authenticates the bearer token with the
// given verifier and stores the resulting identity in the request context.
// Each trust domain gets its own middleware by passing its own verifier.
func Require(verifier application.TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Missing authorization token")
				return
			}
			id, err := verifier.Verify(r.Context(), token)
			if errors.Is(err, application.ErrForbidden) {
				writeError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, id)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) || len(header) == len(prefix) {
		return "", false
	}
	return header[len(prefix):], true
}
