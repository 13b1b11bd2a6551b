package application

import (
	"context"
	"errors"

	"github.com/bookverse/bookverse/internal/auth/domain"
)

// ErrForbidden marks a token that verified cleanly but does not carry the
// capability the verifier demands. Handlers map it to 403 rather than 401.
var ErrForbidden = errors.New("insufficient capability")

type CredentialRepository interface {
	// Create stores a credential; ErrUsernameTaken when the username exists.
	Create(ctx context.Context, c domain.Credential) error
	FindByUsername(ctx context.Context, username string) (domain.Credential, error)
}

// TokenIssuer mints tokens for the local (admin) trust domain.
type TokenIssuer interface {
	Issue(identity domain.Identity, username string) (string, error)
}

// TokenVerifier authenticates a bearer token from one trust domain. The two
// schemes (provider-issued buyer tokens, locally issued admin tokens) each
// implement this and stay otherwise independent; routes pick a capability by
// picking a verifier.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (domain.Identity, error)
}
