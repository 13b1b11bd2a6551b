// Package jwt issues and verifies the locally signed HS256 tokens used by the
// admin dashboard. Buyer tokens come from the external provider and are
// handled by the firebase package instead.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bookverse/bookverse/internal/auth/application"
	"github.com/bookverse/bookverse/internal/auth/domain"
)

var ErrInvalidToken = errors.New("invalid token")

const tokenTTL = time.Hour

type claims struct {
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	now    func() time.Time
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), now: time.Now}
}

func (i *Issuer) Issue(identity domain.Identity, username string) (string, error) {
	now := i.now().UTC()
	c := claims{
		Username: username,
		Role:     identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
}

// Verify implements application.TokenVerifier for the admin trust domain.
// Tokens signed with any other method or secret, expired tokens, and tokens
// without the admin role are all rejected.
func (i *Issuer) Verify(_ context.Context, token string) (domain.Identity, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil || !parsed.Valid {
		return domain.Identity{}, ErrInvalidToken
	}
	if c.Role != domain.RoleAdmin {
		return domain.Identity{}, application.ErrForbidden
	}
	return domain.Identity{Subject: c.Subject, Role: c.Role}, nil
}
