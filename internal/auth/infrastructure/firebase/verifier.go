// Package firebase verifies provider-issued buyer ID tokens against Google's
// published signing certificates. It talks only to the public cert endpoint;
// no service-account credentials are needed for verification.
package firebase

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bookverse/bookverse/internal/auth/domain"
)

const defaultCertURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

var (
	ErrInvalidToken = errors.New("invalid id token")

	maxAgeRe = regexp.MustCompile(`max-age=(\d+)`)
)

type idClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier checks RS256 ID tokens for one project. Certificates are cached
// until the Cache-Control max-age from the last fetch runs out.
type Verifier struct {
	projectID string
	certURL   string
	client    *http.Client
	now       func() time.Time

	mu      sync.RWMutex
	certs   map[string]*rsa.PublicKey
	expires time.Time
}

func NewVerifier(projectID string) *Verifier {
	return &Verifier{
		projectID: projectID,
		certURL:   defaultCertURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		now:       time.Now,
	}
}

func (v *Verifier) Verify(ctx context.Context, token string) (domain.Identity, error) {
	var c idClaims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid header")
		}
		return v.publicKey(ctx, kid)
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithTimeFunc(v.now))
	if err != nil || !parsed.Valid {
		return domain.Identity{}, ErrInvalidToken
	}

	if len(c.Audience) != 1 || c.Audience[0] != v.projectID {
		return domain.Identity{}, ErrInvalidToken
	}
	if c.Issuer != "https://securetoken.google.com/"+v.projectID {
		return domain.Identity{}, ErrInvalidToken
	}
	if c.Subject == "" {
		return domain.Identity{}, ErrInvalidToken
	}
	return domain.Identity{Subject: c.Subject, Email: c.Email, Role: domain.RoleUser}, nil
}

func (v *Verifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.certs[kid]
	fresh := v.now().Before(v.expires)
	v.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}

	if err := v.refresh(ctx); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	key, ok = v.certs[kid]
	if !ok {
		return nil, fmt.Errorf("no certificate for kid %q", kid)
	}
	return key, nil
}

func (v *Verifier) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certURL, nil)
	if err != nil {
		return err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch signing certs: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch signing certs: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var pems map[string]string
	if err := json.Unmarshal(body, &pems); err != nil {
		return fmt.Errorf("decode signing certs: %w", err)
	}

	certs := make(map[string]*rsa.PublicKey, len(pems))
	for kid, raw := range pems {
		block, _ := pem.Decode([]byte(raw))
		if block == nil {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			continue
		}
		if pub, ok := cert.PublicKey.(*rsa.PublicKey); ok {
			certs[kid] = pub
		}
	}
	if len(certs) == 0 {
		return errors.New("no usable signing certs in response")
	}

	v.mu.Lock()
	v.certs = certs
	v.expires = v.now().Add(cacheTTL(resp.Header.Get("Cache-Control")))
	v.mu.Unlock()
	return nil
}

func cacheTTL(cacheControl string) time.Duration {
	m := maxAgeRe.FindStringSubmatch(cacheControl)
	if m == nil {
		return time.Minute
	}
	secs, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Minute
	}
	return time.Duration(secs) * time.Second
}
