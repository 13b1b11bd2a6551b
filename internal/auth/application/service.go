package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bookverse/bookverse/internal/auth/domain"
)

var (
	ErrAdminNotFound      = errors.New("admin not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already exists")
)

type LoginResult struct {
	Token    string
	Username string
	Role     domain.Role
}

type Service struct {
	repo   CredentialRepository
	issuer TokenIssuer
}

func NewService(repo CredentialRepository, issuer TokenIssuer) *Service {
	return &Service{repo: repo, issuer: issuer}
}

// LoginAdmin checks the password against the stored bcrypt hash and issues a
// short-lived admin token. Only admin-role credentials can log in here.
func (s *Service) LoginAdmin(ctx context.Context, username, password string) (LoginResult, error) {
	c, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return LoginResult{}, err
	}
	if c.Role != domain.RoleAdmin {
		return LoginResult{}, ErrAdminNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(domain.Identity{Subject: c.ID, Role: c.Role}, c.Username)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, Username: c.Username, Role: c.Role}, nil
}

// Register stores a new user-role credential with a bcrypt hash.
func (s *Service) Register(ctx context.Context, username, password string) (domain.Credential, error) {
	if username == "" || password == "" {
		return domain.Credential{}, ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Credential{}, err
	}
	now := time.Now().UTC()
	c := domain.Credential{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return domain.Credential{}, err
	}
	return c, nil
}
