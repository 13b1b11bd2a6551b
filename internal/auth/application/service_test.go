package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bookverse/bookverse/internal/auth/application"
	"github.com/bookverse/bookverse/internal/auth/domain"
)

type fakeCredRepo struct {
	byName map[string]domain.Credential
}

func newFakeCredRepo() *fakeCredRepo {
	return &fakeCredRepo{byName: map[string]domain.Credential{}}
}

func (r *fakeCredRepo) Create(_ context.Context, c domain.Credential) error {
	if _, ok := r.byName[c.Username]; ok {
		return application.ErrUsernameTaken
	}
	r.byName[c.Username] = c
	return nil
}

func (r *fakeCredRepo) FindByUsername(_ context.Context, username string) (domain.Credential, error) {
	c, ok := r.byName[username]
	if !ok {
		return domain.Credential{}, application.ErrAdminNotFound
	}
	return c, nil
}

type fakeIssuer struct{}

func (fakeIssuer) Issue(id domain.Identity, username string) (string, error) {
	return "token-for-" + username, nil
}

func seedAdmin(t *testing.T, repo *fakeCredRepo, username, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	repo.byName[username] = domain.Credential{
		ID: "admin-1", Username: username, PasswordHash: string(hash), Role: domain.RoleAdmin,
	}
}

func TestLoginAdminSuccess(t *testing.T) {
	repo := newFakeCredRepo()
	seedAdmin(t, repo, "root", "hunter2")
	svc := application.NewService(repo, fakeIssuer{})

	res, err := svc.LoginAdmin(context.Background(), "root", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "token-for-root", res.Token)
	assert.Equal(t, domain.RoleAdmin, res.Role)
}

func TestLoginAdminWrongPassword(t *testing.T) {
	repo := newFakeCredRepo()
	seedAdmin(t, repo, "root", "hunter2")
	svc := application.NewService(repo, fakeIssuer{})

	_, err := svc.LoginAdmin(context.Background(), "root", "wrong")
	assert.ErrorIs(t, err, application.ErrInvalidCredentials)
}

func TestLoginAdminRejectsNonAdminRole(t *testing.T) {
	repo := newFakeCredRepo()
	svc := application.NewService(repo, fakeIssuer{})

	_, err := svc.Register(context.Background(), "plainuser", "pw123456")
	require.NoError(t, err)

	_, err = svc.LoginAdmin(context.Background(), "plainuser", "pw123456")
	assert.ErrorIs(t, err, application.ErrAdminNotFound)
}

func TestRegisterHashesPassword(t *testing.T) {
	repo := newFakeCredRepo()
	svc := application.NewService(repo, fakeIssuer{})

	c, err := svc.Register(context.Background(), "reader", "s3cret99")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, c.Role)
	assert.NotEqual(t, "s3cret99", c.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte("s3cret99")))
}

func TestRegisterDuplicateUsername(t *testing.T) {
	repo := newFakeCredRepo()
	svc := application.NewService(repo, fakeIssuer{})

	_, err := svc.Register(context.Background(), "reader", "s3cret99")
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), "reader", "other")
	assert.ErrorIs(t, err, application.ErrUsernameTaken)
}
