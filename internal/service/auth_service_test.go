package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmstore/backend/internal/auth"
	"github.com/farmstore/backend/internal/entity"
	"github.com/farmstore/backend/internal/repository/inmem"
)

func newAuthService() (*AuthService, *inmem.Store) {
	store := inmem.NewStore()
	tokens := auth.NewTokenIssuer("test-secret", 0)
	return NewAuthService(store.Users(), tokens), store
}

func TestRegister(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "  Maria Santos ", " MARIA@Example.com ", "hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.Equal(t, "Maria Santos", user.Name)
	assert.Equal(t, "maria@example.com", user.Email)
	assert.Equal(t, entity.RoleCustomer, user.Role)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "hunter22", user.PasswordHash)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	cases := []struct {
		name, email, password string
	}{
		{"", "a@b.c", "hunter22"},
		{"Maria", "", "hunter22"},
		{"Maria", "a@b.c", ""},
		{"Maria", "not-an-email", "hunter22"},
		{"Maria", "a@b.c", "short"},
	}
	for _, c := range cases {
		_, _, err := svc.Register(ctx, c.name, c.email, c.password)
		assert.ErrorIs(t, err, entity.ErrValidation, "%q %q", c.name, c.email)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "Maria", "maria@example.com", "hunter22")
	require.NoError(t, err)

	// Normalization makes the duplicate check case-insensitive.
	_, _, err = svc.Register(ctx, "Other Maria", "Maria@Example.COM", "hunter23")
	assert.ErrorIs(t, err, entity.ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	registered, _, err := svc.Register(ctx, "Maria", "maria@example.com", "hunter22")
	require.NoError(t, err)

	user, token, err := svc.Login(ctx, "maria@example.com", "hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, registered.ID, user.ID)
}

func TestLoginBadCredentials(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "Maria", "maria@example.com", "hunter22")
	require.NoError(t, err)

	// Unknown email and wrong password fail identically.
	_, _, err = svc.Login(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, entity.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "maria@example.com", "wrong")
	assert.ErrorIs(t, err, entity.ErrInvalidCredentials)
}
