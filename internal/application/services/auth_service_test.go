package services_test

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudzz/marketplace/internal/application/services"
	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/internal/domain/policy"
	apperrors "github.com/rudzz/marketplace/pkg/errors"
)

func TestAuthService_RegisterNormalizesContact(t *testing.T) {
	f := newFixture(t)

	res, err := f.auth.Register(context.Background(), services.RegisterInput{
		Email:    " Ada@Example.com ",
		Phone:    "+234 (801) 234-5678",
		Password: "password123",
	})
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", *res.User.Email)
	assert.Equal(t, "2348012345678", *res.User.Phone)
	assert.Equal(t, entities.RoleCustomer, res.User.Role)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.NotEqual(t, "password123", res.User.PasswordHash)
}

func TestAuthService_RegisterDuplicateIgnoresCase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, services.RegisterInput{Email: "ada@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = f.auth.Register(ctx, services.RegisterInput{Email: "ADA@example.com", Password: "password123"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
}

func TestAuthService_RegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   services.RegisterInput
	}{
		{name: "seven character password", in: services.RegisterInput{Email: "a@example.com", Password: strings.Repeat("x", 7)}},
		{name: "no contact", in: services.RegisterInput{Password: "password123"}},
		{name: "email without at", in: services.RegisterInput{Email: "example.com", Password: "password123"}},
		{name: "short phone", in: services.RegisterInput{Phone: "12345", Password: "password123"}},
		{name: "self-assigned admin", in: services.RegisterInput{Email: "b@example.com", Password: "password123", Role: "admin"}},
		{name: "unknown role", in: services.RegisterInput{Email: "c@example.com", Password: "password123", Role: "wizard"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Register(ctx, tt.in)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "got %v", err)
		})
	}

	_, err := f.auth.Register(ctx, services.RegisterInput{Email: "d@example.com", Password: strings.Repeat("x", 8)})
	assert.NoError(t, err)
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "ada@example.com", entities.RoleCustomer)

	_, wrongPassword := f.auth.Login(ctx, services.LoginInput{Email: "ada@example.com", Password: "nope-nope"})
	_, unknownUser := f.auth.Login(ctx, services.LoginInput{Email: "bob@example.com", Password: "password123"})

	require.Error(t, wrongPassword)
	require.Error(t, unknownUser)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
	assert.True(t, apperrors.IsType(wrongPassword, apperrors.ErrorTypeUnauthorized))
}

// countingHasher counts Verify calls so both login failure paths can be
// shown to do the same hashing work
type countingHasher struct {
	plainHasher
	verifies atomic.Int32
}

func (h *countingHasher) Verify(plaintext, digest string) bool {
	h.verifies.Add(1)
	return h.plainHasher.Verify(plaintext, digest)
}

func TestAuthService_LoginVerifiesOnEveryFailurePath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "ada@example.com", entities.RoleCustomer)

	hasher := &countingHasher{}
	auth := services.NewAuthService(f.store.Users(), hasher, f.tokens)

	tests := []struct {
		name  string
		input services.LoginInput
	}{
		{name: "known email, wrong password", input: services.LoginInput{Email: "ada@example.com", Password: "nope-nope"}},
		{name: "unknown email", input: services.LoginInput{Email: "bob@example.com", Password: "password123"}},
		{name: "malformed email", input: services.LoginInput{Email: "not-an-email", Password: "password123"}},
		{name: "unknown phone", input: services.LoginInput{Phone: "0801 999 0000", Password: "password123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hasher.verifies.Store(0)
			_, err := auth.Login(ctx, tt.input)
			assert.EqualError(t, err, "UNAUTHORIZED: invalid credentials")
			assert.Equal(t, int32(1), hasher.verifies.Load())
		})
	}
}

func TestAuthService_LoginByPhoneRecordsLastLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, services.RegisterInput{Phone: "0801 234 5678", Password: "password123"})
	require.NoError(t, err)

	res, err := f.auth.Login(ctx, services.LoginInput{Phone: "(0801) 234-5678", Password: "password123"})
	require.NoError(t, err)
	require.NotNil(t, res.User.LastLogin)

	stored, err := f.store.Users().GetByID(ctx, res.User.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLogin)
}

func TestAuthService_InactiveUserCannotLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := f.register(t, "ada@example.com", entities.RoleCustomer)

	user, err := f.store.Users().GetByID(ctx, actor.UserID)
	require.NoError(t, err)
	user.IsActive = false
	require.NoError(t, f.store.Users().Update(ctx, user))

	_, err = f.auth.Login(ctx, services.LoginInput{Email: "ada@example.com", Password: "password123"})
	assert.EqualError(t, err, "UNAUTHORIZED: invalid credentials")
}

func TestAuthService_TokenTypesAreNotInterchangeable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.auth.Register(ctx, services.RegisterInput{Email: "ada@example.com", Password: "password123", Role: "provider"})
	require.NoError(t, err)

	actor, err := f.auth.ResolveAccessToken(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, policy.Actor{UserID: res.User.ID, Role: entities.RoleProvider}, *actor)

	_, err = f.auth.ResolveAccessToken(ctx, res.RefreshToken)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))

	_, err = f.auth.Refresh(ctx, res.AccessToken)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))

	access, err := f.auth.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err)
	_, err = f.auth.ResolveAccessToken(ctx, access)
	assert.NoError(t, err)
}

func TestAuthService_DeletedUserTokenRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.auth.Register(ctx, services.RegisterInput{Email: "ada@example.com", Password: "password123"})
	require.NoError(t, err)
	actor := policy.Actor{UserID: res.User.ID, Role: res.User.Role}
	require.NoError(t, f.users.Delete(ctx, actor, actor.UserID))

	_, err = f.auth.ResolveAccessToken(ctx, res.AccessToken)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
}
