package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rudzz/marketplace/internal/application/services"
	"github.com/rudzz/marketplace/internal/domain/entities"
	apperrors "github.com/rudzz/marketplace/pkg/errors"
)

func TestUserService_UpdateOwnProfileOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.register(t, "ada@example.com", entities.RoleCustomer)
	bob := f.register(t, "bob@example.com", entities.RoleCustomer)

	name := "Ada"
	_, err := f.users.Update(ctx, bob, ada.UserID, services.UpdateUserInput{FirstName: &name})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))

	email := "ADA.L@Example.com"
	updated, err := f.users.Update(ctx, ada, ada.UserID, services.UpdateUserInput{FirstName: &name, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "Ada", updated.FirstName)
	assert.Equal(t, "ada.l@example.com", *updated.Email)
}

func TestUserService_UpdateRejectsTakenEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.register(t, "ada@example.com", entities.RoleCustomer)
	f.register(t, "bob@example.com", entities.RoleCustomer)

	email := "Bob@example.com"
	_, err := f.users.Update(ctx, ada, ada.UserID, services.UpdateUserInput{Email: &email})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
}

func TestUserService_UpdateKeepsOneContact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.register(t, "ada@example.com", entities.RoleCustomer)

	empty := ""
	_, err := f.users.Update(ctx, ada, ada.UserID, services.UpdateUserInput{Email: &empty})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestUserService_DeleteRemovesListingFromIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	index := new(MockListingIndex)
	index.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	f.directory.SetListingIndex(index)
	f.users.SetListingIndex(index)

	owner, listing := f.listing(t, "Fixit", 6.5, 3.4, "plumbing")
	index.On("Remove", mock.Anything, listing.ID).Return(nil).Once()

	require.NoError(t, f.users.Delete(ctx, owner, owner.UserID))

	_, err := f.directory.Get(ctx, listing.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	index.AssertExpectations(t)
}

func TestUserService_DeleteOtherForbidden(t *testing.T) {
	f := newFixture(t)
	ada := f.register(t, "ada@example.com", entities.RoleCustomer)
	admin := f.register(t, "root@example.com", entities.RoleCustomer)
	admin.Role = entities.RoleAdmin

	err := f.users.Delete(context.Background(), admin, ada.UserID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))
}
