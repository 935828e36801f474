package services

import (
	"context"
	"strings"

	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/internal/domain/policy"
	"github.com/rudzz/marketplace/internal/domain/providers"
	"github.com/rudzz/marketplace/internal/domain/repositories"
	"github.com/rudzz/marketplace/internal/infrastructure/observability"
	apperrors "github.com/rudzz/marketplace/pkg/errors"
)

// UpdateUserInput holds the profile fields a user may change. Nil fields
// are left as they are; an empty email or phone clears it.
type UpdateUserInput struct {
	Email     *string
	Phone     *string
	FirstName *string
	LastName  *string
}

// UserService handles account reads and self-service profile changes
type UserService struct {
	users    repositories.UserRepository
	listings repositories.ProviderRepository
	index    providers.ListingIndex
}

// NewUserService creates a new user service
func NewUserService(users repositories.UserRepository, listings repositories.ProviderRepository) *UserService {
	return &UserService{users: users, listings: listings}
}

// SetListingIndex sets the search index that mirrors provider listings
func (s *UserService) SetListingIndex(index providers.ListingIndex) {
	s.index = index
}

// List returns accounts ordered by ID
func (s *UserService) List(ctx context.Context, limit, offset int) ([]*entities.User, error) {
	return s.users.List(ctx, limit, offset)
}

// Get returns one account
func (s *UserService) Get(ctx context.Context, id int64) (*entities.User, error) {
	return s.users.GetByID(ctx, id)
}

// Update changes the acting user's own profile
func (s *UserService) Update(ctx context.Context, actor policy.Actor, id int64, in UpdateUserInput) (*entities.User, error) {
	if !policy.CanUpdateUser(actor, id) {
		return nil, apperrors.NewForbiddenError("you can only update your own profile")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		if strings.TrimSpace(*in.Email) == "" {
			user.Email = nil
		} else {
			email, err := entities.NormalizeEmail(*in.Email)
			if err != nil {
				return nil, err
			}
			user.Email = &email
		}
	}
	if in.Phone != nil {
		if strings.TrimSpace(*in.Phone) == "" {
			user.Phone = nil
		} else {
			phone, err := entities.NormalizePhone(*in.Phone)
			if err != nil {
				return nil, err
			}
			user.Phone = &phone
		}
	}
	if user.Email == nil && user.Phone == nil {
		return nil, apperrors.NewValidationError("email or phone is required")
	}
	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes the acting user's own account and everything it owns
func (s *UserService) Delete(ctx context.Context, actor policy.Actor, id int64) error {
	if !policy.CanDeleteUser(actor, id) {
		return apperrors.NewForbiddenError("you can only delete your own account")
	}

	var listingID int64
	if listing, err := s.listings.GetByUserID(ctx, id); err == nil {
		listingID = listing.ID
	} else if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return err
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}

	logger := observability.LoggerFromContext(ctx)
	logger.Info().Int64("user_id", id).Msg("user deleted")

	if listingID != 0 && s.index != nil {
		if err := s.index.Remove(ctx, listingID); err != nil {
			logger.Warn().Err(err).Int64("provider_id", listingID).Msg("failed to remove listing from search index")
		}
	}
	return nil
}
