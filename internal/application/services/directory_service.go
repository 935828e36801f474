package services

import (
	"context"
	"sort"
	"strings"

	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/internal/domain/policy"
	"github.com/rudzz/marketplace/internal/domain/providers"
	"github.com/rudzz/marketplace/internal/domain/repositories"
	"github.com/rudzz/marketplace/internal/infrastructure/observability"
	apperrors "github.com/rudzz/marketplace/pkg/errors"
	"github.com/rudzz/marketplace/pkg/geo"
)

// DefaultSearchRadiusKm applies when a center is given without a radius
const DefaultSearchRadiusKm = 10.0

// ListingInput carries the owner-editable listing fields. Nil pointers
// leave the current value in place on update.
type ListingInput struct {
	BusinessName *string
	Description  *string
	Address      *string
	Latitude     *float64
	Longitude    *float64
	Services     []string
	// ServicesSet distinguishes "clear the services" from "leave them"
	ServicesSet bool
}

// DirectoryService handles provider listings and listing search
type DirectoryService struct {
	repo  repositories.ProviderRepository
	index providers.ListingIndex
}

// NewDirectoryService creates a new directory service
func NewDirectoryService(repo repositories.ProviderRepository) *DirectoryService {
	return &DirectoryService{repo: repo}
}

// SetListingIndex sets the search index used to narrow candidates
func (s *DirectoryService) SetListingIndex(index providers.ListingIndex) {
	s.index = index
}

// Create stores the acting provider's listing
func (s *DirectoryService) Create(ctx context.Context, actor policy.Actor, in ListingInput) (*entities.Provider, error) {
	if !policy.CanCreateListing(actor) {
		return nil, apperrors.NewForbiddenError("only providers can create a listing")
	}
	if in.BusinessName == nil || strings.TrimSpace(*in.BusinessName) == "" {
		return nil, apperrors.NewValidationError("business_name is required")
	}
	if in.Latitude == nil || in.Longitude == nil {
		return nil, apperrors.NewValidationError("latitude and longitude are required")
	}

	listing := &entities.Provider{UserID: actor.UserID, Services: []string{}}
	applyListingInput(listing, in)
	if err := listing.ValidateLocation(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByUserID(ctx, actor.UserID); err == nil {
		return nil, apperrors.NewConflictError("provider profile already exists")
	} else if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return nil, err
	}

	if err := s.repo.Create(ctx, listing); err != nil {
		return nil, err
	}
	s.syncIndex(ctx, listing)
	return listing, nil
}

// Get returns one listing
func (s *DirectoryService) Get(ctx context.Context, id int64) (*entities.Provider, error) {
	return s.repo.GetByID(ctx, id)
}

// Update changes a listing owned by the acting identity
func (s *DirectoryService) Update(ctx context.Context, actor policy.Actor, id int64, in ListingInput) (*entities.Provider, error) {
	listing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanModifyListing(actor, listing) {
		return nil, apperrors.NewForbiddenError("you can only modify your own listing")
	}
	if in.BusinessName != nil && strings.TrimSpace(*in.BusinessName) == "" {
		return nil, apperrors.NewValidationError("business_name cannot be empty")
	}

	applyListingInput(listing, in)
	if err := listing.ValidateLocation(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, listing); err != nil {
		return nil, err
	}
	s.syncIndex(ctx, listing)
	return listing, nil
}

// Delete removes a listing owned by the acting identity, along with its reviews
func (s *DirectoryService) Delete(ctx context.Context, actor policy.Actor, id int64) error {
	listing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanModifyListing(actor, listing) {
		return apperrors.NewForbiddenError("you can only delete your own listing")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.index != nil {
		if err := s.index.Remove(ctx, id); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Int64("provider_id", id).Msg("failed to remove listing from search index")
		}
	}
	return nil
}

// Search returns listings matching the filter. With a center point the
// result holds only listings within the radius, nearest first, each
// annotated with its distance; otherwise listings are ordered by ID.
func (s *DirectoryService) Search(ctx context.Context, filter entities.ProviderFilter) ([]*entities.ProviderSearchResult, error) {
	filter.Services = entities.CleanServices(filter.Services)
	if filter.Center != nil {
		if !filter.Center.Valid() {
			return nil, apperrors.NewValidationError("search center is out of range")
		}
		if filter.RadiusKm < 0 {
			return nil, apperrors.NewValidationError("radius must be positive")
		}
		if filter.RadiusKm == 0 {
			filter.RadiusKm = DefaultSearchRadiusKm
		}
	}

	candidates, err := s.candidates(ctx, filter)
	if err != nil {
		return nil, err
	}

	results := make([]*entities.ProviderSearchResult, 0, len(candidates))
	for _, p := range candidates {
		if !p.OfferedAny(filter.Services) {
			continue
		}
		result := &entities.ProviderSearchResult{Provider: p}
		if filter.Center != nil {
			d := geo.DistanceKm(*filter.Center, p.Location())
			if d > filter.RadiusKm {
				continue
			}
			result.DistanceKm = &d
		}
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.DistanceKm != nil && b.DistanceKm != nil && *a.DistanceKm != *b.DistanceKm {
			return *a.DistanceKm < *b.DistanceKm
		}
		return a.Provider.ID < b.Provider.ID
	})
	return results, nil
}

// Reindex pushes every listing into the search index and returns how many were indexed
func (s *DirectoryService) Reindex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, apperrors.NewValidationError("search index is not configured")
	}
	listings, err := s.repo.List(ctx, nil)
	if err != nil {
		return 0, err
	}
	for i, p := range listings {
		if err := s.index.Upsert(ctx, p); err != nil {
			return i, apperrors.NewExternalError("failed to index listing", err)
		}
	}
	return len(listings), nil
}

// candidates narrows the listing set before exact filtering. The index is
// preferred; the relational store is the fallback.
func (s *DirectoryService) candidates(ctx context.Context, filter entities.ProviderFilter) ([]*entities.Provider, error) {
	if s.index != nil {
		ids, err := s.index.Search(ctx, filter)
		if err == nil {
			return s.repo.GetByIDs(ctx, ids)
		}
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("listing index search failed, falling back to database")
	}

	if filter.Center != nil {
		if bounds, ok := geo.BoundingBox(*filter.Center, filter.RadiusKm); ok {
			return s.repo.List(ctx, &bounds)
		}
	}
	return s.repo.List(ctx, nil)
}

func (s *DirectoryService) syncIndex(ctx context.Context, listing *entities.Provider) {
	if s.index == nil {
		return
	}
	if err := s.index.Upsert(ctx, listing); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Int64("provider_id", listing.ID).Msg("failed to index listing")
	}
}

func applyListingInput(listing *entities.Provider, in ListingInput) {
	if in.BusinessName != nil {
		listing.BusinessName = strings.TrimSpace(*in.BusinessName)
	}
	if in.Description != nil {
		listing.Description = strings.TrimSpace(*in.Description)
	}
	if in.Address != nil {
		listing.Address = strings.TrimSpace(*in.Address)
	}
	if in.Latitude != nil {
		listing.Latitude = *in.Latitude
	}
	if in.Longitude != nil {
		listing.Longitude = *in.Longitude
	}
	if in.ServicesSet || in.Services != nil {
		listing.Services = entities.CleanServices(in.Services)
	}
}
