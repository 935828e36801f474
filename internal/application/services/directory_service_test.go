package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rudzz/marketplace/internal/application/services"
	"github.com/rudzz/marketplace/internal/domain/entities"
	apperrors "github.com/rudzz/marketplace/pkg/errors"
	"github.com/rudzz/marketplace/pkg/geo"
)

func TestDirectoryService_CreateRequiresProviderRole(t *testing.T) {
	f := newFixture(t)
	customer := f.register(t, "ada@example.com", entities.RoleCustomer)

	_, err := f.directory.Create(context.Background(), customer, listingInput("Ada Repairs", 0, 0))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))
}

func TestDirectoryService_CreateOnePerProvider(t *testing.T) {
	f := newFixture(t)
	owner, listing := f.listing(t, "Fixit", 6.5, 3.4, "plumbing")

	assert.Equal(t, owner.UserID, listing.UserID)
	assert.Zero(t, listing.Rating)
	assert.Zero(t, listing.ReviewCount)

	_, err := f.directory.Create(context.Background(), owner, listingInput("Fixit Two", 6.5, 3.4))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
}

func TestDirectoryService_CreateValidatesCoordinates(t *testing.T) {
	f := newFixture(t)
	owner := f.register(t, "pro@example.com", entities.RoleProvider)

	_, err := f.directory.Create(context.Background(), owner, listingInput("Far", 91, 0))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	name := "Nowhere"
	_, err = f.directory.Create(context.Background(), owner, services.ListingInput{BusinessName: &name})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestDirectoryService_UpdateOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, listing := f.listing(t, "Fixit", 6.5, 3.4, "plumbing")
	other, _ := f.listing(t, "Rival", 6.6, 3.4)

	name := "Hijacked"
	_, err := f.directory.Update(ctx, other, listing.ID, services.ListingInput{BusinessName: &name})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))

	name = "Fixit Ltd"
	updated, err := f.directory.Update(ctx, owner, listing.ID, services.ListingInput{BusinessName: &name, ServicesSet: true})
	require.NoError(t, err)
	assert.Equal(t, "Fixit Ltd", updated.BusinessName)
	assert.Empty(t, updated.Services)
	assert.InDelta(t, 6.5, updated.Latitude, 1e-9)
}

func TestDirectoryService_SearchWithinRadius(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, far := f.listing(t, "Far Away", 1, 1, "plumbing")
	_, near := f.listing(t, "Next Door", 0, 0.05, "plumbing")
	_, origin := f.listing(t, "Origin", 0, 0, "tiling")

	results, err := f.directory.Search(ctx, entities.ProviderFilter{
		Center:   &geo.Point{Lat: 0, Lng: 0},
		RadiusKm: 10,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, origin.ID, results[0].Provider.ID)
	assert.InDelta(t, 0, *results[0].DistanceKm, 1e-9)
	assert.Equal(t, near.ID, results[1].Provider.ID)
	assert.InDelta(t, 5.56, *results[1].DistanceKm, 0.1)
	for _, r := range results {
		assert.NotEqual(t, far.ID, r.Provider.ID)
	}
}

func TestDirectoryService_SearchDefaultRadiusAndServices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, near := f.listing(t, "Next Door", 0, 0.05, "Plumbing")
	f.listing(t, "Origin", 0, 0, "tiling")
	f.listing(t, "Far Away", 1, 1, "plumbing")

	results, err := f.directory.Search(ctx, entities.ProviderFilter{
		Center:   &geo.Point{Lat: 0, Lng: 0},
		Services: []string{" plumbing "},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, near.ID, results[0].Provider.ID)
}

func TestDirectoryService_SearchWithoutCenter(t *testing.T) {
	f := newFixture(t)
	_, a := f.listing(t, "Alpha", 1, 1)
	_, b := f.listing(t, "Beta", -40, 120)

	results, err := f.directory.Search(context.Background(), entities.ProviderFilter{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, a.ID, results[0].Provider.ID)
	assert.Equal(t, b.ID, results[1].Provider.ID)
	assert.Nil(t, results[0].DistanceKm)
}

func TestDirectoryService_SearchRejectsBadCenter(t *testing.T) {
	f := newFixture(t)

	_, err := f.directory.Search(context.Background(), entities.ProviderFilter{Center: &geo.Point{Lat: 100}})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = f.directory.Search(context.Background(), entities.ProviderFilter{Center: &geo.Point{}, RadiusKm: -1})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestDirectoryService_SearchUsesIndexCandidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, near := f.listing(t, "Next Door", 0, 0.05)
	_, far := f.listing(t, "Far Away", 1, 1)

	index := new(MockListingIndex)
	// The index over-approximates; exact filtering still drops the far listing.
	index.On("Search", mock.Anything, mock.Anything).Return([]int64{far.ID, near.ID}, nil).Once()
	f.directory.SetListingIndex(index)

	results, err := f.directory.Search(ctx, entities.ProviderFilter{Center: &geo.Point{}, RadiusKm: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, near.ID, results[0].Provider.ID)
	index.AssertExpectations(t)
}

func TestDirectoryService_SearchFallsBackWhenIndexFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, near := f.listing(t, "Next Door", 0, 0.05)

	index := new(MockListingIndex)
	index.On("Search", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
	f.directory.SetListingIndex(index)

	results, err := f.directory.Search(ctx, entities.ProviderFilter{Center: &geo.Point{}, RadiusKm: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, near.ID, results[0].Provider.ID)
}

func TestDirectoryService_IndexFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture(t)
	index := new(MockListingIndex)
	index.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("index down"))
	f.directory.SetListingIndex(index)

	_, listing := f.listing(t, "Fixit", 6.5, 3.4)
	assert.NotZero(t, listing.ID)
	index.AssertCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestDirectoryService_DeleteCascadesReviews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, listing := f.listing(t, "Fixit", 6.5, 3.4)
	customer := f.register(t, "ada@example.com", entities.RoleCustomer)
	review, err := f.reviews.Create(ctx, customer, listing.ID, 4, "good")
	require.NoError(t, err)

	require.NoError(t, f.directory.Delete(ctx, owner, listing.ID))

	_, err = f.reviews.Get(ctx, review.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestDirectoryService_Reindex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.directory.Reindex(ctx)
	assert.Error(t, err)

	f.listing(t, "Alpha", 1, 1)
	f.listing(t, "Beta", 2, 2)

	index := new(MockListingIndex)
	index.On("Upsert", mock.Anything, mock.Anything).Return(nil).Twice()
	f.directory.SetListingIndex(index)

	n, err := f.directory.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	index.AssertExpectations(t)
}
