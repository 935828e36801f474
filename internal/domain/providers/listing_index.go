package providers

import (
	"context"

	"github.com/rudzz/marketplace/internal/domain/entities"
)

// ListingIndex is an external search index over provider listings. The
// relational store stays the source of truth; the index only narrows the
// candidate set.
type ListingIndex interface {
	// Upsert indexes or re-indexes a listing
	Upsert(ctx context.Context, provider *entities.Provider) error

	// Remove drops a listing from the index
	Remove(ctx context.Context, providerID int64) error

	// Search returns the IDs of listings matching the filter
	Search(ctx context.Context, filter entities.ProviderFilter) ([]int64, error)
}
