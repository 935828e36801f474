package repositories

import (
	"context"

	"github.com/rudzz/marketplace/internal/domain/entities"
)

// ReviewRepository defines the interface for review operations. Every
// mutation applies the review row and the provider's rating aggregate as
// one atomic unit.
type ReviewRepository interface {
	// Create stores a review and folds it into the provider aggregate.
	// A second review by the same customer for the same provider yields a
	// conflict error and leaves the aggregate untouched.
	Create(ctx context.Context, review *entities.Review) error

	// GetByID retrieves a review by ID
	GetByID(ctx context.Context, id int64) (*entities.Review, error)

	// ListByProvider retrieves a provider's reviews, newest first
	ListByProvider(ctx context.Context, providerID int64) ([]*entities.Review, error)

	// Update stores the new rating and content and replaces the old rating
	// in the provider aggregate
	Update(ctx context.Context, review *entities.Review) error

	// Delete removes a review and withdraws it from the provider aggregate
	Delete(ctx context.Context, id int64) error
}
