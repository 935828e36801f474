package repositories

import (
	"context"

	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/pkg/geo"
)

// ProviderRepository defines the interface for provider listing operations
type ProviderRepository interface {
	// Create stores a listing. A second listing for the same user yields a conflict error.
	Create(ctx context.Context, provider *entities.Provider) error

	// GetByID retrieves a listing by ID
	GetByID(ctx context.Context, id int64) (*entities.Provider, error)

	// GetByIDs retrieves the listings that exist among ids, in no particular order
	GetByIDs(ctx context.Context, ids []int64) ([]*entities.Provider, error)

	// GetByUserID retrieves the listing owned by a user
	GetByUserID(ctx context.Context, userID int64) (*entities.Provider, error)

	// List returns listings ordered by ID. A non-nil bounds restricts the
	// result to listings inside the rectangle.
	List(ctx context.Context, bounds *geo.Bounds) ([]*entities.Provider, error)

	// Update updates the owner-editable fields. Rating and review count are left untouched.
	Update(ctx context.Context, provider *entities.Provider) error

	// Delete removes a listing and its reviews
	Delete(ctx context.Context, id int64) error
}
