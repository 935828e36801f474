package repositories

import (
	"context"
	"time"

	"github.com/rudzz/marketplace/internal/domain/entities"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create stores a new user and assigns its ID. Duplicate email or phone
	// yields a conflict error.
	Create(ctx context.Context, user *entities.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id int64) (*entities.User, error)

	// GetByEmail retrieves a user by normalized email
	GetByEmail(ctx context.Context, email string) (*entities.User, error)

	// GetByPhone retrieves a user by normalized phone number
	GetByPhone(ctx context.Context, phone string) (*entities.User, error)

	// List returns users ordered by ID
	List(ctx context.Context, limit, offset int) ([]*entities.User, error)

	// Update updates the profile fields of a user
	Update(ctx context.Context, user *entities.User) error

	// UpdateLastLogin records a successful authentication
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error

	// Delete removes a user and every row it owns. Reviews written by the
	// user are withdrawn from their providers' aggregates in the same unit.
	Delete(ctx context.Context, id int64) error
}
