package entities

import (
	"time"

	apperrors "github.com/rudzz/marketplace/pkg/errors"
)

// Review is a customer's star rating of a provider listing.
// A customer may hold at most one review per provider.
type Review struct {
	ID         int64     `json:"id" db:"id"`
	CustomerID int64     `json:"customer_id" db:"customer_id"`
	ProviderID int64     `json:"provider_id" db:"provider_id"`
	Rating     int       `json:"rating" db:"rating"` // 1-5
	Content    string    `json:"content" db:"content"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// ValidateRating checks the star value
func ValidateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return apperrors.NewValidationError("rating must be between 1 and 5")
	}
	return nil
}
