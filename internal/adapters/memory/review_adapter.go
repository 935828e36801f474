package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/internal/domain/repositories"
	apperrors "github.com/rudzz/marketplace/pkg/errors"
)

// ReviewAdapter implements repositories.ReviewRepository
type ReviewAdapter struct {
	s *Store
}

var _ repositories.ReviewRepository = (*ReviewAdapter)(nil)

func (a *ReviewAdapter) Create(ctx context.Context, review *entities.Review) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	provider, ok := a.s.providers[review.ProviderID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("provider %d not found", review.ProviderID))
	}
	for _, r := range a.s.reviews {
		if r.CustomerID == review.CustomerID && r.ProviderID == review.ProviderID {
			return apperrors.NewConflictError("you have already reviewed this provider")
		}
	}

	now := a.s.timestamp()
	provider.ApplyReviewCreated(review.Rating)
	provider.UpdatedAt = now

	review.ID = a.s.id("reviews")
	review.CreatedAt = now
	review.UpdatedAt = now
	a.s.reviews[review.ID] = copyReview(review)
	return nil
}

func (a *ReviewAdapter) GetByID(ctx context.Context, id int64) (*entities.Review, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	r, ok := a.s.reviews[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("review %d not found", id))
	}
	return copyReview(r), nil
}

func (a *ReviewAdapter) ListByProvider(ctx context.Context, providerID int64) ([]*entities.Review, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	out := []*entities.Review{}
	for _, r := range a.s.reviews {
		if r.ProviderID == providerID {
			out = append(out, copyReview(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (a *ReviewAdapter) Update(ctx context.Context, review *entities.Review) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	existing, ok := a.s.reviews[review.ID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("review %d not found", review.ID))
	}
	provider, ok := a.s.providers[existing.ProviderID]
	if !ok {
		return apperrors.NewConsistencyError(
			fmt.Sprintf("review %d references missing provider %d", existing.ID, existing.ProviderID), nil)
	}
	if err := provider.ApplyReviewUpdated(existing.Rating, review.Rating); err != nil {
		return err
	}

	now := a.s.timestamp()
	provider.UpdatedAt = now
	existing.Rating = review.Rating
	existing.Content = review.Content
	existing.UpdatedAt = now

	*review = *copyReview(existing)
	return nil
}

func (a *ReviewAdapter) Delete(ctx context.Context, id int64) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	existing, ok := a.s.reviews[id]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("review %d not found", id))
	}
	return a.s.deleteReviewLocked(existing)
}
