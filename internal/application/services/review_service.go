package services

import (
	"context"
	"strings"

	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/internal/domain/policy"
	"github.com/rudzz/marketplace/internal/domain/repositories"
	"github.com/rudzz/marketplace/internal/infrastructure/observability"
	apperrors "github.com/rudzz/marketplace/pkg/errors"
)

// ReviewService handles reviews. The repository applies each review
// mutation together with the provider's rating aggregate.
type ReviewService struct {
	reviews   repositories.ReviewRepository
	providers repositories.ProviderRepository
	metrics   *observability.DomainMetrics
}

// NewReviewService creates a new review service
func NewReviewService(reviews repositories.ReviewRepository, providers repositories.ProviderRepository) *ReviewService {
	return &ReviewService{reviews: reviews, providers: providers}
}

// SetMetrics sets the domain counters
func (s *ReviewService) SetMetrics(metrics *observability.DomainMetrics) {
	s.metrics = metrics
}

// ListByProvider returns a listing's reviews, newest first
func (s *ReviewService) ListByProvider(ctx context.Context, providerID int64) ([]*entities.Review, error) {
	if _, err := s.providers.GetByID(ctx, providerID); err != nil {
		return nil, err
	}
	return s.reviews.ListByProvider(ctx, providerID)
}

// Get returns one review
func (s *ReviewService) Get(ctx context.Context, id int64) (*entities.Review, error) {
	return s.reviews.GetByID(ctx, id)
}

// Create records the acting identity's review of a listing
func (s *ReviewService) Create(ctx context.Context, actor policy.Actor, providerID int64, rating int, content string) (*entities.Review, error) {
	if err := entities.ValidateRating(rating); err != nil {
		return nil, err
	}
	listing, err := s.providers.GetByID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if !policy.CanReview(actor, listing) {
		return nil, apperrors.NewForbiddenError("you cannot review your own listing")
	}

	review := &entities.Review{
		CustomerID: actor.UserID,
		ProviderID: providerID,
		Rating:     rating,
		Content:    strings.TrimSpace(content),
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}
	s.metrics.ReviewApplied(ctx, "create")
	return review, nil
}

// Update changes the rating and content of the acting identity's review
func (s *ReviewService) Update(ctx context.Context, actor policy.Actor, id int64, rating *int, content *string) (*entities.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanModifyReview(actor, review) {
		return nil, apperrors.NewForbiddenError("you can only modify your own review")
	}
	if rating != nil {
		if err := entities.ValidateRating(*rating); err != nil {
			return nil, err
		}
		review.Rating = *rating
	}
	if content != nil {
		review.Content = strings.TrimSpace(*content)
	}

	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, err
	}
	s.metrics.ReviewApplied(ctx, "update")
	return review, nil
}

// Delete removes the acting identity's review
func (s *ReviewService) Delete(ctx context.Context, actor policy.Actor, id int64) error {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanModifyReview(actor, review) {
		return apperrors.NewForbiddenError("you can only delete your own review")
	}
	if err := s.reviews.Delete(ctx, id); err != nil {
		return err
	}
	s.metrics.ReviewApplied(ctx, "delete")
	return nil
}
