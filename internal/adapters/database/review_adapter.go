package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"

	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/internal/domain/repositories"
	"github.com/rudzz/marketplace/internal/infrastructure/clients/postgres"
	apperrors "github.com/rudzz/marketplace/pkg/errors"
)

var reviewColumns = []interface{}{
	"id", "customer_id", "provider_id", "rating", "content", "created_at", "updated_at",
}

// ReviewAdapter implements the ReviewRepository interface. Each mutation
// runs in one transaction that locks the provider row before the review,
// so concurrent writers on the same listing serialize on that lock.
type ReviewAdapter struct {
	client *postgres.Client
	now    func() time.Time
}

var _ repositories.ReviewRepository = (*ReviewAdapter)(nil)

// NewReviewAdapter creates a new review adapter
func NewReviewAdapter(client *postgres.Client) *ReviewAdapter {
	return &ReviewAdapter{client: client, now: utcNow}
}

// Create stores a review and folds it into the provider aggregate
func (a *ReviewAdapter) Create(ctx context.Context, review *entities.Review) error {
	if err := entities.ValidateRating(review.Rating); err != nil {
		return err
	}
	now := a.now()

	return a.client.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockUser(ctx, tx, review.CustomerID, false); err != nil {
			return err
		}
		provider, err := lockProvider(ctx, tx, review.ProviderID)
		if err != nil {
			return err
		}

		query, args, err := dialect.Insert("reviews").Prepared(true).Rows(goqu.Record{
			"customer_id": review.CustomerID,
			"provider_id": review.ProviderID,
			"rating":      review.Rating,
			"content":     review.Content,
			"created_at":  now,
			"updated_at":  now,
		}).Returning("id").ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build insert query", err)
		}
		if err := tx.QueryRowxContext(ctx, query, args...).Scan(&review.ID); err != nil {
			return translateError(err, "failed to create review")
		}

		provider.ApplyReviewCreated(review.Rating)
		if err := saveAggregate(ctx, tx, provider, now); err != nil {
			return err
		}
		review.CreatedAt = now
		review.UpdatedAt = now
		return nil
	})
}

// GetByID retrieves a review by ID
func (a *ReviewAdapter) GetByID(ctx context.Context, id int64) (*entities.Review, error) {
	return getReview(ctx, a.client.DB(), id, false)
}

// ListByProvider retrieves a provider's reviews, newest first
func (a *ReviewAdapter) ListByProvider(ctx context.Context, providerID int64) ([]*entities.Review, error) {
	query, args, err := dialect.From("reviews").Prepared(true).
		Select(reviewColumns...).
		Where(goqu.Ex{"provider_id": providerID}).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	reviews := []*entities.Review{}
	if err := a.client.DB().SelectContext(ctx, &reviews, query, args...); err != nil {
		return nil, translateError(err, "failed to list reviews")
	}
	return reviews, nil
}

// Update stores the new rating and content and replaces the old rating in
// the provider aggregate
func (a *ReviewAdapter) Update(ctx context.Context, review *entities.Review) error {
	if err := entities.ValidateRating(review.Rating); err != nil {
		return err
	}
	now := a.now()

	return a.client.WithTx(ctx, func(tx *sqlx.Tx) error {
		provider, current, err := a.lockPair(ctx, tx, review.ID)
		if err != nil {
			return err
		}

		query, args, err := dialect.Update("reviews").Prepared(true).Set(goqu.Record{
			"rating":     review.Rating,
			"content":    review.Content,
			"updated_at": now,
		}).Where(goqu.Ex{"id": review.ID}).ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build update query", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return translateError(err, "failed to update review")
		}

		if err := provider.ApplyReviewUpdated(current.Rating, review.Rating); err != nil {
			return err
		}
		if err := saveAggregate(ctx, tx, provider, now); err != nil {
			return err
		}
		review.CustomerID = current.CustomerID
		review.ProviderID = current.ProviderID
		review.CreatedAt = current.CreatedAt
		review.UpdatedAt = now
		return nil
	})
}

// Delete removes a review and withdraws it from the provider aggregate
func (a *ReviewAdapter) Delete(ctx context.Context, id int64) error {
	now := a.now()

	return a.client.WithTx(ctx, func(tx *sqlx.Tx) error {
		provider, current, err := a.lockPair(ctx, tx, id)
		if err != nil {
			return err
		}

		query, args, err := dialect.Delete("reviews").Prepared(true).Where(goqu.Ex{"id": id}).ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build delete query", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return translateError(err, "failed to delete review")
		}

		if err := provider.ApplyReviewDeleted(current.Rating); err != nil {
			return err
		}
		return saveAggregate(ctx, tx, provider, now)
	})
}

// lockPair locks the review's provider and then the review itself. The
// provider is always locked first so review writers and account deletion
// acquire locks in the same order.
func (a *ReviewAdapter) lockPair(ctx context.Context, tx *sqlx.Tx, reviewID int64) (*entities.Provider, *entities.Review, error) {
	existing, err := getReview(ctx, tx, reviewID, false)
	if err != nil {
		return nil, nil, err
	}
	provider, err := lockProvider(ctx, tx, existing.ProviderID)
	if err != nil {
		return nil, nil, err
	}
	locked, err := getReview(ctx, tx, reviewID, true)
	if err != nil {
		return nil, nil, err
	}
	return provider, locked, nil
}

func getReview(ctx context.Context, q sqlx.QueryerContext, id int64, forUpdate bool) (*entities.Review, error) {
	ds := dialect.From("reviews").Prepared(true).
		Select(reviewColumns...).
		Where(goqu.Ex{"id": id})
	if forUpdate {
		ds = ds.ForUpdate(exp.Wait)
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	review := &entities.Review{}
	if err := sqlx.GetContext(ctx, q, review, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("review %d not found", id))
		}
		return nil, translateError(err, "failed to get review")
	}
	return review, nil
}
