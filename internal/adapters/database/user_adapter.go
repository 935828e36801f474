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

var userColumns = []interface{}{
	"id", "email", "phone", "password_hash", "first_name", "last_name",
	"role", "is_active", "last_login", "created_at", "updated_at",
}

// UserAdapter implements the UserRepository interface
type UserAdapter struct {
	client *postgres.Client
	now    func() time.Time
}

var _ repositories.UserRepository = (*UserAdapter)(nil)

// NewUserAdapter creates a new user adapter
func NewUserAdapter(client *postgres.Client) *UserAdapter {
	return &UserAdapter{client: client, now: utcNow}
}

// Create creates a new user
func (a *UserAdapter) Create(ctx context.Context, user *entities.User) error {
	now := a.now()
	query, args, err := dialect.Insert("users").Prepared(true).Rows(goqu.Record{
		"email":         nullString(user.Email),
		"phone":         nullString(user.Phone),
		"password_hash": user.PasswordHash,
		"first_name":    user.FirstName,
		"last_name":     user.LastName,
		"role":          string(user.Role),
		"is_active":     user.IsActive,
		"created_at":    now,
		"updated_at":    now,
	}).Returning("id").ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if err := a.client.DB().QueryRowxContext(ctx, query, args...).Scan(&user.ID); err != nil {
		return translateError(err, "failed to create user")
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetByID retrieves a user by ID
func (a *UserAdapter) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	return a.getBy(ctx, goqu.Ex{"id": id}, fmt.Sprintf("user %d not found", id))
}

// GetByEmail retrieves a user by normalized email
func (a *UserAdapter) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	return a.getBy(ctx, goqu.Ex{"email": email}, "user not found")
}

// GetByPhone retrieves a user by normalized phone
func (a *UserAdapter) GetByPhone(ctx context.Context, phone string) (*entities.User, error) {
	return a.getBy(ctx, goqu.Ex{"phone": phone}, "user not found")
}

func (a *UserAdapter) getBy(ctx context.Context, where goqu.Ex, notFound string) (*entities.User, error) {
	query, args, err := dialect.From("users").Prepared(true).
		Select(userColumns...).
		Where(where).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	user := &entities.User{}
	if err := a.client.DB().GetContext(ctx, user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(notFound)
		}
		return nil, translateError(err, "failed to get user")
	}
	return user, nil
}

// List returns users ordered by ID
func (a *UserAdapter) List(ctx context.Context, limit, offset int) ([]*entities.User, error) {
	ds := dialect.From("users").Prepared(true).
		Select(userColumns...).
		Order(goqu.C("id").Asc())
	query, args, err := pageOf(ds, limit, offset).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	users := []*entities.User{}
	if err := a.client.DB().SelectContext(ctx, &users, query, args...); err != nil {
		return nil, translateError(err, "failed to list users")
	}
	return users, nil
}

// Update updates the profile fields of a user
func (a *UserAdapter) Update(ctx context.Context, user *entities.User) error {
	user.UpdatedAt = a.now()
	query, args, err := dialect.Update("users").Prepared(true).Set(goqu.Record{
		"email":      nullString(user.Email),
		"phone":      nullString(user.Phone),
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"role":       string(user.Role),
		"is_active":  user.IsActive,
		"updated_at": user.UpdatedAt,
	}).Where(goqu.Ex{"id": user.ID}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return translateError(err, "failed to update user")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	return affectedOne(rows, fmt.Sprintf("user %d not found", user.ID))
}

// UpdateLastLogin records a successful authentication
func (a *UserAdapter) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	query, args, err := dialect.Update("users").Prepared(true).
		Set(goqu.Record{"last_login": at}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return translateError(err, "failed to record last login")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	return affectedOne(rows, fmt.Sprintf("user %d not found", id))
}

// Delete removes a user. Owned rows go through ON DELETE CASCADE; the
// user's reviews are first withdrawn from their providers' aggregates in
// the same transaction. Locks are taken account first, then listings in ID
// order, then the reviews themselves, the same order review writers use.
func (a *UserAdapter) Delete(ctx context.Context, id int64) error {
	return a.client.WithTx(ctx, func(tx *sqlx.Tx) error {
		// Held until commit: a new review needs a key share on this row for
		// its foreign key, so none can appear behind the withdrawal below.
		if err := lockUser(ctx, tx, id, true); err != nil {
			return err
		}

		query, args, err := dialect.From("reviews").Prepared(true).
			SelectDistinct("provider_id").
			Where(goqu.Ex{"customer_id": id}).
			Order(goqu.C("provider_id").Asc()).
			ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build query", err)
		}
		var providerIDs []int64
		if err := tx.SelectContext(ctx, &providerIDs, query, args...); err != nil {
			return translateError(err, "failed to load user reviews")
		}

		now := a.now()
		for _, providerID := range providerIDs {
			if err := withdrawReviews(ctx, tx, id, providerID, now); err != nil {
				return err
			}
		}

		query, args, err = dialect.Delete("users").Prepared(true).Where(goqu.Ex{"id": id}).ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build delete query", err)
		}
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return translateError(err, "failed to delete user")
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return apperrors.NewInternalError("failed to get rows affected", err)
		}
		return affectedOne(rows, fmt.Sprintf("user %d not found", id))
	})
}

// withdrawReviews takes a customer's reviews of one listing out of its
// aggregate. Ratings are read under the listing lock, so a review updated
// or deleted while this transaction waited is withdrawn at its final value.
func withdrawReviews(ctx context.Context, tx *sqlx.Tx, customerID, providerID int64, at time.Time) error {
	provider, err := lockProvider(ctx, tx, providerID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			// listing deleted meanwhile; its reviews went with it
			return nil
		}
		return err
	}

	query, args, err := dialect.From("reviews").Prepared(true).
		Select("rating").
		Where(goqu.Ex{"customer_id": customerID, "provider_id": providerID}).
		ForUpdate(exp.Wait).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build query", err)
	}
	var ratings []int
	if err := tx.SelectContext(ctx, &ratings, query, args...); err != nil {
		return translateError(err, "failed to lock user reviews")
	}
	if len(ratings) == 0 {
		return nil
	}

	for _, rating := range ratings {
		if err := provider.ApplyReviewDeleted(rating); err != nil {
			return err
		}
	}
	return saveAggregate(ctx, tx, provider, at)
}

// lockUser locks an account row. Deletion takes it exclusively; review
// writers take a key share so that they, like deletion, lock the account
// before any listing.
func lockUser(ctx context.Context, tx *sqlx.Tx, id int64, exclusive bool) error {
	ds := dialect.From("users").Prepared(true).Select("id").Where(goqu.Ex{"id": id})
	if exclusive {
		ds = ds.ForUpdate(exp.Wait)
	} else {
		ds = ds.ForKeyShare(exp.Wait)
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build query", err)
	}

	var locked int64
	if err := tx.GetContext(ctx, &locked, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFoundError(fmt.Sprintf("user %d not found", id))
		}
		return translateError(err, "failed to lock user")
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
