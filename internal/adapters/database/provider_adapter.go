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
	"github.com/lib/pq"

	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/internal/domain/repositories"
	"github.com/rudzz/marketplace/internal/infrastructure/clients/postgres"
	apperrors "github.com/rudzz/marketplace/pkg/errors"
	"github.com/rudzz/marketplace/pkg/geo"
)

var providerColumns = []interface{}{
	"id", "user_id", "business_name", "description", "address",
	"latitude", "longitude", "services", "rating", "review_count",
	"created_at", "updated_at",
}

// providerRow scans the services text[] column
type providerRow struct {
	ID           int64          `db:"id"`
	UserID       int64          `db:"user_id"`
	BusinessName string         `db:"business_name"`
	Description  string         `db:"description"`
	Address      string         `db:"address"`
	Latitude     float64        `db:"latitude"`
	Longitude    float64        `db:"longitude"`
	Services     pq.StringArray `db:"services"`
	Rating       float64        `db:"rating"`
	ReviewCount  int            `db:"review_count"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r *providerRow) toEntity() *entities.Provider {
	services := []string(r.Services)
	if services == nil {
		services = []string{}
	}
	return &entities.Provider{
		ID:           r.ID,
		UserID:       r.UserID,
		BusinessName: r.BusinessName,
		Description:  r.Description,
		Address:      r.Address,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		Services:     services,
		Rating:       r.Rating,
		ReviewCount:  r.ReviewCount,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// ProviderAdapter implements the ProviderRepository interface
type ProviderAdapter struct {
	client *postgres.Client
	now    func() time.Time
}

var _ repositories.ProviderRepository = (*ProviderAdapter)(nil)

// NewProviderAdapter creates a new provider adapter
func NewProviderAdapter(client *postgres.Client) *ProviderAdapter {
	return &ProviderAdapter{client: client, now: utcNow}
}

// Create stores a listing with an empty rating aggregate
func (a *ProviderAdapter) Create(ctx context.Context, provider *entities.Provider) error {
	if provider.Services == nil {
		provider.Services = []string{}
	}
	now := a.now()
	query, args, err := dialect.Insert("providers").Prepared(true).Rows(goqu.Record{
		"user_id":       provider.UserID,
		"business_name": provider.BusinessName,
		"description":   provider.Description,
		"address":       provider.Address,
		"latitude":      provider.Latitude,
		"longitude":     provider.Longitude,
		"services":      pq.StringArray(provider.Services),
		"rating":        0,
		"review_count":  0,
		"created_at":    now,
		"updated_at":    now,
	}).Returning("id").ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if err := a.client.DB().QueryRowxContext(ctx, query, args...).Scan(&provider.ID); err != nil {
		return translateError(err, "failed to create provider")
	}
	provider.Rating = 0
	provider.ReviewCount = 0
	provider.CreatedAt = now
	provider.UpdatedAt = now
	return nil
}

// GetByID retrieves a listing by ID
func (a *ProviderAdapter) GetByID(ctx context.Context, id int64) (*entities.Provider, error) {
	return getProvider(ctx, a.client.DB(), goqu.Ex{"id": id}, false)
}

// GetByUserID retrieves the listing owned by a user
func (a *ProviderAdapter) GetByUserID(ctx context.Context, userID int64) (*entities.Provider, error) {
	return getProvider(ctx, a.client.DB(), goqu.Ex{"user_id": userID}, false)
}

// GetByIDs retrieves the listings that exist among ids
func (a *ProviderAdapter) GetByIDs(ctx context.Context, ids []int64) ([]*entities.Provider, error) {
	if len(ids) == 0 {
		return []*entities.Provider{}, nil
	}
	ds := dialect.From("providers").Prepared(true).
		Select(providerColumns...).
		Where(goqu.C("id").In(ids))
	return a.selectProviders(ctx, ds)
}

// List returns listings ordered by ID, optionally restricted to a rectangle
func (a *ProviderAdapter) List(ctx context.Context, bounds *geo.Bounds) ([]*entities.Provider, error) {
	ds := dialect.From("providers").Prepared(true).Select(providerColumns...)
	if bounds != nil {
		ds = ds.Where(
			goqu.C("latitude").Between(goqu.Range(bounds.MinLat, bounds.MaxLat)),
			goqu.C("longitude").Between(goqu.Range(bounds.MinLng, bounds.MaxLng)),
		)
	}
	return a.selectProviders(ctx, ds.Order(goqu.C("id").Asc()))
}

func (a *ProviderAdapter) selectProviders(ctx context.Context, ds *goqu.SelectDataset) ([]*entities.Provider, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var rows []providerRow
	if err := a.client.DB().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, translateError(err, "failed to list providers")
	}
	providers := make([]*entities.Provider, 0, len(rows))
	for i := range rows {
		providers = append(providers, rows[i].toEntity())
	}
	return providers, nil
}

// Update updates the owner-editable fields of a listing
func (a *ProviderAdapter) Update(ctx context.Context, provider *entities.Provider) error {
	provider.UpdatedAt = a.now()
	query, args, err := dialect.Update("providers").Prepared(true).Set(goqu.Record{
		"business_name": provider.BusinessName,
		"description":   provider.Description,
		"address":       provider.Address,
		"latitude":      provider.Latitude,
		"longitude":     provider.Longitude,
		"services":      pq.StringArray(provider.Services),
		"updated_at":    provider.UpdatedAt,
	}).Where(goqu.Ex{"id": provider.ID}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return translateError(err, "failed to update provider")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	return affectedOne(rows, fmt.Sprintf("provider %d not found", provider.ID))
}

// Delete removes a listing; its reviews go with it through ON DELETE CASCADE
func (a *ProviderAdapter) Delete(ctx context.Context, id int64) error {
	query, args, err := dialect.Delete("providers").Prepared(true).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return translateError(err, "failed to delete provider")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	return affectedOne(rows, fmt.Sprintf("provider %d not found", id))
}

func getProvider(ctx context.Context, q sqlx.QueryerContext, where goqu.Ex, forUpdate bool) (*entities.Provider, error) {
	ds := dialect.From("providers").Prepared(true).Select(providerColumns...).Where(where)
	if forUpdate {
		ds = ds.ForUpdate(exp.Wait)
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var row providerRow
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("provider not found")
		}
		return nil, translateError(err, "failed to get provider")
	}
	return row.toEntity(), nil
}

// lockProvider reads a listing with a row lock held until the transaction ends
func lockProvider(ctx context.Context, tx *sqlx.Tx, id int64) (*entities.Provider, error) {
	return getProvider(ctx, tx, goqu.Ex{"id": id}, true)
}

// saveAggregate writes a listing's rating and review count
func saveAggregate(ctx context.Context, tx *sqlx.Tx, provider *entities.Provider, at time.Time) error {
	query, args, err := dialect.Update("providers").Prepared(true).Set(goqu.Record{
		"rating":       provider.Rating,
		"review_count": provider.ReviewCount,
		"updated_at":   at,
	}).Where(goqu.Ex{"id": provider.ID}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return translateError(err, "failed to update provider rating")
	}
	provider.UpdatedAt = at
	return nil
}
