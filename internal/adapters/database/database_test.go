package database_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudzz/marketplace/internal/adapters/database"
	"github.com/rudzz/marketplace/internal/domain/entities"
	apperrors "github.com/rudzz/marketplace/pkg/errors"
	"github.com/rudzz/marketplace/pkg/geo"
)

func TestSchema_DeclaresCascades(t *testing.T) {
	schema := database.Schema()
	for _, table := range []string{"users", "providers", "reviews", "messages", "blog_posts", "comments"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
	assert.Contains(t, schema, "CONSTRAINT reviews_customer_provider_key UNIQUE (customer_id, provider_id)")
	assert.Contains(t, schema, "parent_id  BIGINT REFERENCES comments (id) ON DELETE CASCADE")
}

func TestUserAdapter_Create(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewUserAdapter(client)

	email := "ada@example.com"
	user := &entities.User{Email: &email, PasswordHash: "digest", Role: entities.RoleCustomer, IsActive: true}

	mock.ExpectQuery(`INSERT INTO "users" .* RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	require.NoError(t, adapter.Create(context.Background(), user))
	assert.Equal(t, int64(42), user.ID)
	assert.False(t, user.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserAdapter_CreateDuplicateEmail(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewUserAdapter(client)

	email := "ada@example.com"
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	err := adapter.Create(context.Background(), &entities.User{Email: &email, Role: entities.RoleCustomer})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	assert.EqualError(t, err, "CONFLICT: email already registered")
}

func TestUserAdapter_GetByEmail(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewUserAdapter(client)

	mock.ExpectQuery(`SELECT .* FROM "users" WHERE \("email" = \$1\)`).
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(1), "ada@example.com", nil, "digest", "Ada", "", "provider", true, nil, stamp, stamp))

	user, err := adapter.GetByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, user.Email)
	assert.Equal(t, "ada@example.com", *user.Email)
	assert.Nil(t, user.Phone)
	assert.Equal(t, entities.RoleProvider, user.Role)

	mock.ExpectQuery(`SELECT .* FROM "users"`).WillReturnRows(sqlmock.NewRows(userCols))
	_, err = adapter.GetByEmail(context.Background(), "bob@example.com")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func expectUserLock(mock sqlmock.Sqlmock, id int64) {
	mock.ExpectQuery(`SELECT "id" FROM "users" WHERE \("id" = \$1\) FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id))
}

func TestUserAdapter_DeleteWithdrawsReviews(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewUserAdapter(client)

	mock.ExpectBegin()
	expectUserLock(mock, 5)
	mock.ExpectQuery(`SELECT DISTINCT "provider_id" FROM "reviews" WHERE \("customer_id" = \$1\) ORDER BY "provider_id" ASC`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"provider_id"}).AddRow(int64(7)).AddRow(int64(9)))
	mock.ExpectQuery(`SELECT .* FROM "providers" WHERE \("id" = \$1\) FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(providerCols).AddRow(providerRow(7, 2, 3.0, 2)...))
	mock.ExpectQuery(`SELECT "rating" FROM "reviews" WHERE .*"customer_id" = \$1.*"provider_id" = \$2.* FOR UPDATE`).
		WithArgs(int64(5), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"rating"}).AddRow(int64(4)))
	mock.ExpectExec(`UPDATE "providers" SET`).
		WithArgs(2.0, int64(1), sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .* FROM "providers" WHERE \("id" = \$1\) FOR UPDATE`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(providerCols).AddRow(providerRow(9, 3, 5.0, 1)...))
	mock.ExpectQuery(`SELECT "rating" FROM "reviews" .* FOR UPDATE`).
		WithArgs(int64(5), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"rating"}).AddRow(int64(5)))
	mock.ExpectExec(`UPDATE "providers" SET`).
		WithArgs(0.0, int64(0), sqlmock.AnyArg(), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "users" WHERE \("id" = \$1\)`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, adapter.Delete(context.Background(), 5))
	require.NoError(t, mock.ExpectationsWereMet())
}

// A review re-rated from 4 to 5 while the delete waited for the listing
// lock is withdrawn at 5, the value read under that lock.
func TestUserAdapter_DeleteWithdrawsLockedRating(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewUserAdapter(client)

	mock.ExpectBegin()
	expectUserLock(mock, 5)
	mock.ExpectQuery(`SELECT DISTINCT "provider_id" FROM "reviews"`).
		WillReturnRows(sqlmock.NewRows([]string{"provider_id"}).AddRow(int64(7)))
	// aggregate already includes the update: ratings 5 and 2
	mock.ExpectQuery(`FROM "providers" .* FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(providerCols).AddRow(providerRow(7, 2, 3.5, 2)...))
	mock.ExpectQuery(`SELECT "rating" FROM "reviews" .* FOR UPDATE`).
		WithArgs(int64(5), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"rating"}).AddRow(int64(5)))
	mock.ExpectExec(`UPDATE "providers" SET`).
		WithArgs(2.0, int64(1), sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "users"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, adapter.Delete(context.Background(), 5))
	require.NoError(t, mock.ExpectationsWereMet())
}

// Reviews and listings that disappeared before their locks were granted
// leave nothing to withdraw.
func TestUserAdapter_DeleteSkipsVanishedRows(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewUserAdapter(client)

	mock.ExpectBegin()
	expectUserLock(mock, 5)
	mock.ExpectQuery(`SELECT DISTINCT "provider_id" FROM "reviews"`).
		WillReturnRows(sqlmock.NewRows([]string{"provider_id"}).AddRow(int64(7)).AddRow(int64(9)))
	mock.ExpectQuery(`FROM "providers" .* FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(providerCols))
	mock.ExpectQuery(`FROM "providers" .* FOR UPDATE`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(providerCols).AddRow(providerRow(9, 3, 5.0, 1)...))
	mock.ExpectQuery(`SELECT "rating" FROM "reviews" .* FOR UPDATE`).
		WithArgs(int64(5), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"rating"}))
	mock.ExpectExec(`DELETE FROM "users"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, adapter.Delete(context.Background(), 5))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserAdapter_DeleteUnknownRollsBack(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewUserAdapter(client)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM "users" .* FOR UPDATE`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := adapter.Delete(context.Background(), 404)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProviderAdapter_ListWithinBounds(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewProviderAdapter(client)

	bounds := geo.Bounds{MinLat: 6, MaxLat: 7, MinLng: 3, MaxLng: 4}
	mock.ExpectQuery(`"latitude" BETWEEN \$1 AND \$2.*"longitude" BETWEEN \$3 AND \$4.*ORDER BY "id" ASC`).
		WithArgs(6.0, 7.0, 3.0, 4.0).
		WillReturnRows(sqlmock.NewRows(providerCols).AddRow(providerRow(7, 2, 4.5, 2)...))

	listings, err := adapter.List(context.Background(), &bounds)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, []string{"plumbing", "tiling"}, listings[0].Services)
	assert.InDelta(t, 4.5, listings[0].Rating, 1e-9)
	assert.Equal(t, 2, listings[0].ReviewCount)
}

func TestProviderAdapter_GetByIDsEmpty(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewProviderAdapter(client)

	listings, err := adapter.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, listings)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProviderAdapter_CreateSecondListing(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewProviderAdapter(client)

	mock.ExpectQuery(`INSERT INTO "providers"`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "providers_user_id_key"})

	err := adapter.Create(context.Background(), &entities.Provider{UserID: 2, BusinessName: "Again"})
	assert.EqualError(t, err, "CONFLICT: provider profile already exists")
}

func TestProviderAdapter_DeleteMissing(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewProviderAdapter(client)

	mock.ExpectExec(`DELETE FROM "providers"`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := adapter.Delete(context.Background(), 99)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}
