package database_test

import (
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/rudzz/marketplace/internal/infrastructure/clients/postgres"
)

var (
	userCols     = []string{"id", "email", "phone", "password_hash", "first_name", "last_name", "role", "is_active", "last_login", "created_at", "updated_at"}
	providerCols = []string{"id", "user_id", "business_name", "description", "address", "latitude", "longitude", "services", "rating", "review_count", "created_at", "updated_at"}
	reviewCols   = []string{"id", "customer_id", "provider_id", "rating", "content", "created_at", "updated_at"}
	messageCols  = []string{"id", "sender_id", "receiver_id", "content", "is_read", "read_at", "created_at"}
	commentCols  = []string{"id", "content", "author_id", "post_id", "parent_id", "created_at", "updated_at"}

	stamp = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newMockClient(t *testing.T) (*postgres.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return postgres.NewClientFromDB(db), mock
}

func providerRow(id, userID int64, rating float64, count int) []driver.Value {
	return []driver.Value{id, userID, "Fixit", "", "", 6.5, 3.4, []byte("{plumbing,tiling}"), rating, int64(count), stamp, stamp}
}

func reviewRow(id, customerID, providerID int64, rating int) []driver.Value {
	return []driver.Value{id, customerID, providerID, int64(rating), "", stamp, stamp}
}
