package database

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	apperrors "github.com/rudzz/marketplace/pkg/errors"
)

//go:embed schema.sql
var schemaSQL string

// Postgres error codes
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

var dialect = goqu.Dialect("postgres")

// conflictMessages maps unique constraints to client-facing messages
var conflictMessages = map[string]string{
	"users_email_key":               "email already registered",
	"users_phone_key":               "phone already registered",
	"providers_user_id_key":         "provider profile already exists",
	"reviews_customer_provider_key": "you have already reviewed this provider",
	"blog_posts_slug_key":           "slug already in use",
}

// Schema returns the DDL for every marketplace table
func Schema() string {
	return schemaSQL
}

// ApplySchema creates any missing tables and indexes
func ApplySchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return apperrors.NewInternalError("failed to apply schema", err)
	}
	return nil
}

// translateError maps driver errors onto the application error taxonomy
func translateError(err error, message string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pgUniqueViolation:
			if msg, ok := conflictMessages[pqErr.Constraint]; ok {
				return apperrors.NewConflictError(msg)
			}
			return apperrors.NewConflictError("record already exists")
		case pgForeignKeyViolation:
			return apperrors.NewNotFoundError("referenced record not found")
		case pgCheckViolation:
			return apperrors.NewValidationError("value violates constraint " + pqErr.Constraint)
		}
	}
	return apperrors.NewInternalError(message, err)
}

// affectedOne returns a not found error when the statement touched no rows
func affectedOne(n int64, notFound string) error {
	if n == 0 {
		return apperrors.NewNotFoundError(notFound)
	}
	return nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func pageOf(ds *goqu.SelectDataset, limit, offset int) *goqu.SelectDataset {
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	if offset > 0 {
		ds = ds.Offset(uint(offset))
	}
	return ds
}
