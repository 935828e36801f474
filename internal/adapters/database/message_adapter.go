package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/internal/domain/repositories"
	"github.com/rudzz/marketplace/internal/infrastructure/clients/postgres"
	apperrors "github.com/rudzz/marketplace/pkg/errors"
)

var messageColumns = []interface{}{
	"id", "sender_id", "receiver_id", "content", "is_read", "read_at", "created_at",
}

// MessageAdapter implements the MessageRepository interface
type MessageAdapter struct {
	client *postgres.Client
	now    func() time.Time
}

var _ repositories.MessageRepository = (*MessageAdapter)(nil)

// NewMessageAdapter creates a new message adapter
func NewMessageAdapter(client *postgres.Client) *MessageAdapter {
	return &MessageAdapter{client: client, now: utcNow}
}

// Create stores an unread message
func (a *MessageAdapter) Create(ctx context.Context, message *entities.Message) error {
	now := a.now()
	query, args, err := dialect.Insert("messages").Prepared(true).Rows(goqu.Record{
		"sender_id":   message.SenderID,
		"receiver_id": message.ReceiverID,
		"content":     message.Content,
		"is_read":     false,
		"created_at":  now,
	}).Returning("id").ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if err := a.client.DB().QueryRowxContext(ctx, query, args...).Scan(&message.ID); err != nil {
		return translateError(err, "failed to create message")
	}
	message.IsRead = false
	message.ReadAt = nil
	message.CreatedAt = now
	return nil
}

// GetByID retrieves a message by ID
func (a *MessageAdapter) GetByID(ctx context.Context, id int64) (*entities.Message, error) {
	query, args, err := dialect.From("messages").Prepared(true).
		Select(messageColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	message := &entities.Message{}
	if err := a.client.DB().GetContext(ctx, message, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("message %d not found", id))
		}
		return nil, translateError(err, "failed to get message")
	}
	return message, nil
}

// ListForUser returns every message the user sent or received, newest first
func (a *MessageAdapter) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]*entities.Message, error) {
	ds := dialect.From("messages").Prepared(true).
		Select(messageColumns...).
		Where(goqu.Or(
			goqu.C("sender_id").Eq(userID),
			goqu.C("receiver_id").Eq(userID),
		)).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc())
	query, args, err := pageOf(ds, limit, offset).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	messages := []*entities.Message{}
	if err := a.client.DB().SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, translateError(err, "failed to list messages")
	}
	return messages, nil
}

// ListThread marks the unread messages addressed to userID as read and
// returns the whole conversation in creation order, in one transaction
func (a *MessageAdapter) ListThread(ctx context.Context, userID, otherID int64, readAt time.Time) ([]*entities.Message, error) {
	messages := []*entities.Message{}
	err := a.client.WithTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := dialect.Update("messages").Prepared(true).
			Set(goqu.Record{"is_read": true, "read_at": readAt}).
			Where(goqu.Ex{
				"sender_id":   otherID,
				"receiver_id": userID,
				"is_read":     false,
			}).ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build update query", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return translateError(err, "failed to mark thread read")
		}

		query, args, err = dialect.From("messages").Prepared(true).
			Select(messageColumns...).
			Where(goqu.Or(
				goqu.Ex{"sender_id": userID, "receiver_id": otherID},
				goqu.Ex{"sender_id": otherID, "receiver_id": userID},
			)).
			Order(goqu.C("created_at").Asc(), goqu.C("id").Asc()).
			ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build query", err)
		}
		if err := tx.SelectContext(ctx, &messages, query, args...); err != nil {
			return translateError(err, "failed to load thread")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkRead marks a message read, keeping the first read_at
func (a *MessageAdapter) MarkRead(ctx context.Context, id int64, at time.Time) (*entities.Message, error) {
	query, args, err := dialect.Update("messages").Prepared(true).
		Set(goqu.Record{
			"is_read": true,
			"read_at": goqu.L("COALESCE(read_at, ?)", at),
		}).
		Where(goqu.Ex{"id": id}).
		Returning(messageColumns...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build update query", err)
	}

	message := &entities.Message{}
	if err := a.client.DB().GetContext(ctx, message, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("message %d not found", id))
		}
		return nil, translateError(err, "failed to mark message read")
	}
	return message, nil
}

// CountUnread returns the number of unread messages addressed to the user
func (a *MessageAdapter) CountUnread(ctx context.Context, userID int64) (int, error) {
	query, args, err := dialect.From("messages").Prepared(true).
		Select(goqu.COUNT("*")).
		Where(goqu.Ex{"receiver_id": userID, "is_read": false}).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var count int
	if err := a.client.DB().GetContext(ctx, &count, query, args...); err != nil {
		return 0, translateError(err, "failed to count unread messages")
	}
	return count, nil
}
