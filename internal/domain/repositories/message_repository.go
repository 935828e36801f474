package repositories

import (
	"context"
	"time"

	"github.com/rudzz/marketplace/internal/domain/entities"
)

// MessageRepository defines the interface for direct message operations
type MessageRepository interface {
	// Create stores a message and assigns its ID
	Create(ctx context.Context, message *entities.Message) error

	// GetByID retrieves a message by ID
	GetByID(ctx context.Context, id int64) (*entities.Message, error)

	// ListForUser returns every message the user sent or received, newest first
	ListForUser(ctx context.Context, userID int64, limit, offset int) ([]*entities.Message, error)

	// ListThread returns the messages exchanged between userID and otherID
	// in creation order. Unread messages addressed to userID are marked
	// read at readAt in the same unit as the read.
	ListThread(ctx context.Context, userID, otherID int64, readAt time.Time) ([]*entities.Message, error)

	// MarkRead marks a message read. A message that is already read keeps its read_at.
	MarkRead(ctx context.Context, id int64, at time.Time) (*entities.Message, error)

	// CountUnread returns the number of unread messages addressed to the user
	CountUnread(ctx context.Context, userID int64) (int, error)
}
