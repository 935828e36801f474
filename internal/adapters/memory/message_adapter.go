package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/internal/domain/repositories"
	apperrors "github.com/rudzz/marketplace/pkg/errors"
)

// MessageAdapter implements repositories.MessageRepository
type MessageAdapter struct {
	s *Store
}

var _ repositories.MessageRepository = (*MessageAdapter)(nil)

func (a *MessageAdapter) Create(ctx context.Context, message *entities.Message) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	for _, uid := range []int64{message.SenderID, message.ReceiverID} {
		if _, ok := a.s.users[uid]; !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("user %d not found", uid))
		}
	}
	message.ID = a.s.id("messages")
	message.CreatedAt = a.s.timestamp()
	a.s.messages[message.ID] = copyMessage(message)
	return nil
}

func (a *MessageAdapter) GetByID(ctx context.Context, id int64) (*entities.Message, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	m, ok := a.s.messages[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("message %d not found", id))
	}
	return copyMessage(m), nil
}

func (a *MessageAdapter) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]*entities.Message, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	out := []*entities.Message{}
	for _, m := range a.s.messages {
		if m.IsParticipant(userID) {
			out = append(out, copyMessage(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return newerMessage(out[i], out[j]) })
	return paginate(out, limit, offset), nil
}

func (a *MessageAdapter) ListThread(ctx context.Context, userID, otherID int64, readAt time.Time) ([]*entities.Message, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	out := []*entities.Message{}
	for _, m := range a.s.messages {
		inThread := (m.SenderID == userID && m.ReceiverID == otherID) ||
			(m.SenderID == otherID && m.ReceiverID == userID)
		if !inThread {
			continue
		}
		if m.ReceiverID == userID {
			m.MarkRead(readAt)
		}
		out = append(out, copyMessage(m))
	}
	sort.Slice(out, func(i, j int) bool { return newerMessage(out[j], out[i]) })
	return out, nil
}

func (a *MessageAdapter) MarkRead(ctx context.Context, id int64, at time.Time) (*entities.Message, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	m, ok := a.s.messages[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("message %d not found", id))
	}
	m.MarkRead(at)
	return copyMessage(m), nil
}

func (a *MessageAdapter) CountUnread(ctx context.Context, userID int64) (int, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	count := 0
	for _, m := range a.s.messages {
		if m.ReceiverID == userID && !m.IsRead {
			count++
		}
	}
	return count, nil
}

func newerMessage(a, b *entities.Message) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}
