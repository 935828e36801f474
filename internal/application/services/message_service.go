package services

import (
	"context"
	"strings"
	"time"

	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/internal/domain/policy"
	"github.com/rudzz/marketplace/internal/domain/providers"
	"github.com/rudzz/marketplace/internal/domain/repositories"
	"github.com/rudzz/marketplace/internal/infrastructure/observability"
	apperrors "github.com/rudzz/marketplace/pkg/errors"
)

const publishTimeout = 2 * time.Second

// MessageService handles direct messages and their realtime notification
type MessageService struct {
	messages repositories.MessageRepository
	users    repositories.UserRepository
	eventBus providers.EventBus
	metrics  *observability.DomainMetrics
	now      func() time.Time
}

// NewMessageService creates a new message service
func NewMessageService(messages repositories.MessageRepository, users repositories.UserRepository) *MessageService {
	return &MessageService{
		messages: messages,
		users:    users,
		now:      time.Now,
	}
}

// SetEventBus sets the event bus used to push new messages to receivers
func (s *MessageService) SetEventBus(eventBus providers.EventBus) {
	s.eventBus = eventBus
}

// SetMetrics sets the domain counters
func (s *MessageService) SetMetrics(metrics *observability.DomainMetrics) {
	s.metrics = metrics
}

// Send stores a message and then notifies the receiver's room. The
// notification is best effort; a failed push is logged and the stored
// message is still returned.
func (s *MessageService) Send(ctx context.Context, actor policy.Actor, receiverID int64, content string) (*entities.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("content is required")
	}
	if receiverID == actor.UserID {
		return nil, apperrors.NewValidationError("cannot send a message to yourself")
	}
	if _, err := s.users.GetByID(ctx, receiverID); err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewNotFoundError("receiver not found")
		}
		return nil, err
	}

	message := &entities.Message{
		SenderID:   actor.UserID,
		ReceiverID: receiverID,
		Content:    content,
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, err
	}
	s.metrics.MessageSent(ctx)

	s.notify(ctx, message)
	return message, nil
}

// Get returns a message to either participant
func (s *MessageService) Get(ctx context.Context, actor policy.Actor, id int64) (*entities.Message, error) {
	message, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanReadMessage(actor, message) {
		return nil, apperrors.NewForbiddenError("you are not a participant in this message")
	}
	return message, nil
}

// Inbox returns every message the acting identity sent or received, newest first
func (s *MessageService) Inbox(ctx context.Context, actor policy.Actor, limit, offset int) ([]*entities.Message, error) {
	return s.messages.ListForUser(ctx, actor.UserID, limit, offset)
}

// Thread returns the conversation with another user in creation order and
// marks the messages addressed to the acting identity as read
func (s *MessageService) Thread(ctx context.Context, actor policy.Actor, otherID int64) ([]*entities.Message, error) {
	if _, err := s.users.GetByID(ctx, otherID); err != nil {
		return nil, err
	}
	return s.messages.ListThread(ctx, actor.UserID, otherID, s.now().UTC())
}

// MarkRead marks a message read on behalf of its receiver
func (s *MessageService) MarkRead(ctx context.Context, actor policy.Actor, id int64) (*entities.Message, error) {
	message, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanMarkRead(actor, message) {
		return nil, apperrors.NewForbiddenError("only the receiver can mark a message read")
	}
	return s.messages.MarkRead(ctx, id, s.now().UTC())
}

// UnreadCount returns how many messages await the acting identity
func (s *MessageService) UnreadCount(ctx context.Context, actor policy.Actor) (int, error) {
	return s.messages.CountUnread(ctx, actor.UserID)
}

func (s *MessageService) notify(ctx context.Context, message *entities.Message) {
	if s.eventBus == nil {
		return
	}
	logger := observability.LoggerFromContext(ctx)

	event, err := entities.NewEvent(providers.UserChannel(message.ReceiverID), entities.EventNewMessage, message)
	if err != nil {
		s.metrics.PublishFailed(ctx)
		logger.Error().Err(err).Int64("message_id", message.ID).Msg("failed to encode message event")
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.eventBus.Publish(pubCtx, event); err != nil {
		s.metrics.PublishFailed(ctx)
		logger.Warn().Err(err).
			Int64("message_id", message.ID).
			Str("channel", event.Channel).
			Msg("failed to publish message event")
	}
}
