package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/internal/domain/providers"
	apperrors "github.com/rudzz/marketplace/pkg/errors"
)

func TestMessageService_SendPublishesToReceiverRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com", entities.RoleCustomer)
	bob := f.register(t, "bob@example.com", entities.RoleCustomer)

	bus := new(MockEventBus)
	var published *entities.Event
	bus.On("Publish", mock.Anything, mock.MatchedBy(func(e *entities.Event) bool {
		return e.Channel == providers.UserChannel(bob.UserID) && e.Name == entities.EventNewMessage
	})).Run(func(args mock.Arguments) {
		published = args.Get(1).(*entities.Event)
	}).Return(nil).Once()
	f.messages.SetEventBus(bus)

	message, err := f.messages.Send(ctx, alice, bob.UserID, "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", message.Content)
	assert.False(t, message.IsRead)
	bus.AssertExpectations(t)

	require.NotNil(t, published)
	var payload entities.Message
	require.NoError(t, json.Unmarshal(published.Payload, &payload))
	assert.Equal(t, message.ID, payload.ID)
	assert.Equal(t, alice.UserID, payload.SenderID)
}

func TestMessageService_PublishFailureKeepsMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com", entities.RoleCustomer)
	bob := f.register(t, "bob@example.com", entities.RoleCustomer)

	bus := new(MockEventBus)
	bus.On("Publish", mock.Anything, mock.Anything).Return(errors.New("redis unavailable"))
	f.messages.SetEventBus(bus)

	message, err := f.messages.Send(ctx, alice, bob.UserID, "hello")
	require.NoError(t, err)

	stored, err := f.messages.Get(ctx, bob, message.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", stored.Content)
}

func TestMessageService_SendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com", entities.RoleCustomer)
	bob := f.register(t, "bob@example.com", entities.RoleCustomer)

	_, err := f.messages.Send(ctx, alice, alice.UserID, "note to self")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = f.messages.Send(ctx, alice, bob.UserID, "   ")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = f.messages.Send(ctx, alice, 9999, "hello?")
	assert.EqualError(t, err, "NOT_FOUND: receiver not found")
}

func TestMessageService_ThreadMarksIncomingRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com", entities.RoleCustomer)
	bob := f.register(t, "bob@example.com", entities.RoleCustomer)
	carol := f.register(t, "carol@example.com", entities.RoleCustomer)

	first, err := f.messages.Send(ctx, alice, bob.UserID, "first")
	require.NoError(t, err)
	second, err := f.messages.Send(ctx, bob, alice.UserID, "second")
	require.NoError(t, err)
	third, err := f.messages.Send(ctx, alice, bob.UserID, "third")
	require.NoError(t, err)
	_, err = f.messages.Send(ctx, carol, bob.UserID, "unrelated")
	require.NoError(t, err)

	unread, err := f.messages.UnreadCount(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 3, unread)

	thread, err := f.messages.Thread(ctx, bob, alice.UserID)
	require.NoError(t, err)
	require.Len(t, thread, 3)
	assert.Equal(t, []int64{first.ID, second.ID, third.ID}, []int64{thread[0].ID, thread[1].ID, thread[2].ID})
	assert.True(t, thread[0].IsRead)
	assert.False(t, thread[1].IsRead, "messages bob sent stay unread")
	assert.True(t, thread[2].IsRead)

	unread, err = f.messages.UnreadCount(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
}

func TestMessageService_MarkReadReceiverOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com", entities.RoleCustomer)
	bob := f.register(t, "bob@example.com", entities.RoleCustomer)
	carol := f.register(t, "carol@example.com", entities.RoleCustomer)

	message, err := f.messages.Send(ctx, alice, bob.UserID, "hi")
	require.NoError(t, err)

	_, err = f.messages.MarkRead(ctx, alice, message.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))

	_, err = f.messages.Get(ctx, carol, message.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))

	read, err := f.messages.MarkRead(ctx, bob, message.ID)
	require.NoError(t, err)
	require.NotNil(t, read.ReadAt)
	firstReadAt := *read.ReadAt

	again, err := f.messages.MarkRead(ctx, bob, message.ID)
	require.NoError(t, err)
	assert.Equal(t, firstReadAt, *again.ReadAt)
}

func TestMessageService_InboxNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com", entities.RoleCustomer)
	bob := f.register(t, "bob@example.com", entities.RoleCustomer)

	older, err := f.messages.Send(ctx, alice, bob.UserID, "older")
	require.NoError(t, err)
	newer, err := f.messages.Send(ctx, bob, alice.UserID, "newer")
	require.NoError(t, err)

	inbox, err := f.messages.Inbox(ctx, alice, 10, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, newer.ID, inbox[0].ID)
	assert.Equal(t, older.ID, inbox[1].ID)

	page, err := f.messages.Inbox(ctx, alice, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, older.ID, page[0].ID)
}
