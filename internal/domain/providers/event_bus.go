package providers

import (
	"context"
	"strconv"
	"strings"

	"github.com/rudzz/marketplace/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to events
type EventBus interface {
	// Publish publishes an event to all subscribers of its channel
	Publish(ctx context.Context, event *entities.Event) error

	// Subscribe subscribes to events on a channel. The returned channel is
	// closed when ctx is done or the subscription is dropped.
	Subscribe(ctx context.Context, channel string) (<-chan *entities.Event, error)

	// Unsubscribe drops every subscription on a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelUserPrefix is the prefix for per-user rooms
const EventChannelUserPrefix = "user:"

// UserChannel returns the room a user receives direct messages on
func UserChannel(userID int64) string {
	return EventChannelUserPrefix + strconv.FormatInt(userID, 10)
}

// UserIDFromChannel parses a per-user room name
func UserIDFromChannel(channel string) (int64, bool) {
	if !strings.HasPrefix(channel, EventChannelUserPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(channel, EventChannelUserPrefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
