package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/internal/domain/providers"
)

// LocalEventBus is an in-process EventBus for single-instance deployments
// and tests. Events never leave the process.
type LocalEventBus struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.Event]struct{}
	closed      bool
}

var _ providers.EventBus = (*LocalEventBus)(nil)

// NewLocalEventBus creates an empty in-process bus
func NewLocalEventBus() *LocalEventBus {
	return &LocalEventBus{
		subscribers: make(map[string]map[chan *entities.Event]struct{}),
	}
}

// Publish delivers the event to current subscribers without blocking
func (b *LocalEventBus) Publish(ctx context.Context, event *entities.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for subscriber := range b.subscribers[event.Channel] {
		select {
		case subscriber <- event:
		default:
			log.Ctx(ctx).Warn().Str("channel", event.Channel).Str("event_id", event.ID).Msg("subscriber queue full, dropping event")
		}
	}
	return nil
}

// Subscribe registers a subscriber that lives until ctx is done
func (b *LocalEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.Event, error) {
	eventChan := make(chan *entities.Event, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(eventChan)
		return eventChan, nil
	}
	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan *entities.Event]struct{})
	}
	b.subscribers[channel][eventChan] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(channel, eventChan)
	}()

	return eventChan, nil
}

func (b *LocalEventBus) remove(channel string, eventChan chan *entities.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers := b.subscribers[channel]
	if _, ok := subscribers[eventChan]; !ok {
		return
	}
	delete(subscribers, eventChan)
	close(eventChan)
	if len(subscribers) == 0 {
		delete(b.subscribers, channel)
	}
}

// Unsubscribe drops every subscriber of a channel
func (b *LocalEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subscriber := range b.subscribers[channel] {
		close(subscriber)
	}
	delete(b.subscribers, channel)
	return nil
}

// Close drops every subscriber; later subscriptions receive a closed channel
func (b *LocalEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for channel, subscribers := range b.subscribers {
		for subscriber := range subscribers {
			close(subscriber)
		}
		delete(b.subscribers, channel)
	}
	b.closed = true
	return nil
}
