package entities

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Realtime event names
const (
	EventConnected  = "connected"
	EventJoined     = "joined"
	EventLeft       = "left"
	EventNewMessage = "new_message"
	EventHeartbeat  = "heartbeat"
	EventPong       = "pong"
	EventError      = "error"
)

// Event is a realtime notification addressed to a channel
type Event struct {
	ID        string          `json:"id"`
	Name      string          `json:"event"`
	Channel   string          `json:"channel"`
	Payload   json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent creates a new event with the payload serialised as JSON
func NewEvent(channel, name string, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        uuid.NewString(),
		Name:      name,
		Channel:   channel,
		Payload:   data,
		Timestamp: time.Now().UTC(),
	}, nil
}
