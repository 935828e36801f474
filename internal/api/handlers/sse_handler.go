package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/internal/domain/providers"
	"github.com/rudzz/marketplace/internal/infrastructure/observability"
)

const defaultHeartbeat = 30 * time.Second

// SSEHandler streams a user's realtime events over Server-Sent Events
type SSEHandler struct {
	eventBus    providers.EventBus
	heartbeat   time.Duration
	connections atomic.Int64
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(eventBus providers.EventBus) *SSEHandler {
	return &SSEHandler{
		eventBus:  eventBus,
		heartbeat: defaultHeartbeat,
	}
}

// SetHeartbeat overrides the keep-alive interval
func (h *SSEHandler) SetHeartbeat(interval time.Duration) {
	h.heartbeat = interval
}

// StreamMessages handles GET /api/stream/messages. The caller is joined to
// its own room and receives new_message events until it disconnects.
func (h *SSEHandler) StreamMessages(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	logger := observability.LoggerFromContext(r.Context())
	room := providers.UserChannel(actor.UserID)

	eventChan, err := h.eventBus.Subscribe(r.Context(), room)
	if err != nil {
		logger.Error().Err(err).Str("channel", room).Msg("failed to subscribe to channel")
		respondWithError(w, http.StatusServiceUnavailable, "realtime delivery unavailable")
		return
	}

	h.connections.Add(1)
	defer h.connections.Add(-1)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	h.sendEvent(w, entities.EventConnected, map[string]interface{}{
		"user_id":   actor.UserID,
		"timestamp": time.Now().UTC(),
	})
	h.sendEvent(w, entities.EventJoined, map[string]string{"room": room})
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Debug().Int64("user_id", actor.UserID).Msg("client disconnected from message stream")
			return
		case <-ticker.C:
			h.sendEvent(w, entities.EventHeartbeat, map[string]interface{}{
				"timestamp": time.Now().UTC(),
			})
			flusher.Flush()
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			h.sendRaw(w, event.Name, event.Payload)
			flusher.Flush()
		}
	}
}

// ConnectionCount returns the number of open streams
func (h *SSEHandler) ConnectionCount() int64 {
	return h.connections.Load()
}

// sendEvent writes one SSE frame with a JSON body
func (h *SSEHandler) sendEvent(w http.ResponseWriter, name string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	h.sendRaw(w, name, jsonData)
}

func (h *SSEHandler) sendRaw(w http.ResponseWriter, name string, data []byte) {
	fmt.Fprintf(w, "event: %s\n", name)
	fmt.Fprintf(w, "data: %s\n\n", data)
}
