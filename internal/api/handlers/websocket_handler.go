package handlers

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/internal/domain/policy"
	"github.com/rudzz/marketplace/internal/domain/providers"
	"github.com/rudzz/marketplace/internal/infrastructure/observability"
)

const (
	wsWriteWait      = 10 * time.Second
	wsMaxMessageSize = 4096
	wsSendBuffer     = 64
)

// WebSocketHandler serves realtime rooms over WebSocket. A client may only
// join its own user room.
type WebSocketHandler struct {
	eventBus    providers.EventBus
	upgrader    websocket.Upgrader
	heartbeat   time.Duration
	connections atomic.Int64
}

// NewWebSocketHandler creates a WebSocket handler that accepts the given
// browser origins; "*" accepts any origin.
func NewWebSocketHandler(eventBus providers.EventBus, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		eventBus:  eventBus,
		heartbeat: defaultHeartbeat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// SetHeartbeat overrides the keep-alive interval
func (h *WebSocketHandler) SetHeartbeat(interval time.Duration) {
	h.heartbeat = interval
}

type wsCommand struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

type wsSession struct {
	actor    policy.Actor
	ctx      context.Context
	eventBus providers.EventBus
	send     chan *entities.Event
	logger   *zerolog.Logger

	mu    sync.Mutex
	rooms map[string]context.CancelFunc
}

// Serve handles GET /api/ws
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		return
	}
	defer conn.Close()

	h.connections.Add(1)
	defer h.connections.Add(-1)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session := &wsSession{
		actor:    actor,
		ctx:      ctx,
		eventBus: h.eventBus,
		send:     make(chan *entities.Event, wsSendBuffer),
		logger:   observability.LoggerFromContext(r.Context()),
		rooms:    make(map[string]context.CancelFunc),
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer conn.Close()
		defer cancel()
		h.writePump(ctx, conn, session.send)
	}()

	session.emit(entities.EventConnected, map[string]interface{}{
		"user_id":   actor.UserID,
		"timestamp": time.Now().UTC(),
	})
	session.join(providers.UserChannel(actor.UserID))

	conn.SetReadLimit(wsMaxMessageSize)
	for {
		var cmd wsCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				session.logger.Debug().Err(err).Int64("user_id", actor.UserID).Msg("websocket closed")
			}
			break
		}
		session.handle(cmd)
	}

	cancel()
	<-done
}

// ConnectionCount returns the number of open sockets
func (h *WebSocketHandler) ConnectionCount() int64 {
	return h.connections.Load()
}

func (h *WebSocketHandler) writePump(ctx context.Context, conn *websocket.Conn, send <-chan *entities.Event) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	write := func(event *entities.Event) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(event) == nil
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			event, err := entities.NewEvent("", entities.EventHeartbeat, map[string]interface{}{
				"timestamp": time.Now().UTC(),
			})
			if err != nil || !write(event) {
				return
			}
		case event := <-send:
			if !write(event) {
				return
			}
		}
	}
}

func (s *wsSession) handle(cmd wsCommand) {
	own := providers.UserChannel(s.actor.UserID)
	room := strings.TrimSpace(cmd.Room)
	if room == "" {
		room = own
	}

	switch strings.ToLower(cmd.Type) {
	case "join":
		if room != own {
			s.emit(entities.EventError, map[string]string{"error": "you can only join your own room"})
			return
		}
		s.join(room)
	case "leave":
		s.leave(room)
	case "ping":
		s.emit(entities.EventPong, map[string]interface{}{"timestamp": time.Now().UTC()})
	default:
		s.emit(entities.EventError, map[string]string{"error": "unknown command"})
	}
}

func (s *wsSession) join(room string) {
	s.mu.Lock()
	if _, joined := s.rooms[room]; joined {
		s.mu.Unlock()
		s.emit(entities.EventJoined, map[string]string{"room": room})
		return
	}
	subCtx, subCancel := context.WithCancel(s.ctx)
	events, err := s.eventBus.Subscribe(subCtx, room)
	if err != nil {
		s.mu.Unlock()
		subCancel()
		s.logger.Error().Err(err).Str("channel", room).Msg("failed to subscribe to channel")
		s.emit(entities.EventError, map[string]string{"error": "realtime delivery unavailable"})
		return
	}
	s.rooms[room] = subCancel
	s.mu.Unlock()

	go s.forward(subCtx, events)
	s.emit(entities.EventJoined, map[string]string{"room": room})
}

func (s *wsSession) leave(room string) {
	s.mu.Lock()
	cancel, joined := s.rooms[room]
	delete(s.rooms, room)
	s.mu.Unlock()

	if joined {
		cancel()
	}
	s.emit(entities.EventLeft, map[string]string{"room": room})
}

func (s *wsSession) forward(ctx context.Context, events <-chan *entities.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.enqueue(event)
		}
	}
}

func (s *wsSession) emit(name string, payload interface{}) {
	event, err := entities.NewEvent(providers.UserChannel(s.actor.UserID), name, payload)
	if err != nil {
		return
	}
	s.enqueue(event)
}

// enqueue hands an event to the writer without blocking; a slow client loses events
func (s *wsSession) enqueue(event *entities.Event) {
	select {
	case s.send <- event:
	case <-s.ctx.Done():
	default:
		s.logger.Warn().Int64("user_id", s.actor.UserID).Str("event", event.Name).Msg("websocket send buffer full, dropping event")
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}
