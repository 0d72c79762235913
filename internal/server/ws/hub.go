// Package ws bridges the Redis trade-event channels to dashboard WebSocket
// clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must stay below pongWait
	maxMessageSize = 4096
	sendBufferSize = 256
)

// tradeChannels are the Redis pub/sub channels the hub mirrors to clients.
var tradeChannels = []string{
	domain.EventEntryCreated,
	domain.EventTakeProfit,
	domain.EventStopLoss,
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Auth and CORS run in front of the upgrade; origin policy lives there.
		return true
	},
}

// Config captures runtime metadata included in the status envelope sent to
// each client on connect.
type Config struct {
	Mode      string
	StartedAt time.Time
}

// Hub fans trade events from the Redis signal bus out to connected
// WebSocket sessions. Every payload is JSON and goes out as a text frame.
type Hub struct {
	bus       domain.EventSubscriber
	logger    *slog.Logger
	mode      string
	startedAt time.Time

	register   chan *session
	unregister chan *session
	events     chan busEvent

	mu       sync.RWMutex
	sessions map[*session]struct{}
}

// busEvent pairs a payload with its source channel so the hub can route it
// only to sessions subscribed to that channel.
type busEvent struct {
	channel string
	payload []byte
}

// NewHub creates a Hub reading from the given signal bus.
func NewHub(bus domain.EventSubscriber, logger *slog.Logger, cfg Config) *Hub {
	mode := strings.TrimSpace(strings.ToLower(cfg.Mode))
	if mode == "" {
		mode = "unknown"
	}
	startedAt := cfg.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	return &Hub{
		bus:        bus,
		logger:     logger.With(slog.String("component", "ws_hub")),
		mode:       mode,
		startedAt:  startedAt,
		register:   make(chan *session),
		unregister: make(chan *session),
		events:     make(chan busEvent, 256),
		sessions:   make(map[*session]struct{}),
	}
}

// Run pumps bus events to sessions until ctx ends. Call in a goroutine.
func (h *Hub) Run(ctx context.Context) error {
	for _, ch := range tradeChannels {
		go h.pumpChannel(ctx, ch)
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()

		case s := <-h.register:
			h.mu.Lock()
			h.sessions[s] = struct{}{}
			n := len(h.sessions)
			h.mu.Unlock()
			h.logger.Info("ws client connected", slog.Int("total_clients", n))

		case s := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.sessions[s]; ok {
				delete(h.sessions, s)
				close(s.send)
			}
			n := len(h.sessions)
			h.mu.Unlock()
			h.logger.Info("ws client disconnected", slog.Int("total_clients", n))

		case ev := <-h.events:
			h.deliver(ev)
		}
	}
}

// pumpChannel forwards one Redis channel into the hub's event stream.
func (h *Hub) pumpChannel(ctx context.Context, channel string) {
	msgs, err := h.bus.Subscribe(ctx, channel)
	if err != nil {
		h.logger.Error("channel subscribe failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}
	h.logger.Info("subscribed to channel", slog.String("channel", channel))

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-msgs:
			if !ok {
				h.logger.Warn("channel subscription closed", slog.String("channel", channel))
				return
			}
			h.events <- busEvent{channel: channel, payload: payload}
		}
	}
}

// deliver routes one event to every session subscribed to its channel. Slow
// sessions drop the message rather than stalling the hub.
func (h *Hub) deliver(ev busEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.sessions {
		if !s.wants(ev.channel) {
			continue
		}
		select {
		case s.send <- ev.payload:
		default:
			h.logger.Warn("dropping message for slow ws client")
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.sessions {
		close(s.send)
		delete(h.sessions, s)
	}
}

// HandleWS upgrades the request and starts the session pumps.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}

	s := &session{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[string]struct{}, len(tradeChannels)),
	}
	// New sessions start subscribed to every trade channel; clients narrow
	// the set with subscribe/unsubscribe messages.
	for _, ch := range tradeChannels {
		s.subs[ch] = struct{}{}
	}

	h.register <- s
	s.sendStatus()

	go s.writeLoop()
	go s.readLoop()
}

// session is one connected WebSocket client.
type session struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu   sync.RWMutex
	subs map[string]struct{}
}

// controlMsg is the JSON a client sends to manage its channel set.
type controlMsg struct {
	Action   string   `json:"action"` // subscribe | unsubscribe
	Channels []string `json:"channels"`
}

// wants reports whether the session is subscribed to the channel, honoring
// trailing-* wildcards like "trade.*".
func (s *session) wants(channel string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.subs[channel]; ok {
		return true
	}
	for sub := range s.subs {
		if strings.HasSuffix(sub, "*") && strings.HasPrefix(channel, sub[:len(sub)-1]) {
			return true
		}
	}
	return false
}

func (s *session) applyControl(msg controlMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch msg.Action {
	case "subscribe":
		for _, ch := range msg.Channels {
			s.subs[ch] = struct{}{}
		}
	case "unsubscribe":
		for _, ch := range msg.Channels {
			delete(s.subs, ch)
		}
	}
}

// sendStatus pushes a status envelope so clients can mark the connection
// healthy before any trade event flows.
func (s *session) sendStatus() {
	uptime := int64(time.Since(s.hub.startedAt).Seconds())
	if uptime < 0 {
		uptime = 0
	}

	msg, err := json.Marshal(map[string]any{
		"type": "bot_status",
		"payload": map[string]any{
			"mode":           s.hub.mode,
			"ws_connected":   true,
			"uptime_seconds": uptime,
			"channels":       tradeChannels,
		},
	})
	if err != nil {
		return
	}
	select {
	case s.send <- msg:
	default:
	}
}

// readLoop consumes client frames, handling channel control messages and
// keepalive pongs, until the connection drops.
func (s *session) readLoop() {
	defer func() {
		s.hub.unregister <- s
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.logger.Warn("unexpected ws close", slog.String("error", err.Error()))
			}
			return
		}

		var msg controlMsg
		if err := json.Unmarshal(message, &msg); err == nil && msg.Action != "" {
			s.applyControl(msg)
		}
	}
}

// writeLoop drains the send channel to the connection as text frames and
// keeps the connection alive with pings.
func (s *session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
