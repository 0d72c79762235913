package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

const (
	// pingInterval keeps the dextools stream alive; the server answers a
	// text "ping" with a text "pong".
	pingInterval = 10 * time.Second

	reconnectDelay = 2 * time.Second
	connectTimeout = 15 * time.Second
)

// MessageHandler receives each raw stream message that is not a pong.
type MessageHandler func(ctx context.Context, raw []byte)

// DextoolsFeed connects to the dextools WebSocket, subscribes to the pool
// channel for one chain, and hands every message to the handler. It
// reconnects with a delay on disconnect and resubscribes each time.
type DextoolsFeed struct {
	url     string
	chain   string
	channel string
	handler MessageHandler
	logger  *slog.Logger
}

// NewDextoolsFeed creates a feed for the given stream URL and pool channel
// (e.g. chain "bsc", channel "bsc:pools").
func NewDextoolsFeed(url, chain, channel string, handler MessageHandler, logger *slog.Logger) *DextoolsFeed {
	return &DextoolsFeed{
		url:     url,
		chain:   chain,
		channel: channel,
		handler: handler,
		logger:  logger.With(slog.String("component", "dextools_feed")),
	}
}

// Run connects and consumes the stream until ctx is cancelled. Every
// disconnect is logged and followed by a reconnect attempt.
func (f *DextoolsFeed) Run(ctx context.Context) error {
	for {
		err := f.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("stream disconnected, reconnecting",
			slog.String("url", f.url),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (f *DextoolsFeed) runConnection(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, f.url, nil)
	cancel()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteJSON(newSubscribeRequest(f.chain, f.channel)); err != nil {
		return err
	}
	f.logger.Info("subscribed to pool stream",
		slog.String("chain", f.chain),
		slog.String("channel", f.channel),
	)

	// Close the connection when ctx ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	go f.pingLoop(ctx, conn, done)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return domain.ErrWSDisconnect
		}
		if string(raw) == "pong" {
			continue
		}
		f.handler(ctx, raw)
	}
}

func (f *DextoolsFeed) pingLoop(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
				return
			}
		}
	}
}
