package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeSender records deliveries and optionally fails.
type fakeSender struct {
	name string
	err  error

	mu    sync.Mutex
	sent  []string
	calls int
}

func (f *fakeSender) Send(ctx context.Context, title, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, title)
	return nil
}

func (f *fakeSender) Name() string { return f.name }

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestNotifyFiltersByEventType(t *testing.T) {
	sender := &fakeSender{name: "telegram"}
	n := NewNotifier([]Sender{sender}, []string{"tp", "sl"}, discardLogger())

	require.NoError(t, n.Notify(context.Background(), "entryCreated", "entry", "body"))
	require.Zero(t, sender.callCount())

	require.NoError(t, n.Notify(context.Background(), "tp", "take profit", "body"))
	require.Equal(t, 1, sender.callCount())
	require.Equal(t, []string{"take profit"}, sender.sent)
}

func TestNotifyEmptyEventListAllowsAll(t *testing.T) {
	sender := &fakeSender{name: "discord"}
	n := NewNotifier([]Sender{sender}, nil, discardLogger())

	require.NoError(t, n.Notify(context.Background(), "anything", "t", "m"))
	require.Equal(t, 1, sender.callCount())
}

func TestNotifyContinuesPastFailingSender(t *testing.T) {
	broken := &fakeSender{name: "telegram", err: errors.New("chat not found")}
	healthy := &fakeSender{name: "discord"}
	n := NewNotifier([]Sender{broken, healthy}, nil, discardLogger())

	err := n.Notify(context.Background(), "tp", "t", "m")
	require.Error(t, err)
	require.Contains(t, err.Error(), "telegram")
	require.Equal(t, 1, healthy.callCount())
}

func TestAlertBypassesFilter(t *testing.T) {
	sender := &fakeSender{name: "telegram"}
	n := NewNotifier([]Sender{sender}, []string{"tp"}, discardLogger())

	n.Alert(context.Background(), "swap failed", "details")

	// Alert delivers in the background.
	deadline := time.After(2 * time.Second)
	for sender.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("alert never delivered")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestAlertNoSendersIsNoop(t *testing.T) {
	n := NewNotifier(nil, nil, discardLogger())
	n.Alert(context.Background(), "t", "m")
}
