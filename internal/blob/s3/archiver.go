package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

// TradeArchiveStore is the narrow query surface the archiver needs from the
// trade history store.
type TradeArchiveStore interface {
	// ListBefore returns all trades created strictly before the cutoff.
	ListBefore(ctx context.Context, before time.Time) ([]domain.TradeHistoryEntry, error)
}

// BlobWriter uploads one object. Satisfied by *Writer.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver uploads cold trading data to object storage: monthly JSONL dumps
// of the trade history, and hourly batches of raw feed messages for
// post-mortem replay. Deletion of archived rows from the primary store is a
// separate, explicit step after the archive is verified.
type Archiver struct {
	writer BlobWriter
	trades TradeArchiveStore
	logger *slog.Logger

	mu  sync.Mutex
	raw [][]byte
}

// NewArchiver creates an Archiver.
func NewArchiver(writer BlobWriter, trades TradeArchiveStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		trades: trades,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveTrades dumps all trade-history rows before the cutoff to
// archive/trades/YYYY-MM.jsonl and returns the number of archived rows.
func (a *Archiver) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	trades, err := a.trades.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades query: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(trades)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades marshal: %w", err)
	}

	path := fmt.Sprintf("archive/trades/%s.jsonl", before.Format("2006-01"))
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive trades upload: %w", err)
	}

	a.logger.InfoContext(ctx, "trade history archived",
		slog.String("path", path),
		slog.Int("count", len(trades)),
	)
	return int64(len(trades)), nil
}

// BufferRawEvent appends one raw feed message to the in-memory batch. Safe
// to call from the feed's read loop; the copy is cheap compared to the
// socket read.
func (a *Archiver) BufferRawEvent(raw []byte) {
	cp := append([]byte(nil), raw...)
	a.mu.Lock()
	a.raw = append(a.raw, cp)
	a.mu.Unlock()
}

// FlushRawEvents uploads the buffered raw messages as one newline-delimited
// object under feed/raw/, keyed by the flush hour. A failed upload puts the
// batch back so the next flush retries it.
func (a *Archiver) FlushRawEvents(ctx context.Context) error {
	a.mu.Lock()
	batch := a.raw
	a.raw = nil
	a.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, raw := range batch {
		buf.Write(raw)
		buf.WriteByte('\n')
	}

	path := fmt.Sprintf("feed/raw/%s.jsonl", time.Now().UTC().Format("2006-01-02T15"))
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf.Bytes()), "application/x-ndjson"); err != nil {
		a.mu.Lock()
		a.raw = append(batch, a.raw...)
		a.mu.Unlock()
		return fmt.Errorf("s3blob: flush raw events: %w", err)
	}

	a.logger.DebugContext(ctx, "raw feed batch archived",
		slog.String("path", path),
		slog.Int("count", len(batch)),
	)
	return nil
}

// Run flushes the raw event buffer on the given interval until ctx ends,
// with one final flush on the way out.
func (a *Archiver) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := a.FlushRawEvents(flushCtx); err != nil {
				a.logger.Error("final raw event flush failed", slog.String("error", err.Error()))
			}
			return ctx.Err()
		case <-ticker.C:
			if err := a.FlushRawEvents(ctx); err != nil {
				a.logger.Error("raw event flush failed", slog.String("error", err.Error()))
			}
		}
	}
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
