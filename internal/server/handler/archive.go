package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	s3blob "github.com/sniperlabs/dexsniper/internal/blob/s3"
	"github.com/sniperlabs/dexsniper/internal/domain"
)

// ArchiveHandler serves the cold-storage browsing endpoints. The reader is
// nil when archiving is disabled; every endpoint then answers 503.
type ArchiveHandler struct {
	reader *s3blob.Reader
	logger *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler with the given reader and
// logger.
func NewArchiveHandler(reader *s3blob.Reader, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		reader: reader,
		logger: logger,
	}
}

// archiveObjectView is the JSON shape of one archived object.
type archiveObjectView struct {
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	LastModified string `json:"last_modified"`
}

// ListObjects lists archived objects under a prefix.
// GET /api/archive?prefix=archive/trades/
func (h *ArchiveHandler) ListObjects(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		writeError(w, http.StatusServiceUnavailable, "archiving is disabled")
		return
	}

	prefix := r.URL.Query().Get("prefix")

	infos, err := h.reader.List(r.Context(), prefix)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list archive failed",
			slog.String("prefix", prefix),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list archive")
		return
	}

	views := make([]archiveObjectView, 0, len(infos))
	for _, info := range infos {
		views = append(views, archiveObjectView{
			Path:         info.Path,
			Size:         info.Size,
			LastModified: info.LastModified.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"objects": views})
}

// GetObject streams one archived object back to the caller.
// GET /api/archive/object?path=archive/trades/2026-08.jsonl
func (h *ArchiveHandler) GetObject(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		writeError(w, http.StatusServiceUnavailable, "archiving is disabled")
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" || strings.Contains(path, "..") {
		writeError(w, http.StatusBadRequest, "valid path query parameter required")
		return
	}

	body, err := h.reader.Get(r.Context(), path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "archive object not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get archive object failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get archive object")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	if _, err := io.Copy(w, body); err != nil {
		h.logger.WarnContext(r.Context(), "handler: archive object stream interrupted",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
