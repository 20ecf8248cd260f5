package sse

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/firmoscope/backend/internal/platform/logger"
)

// StreamWriter writes one request's event sequence as text/event-stream.
// It is single-goroutine: the turn pipeline calls Send in order and the
// events reach the wire in the same order.
type StreamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	log     *logger.Logger
}

// NewStreamWriter sets the streaming headers and returns a writer, or an
// error when the underlying ResponseWriter cannot flush.
func NewStreamWriter(w http.ResponseWriter, log *logger.Logger) (*StreamWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported by response writer")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	return &StreamWriter{w: w, flusher: flusher, log: log.With("component", "StreamWriter")}, nil
}

// Send writes one named event with a JSON payload and flushes immediately.
func (s *StreamWriter) Send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return fmt.Errorf("write %s event: %w", event, err)
	}
	s.flusher.Flush()
	return nil
}
