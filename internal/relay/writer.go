package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/n0madic/stridecoach/internal/stream"
)

// ErrClientGone is returned by Writer.Send once a write to the client failed.
var ErrClientGone = errors.New("client disconnected")

// Sink receives the client-facing events of one relay.
type Sink interface {
	Send(ev stream.Event) error
	// Done writes the terminal marker. Calls after the first are no-ops.
	Done() error
}

// Writer is a Sink that writes `data: <json>\n\n` frames to an HTTP response.
type Writer struct {
	w           http.ResponseWriter
	flusher     http.Flusher
	writeFailed bool
	done        bool
}

// NewWriter sets the event-stream headers and commits the 200 status.
func NewWriter(w http.ResponseWriter) *Writer {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	sw := &Writer{w: w, flusher: flusher}
	sw.flush()
	return sw
}

func (s *Writer) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

func (s *Writer) Send(ev stream.Event) error {
	if s.writeFailed {
		return ErrClientGone
	}
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("failed to marshal SSE event", "error", err)
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		slog.Debug("client disconnected during SSE write", "error", err)
		s.writeFailed = true
		return ErrClientGone
	}
	s.flush()
	return nil
}

func (s *Writer) Done() error {
	if s.done {
		return nil
	}
	s.done = true
	if s.writeFailed {
		return ErrClientGone
	}
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		slog.Debug("client disconnected during SSE done", "error", err)
		s.writeFailed = true
		return ErrClientGone
	}
	s.flush()
	return nil
}
