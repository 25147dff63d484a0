package handlers

import (
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/deepsearchstack/deepsearch/internal/core/constants"
	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// sseFrame is the wire shape of one server-sent event.
type sseFrame struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// sseWriter frames pipeline events as SSE and flushes after every event so
// fragments reach the client as they are produced.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	w.Header().Set(constants.ContentTypeHeader, constants.ContentTypeSSE)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	return &sseWriter{w: w, flusher: flusher}, nil
}

func (s *sseWriter) WriteEvent(ev domain.StreamEvent) error {
	return s.writeFrame(sseFrame{
		Type:      string(ev.Type),
		Data:      ev.Data(),
		Timestamp: ev.Timestamp,
	})
}

// WriteData emits an arbitrary payload as a raw data frame, used by the
// completion passthrough where fragments are not pipeline events.
func (s *sseWriter) WriteData(payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", raw); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteDone emits the terminal [DONE] marker used by the completion SSE
// dialect.
func (s *sseWriter) WriteDone() {
	fmt.Fprint(s.w, "data: [DONE]\n\n")
	s.flusher.Flush()
}

func (s *sseWriter) writeFrame(frame sseFrame) error {
	raw, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", raw); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
