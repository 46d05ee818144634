package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/docwizard/engine/internal/event"
)

// sseHeartbeatInterval matches the teacher's SSE keep-alive cadence.
const sseHeartbeatInterval = 30 * time.Second

// sessionEvents handles GET /session/{sessionID}/events: a Server-Sent
// Events stream of every event the bus publishes for this session
// (progress, model_result, clarification, completed, error — spec.md §6),
// grounded on the teacher's sessionEvents/sseWriter pattern but filtering
// on event.Envelope.SessionID directly instead of a type switch, since
// every event here already carries its session id in a common envelope.
func (s *Server) sessionEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, ErrCodeInternalError, "streaming not supported")
		return
	}

	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := make(chan event.Event, 10)
	unsub := event.SubscribeAll(func(e event.Event) {
		env, ok := e.Data.(event.Envelope)
		if !ok || env.SessionID != sessionID {
			return
		}
		select {
		case events <- e:
		default:
			s.logger.Warn().Str("session", sessionID).Str("eventType", string(e.Type)).Msg("SSE event dropped: channel full")
		}
	})
	defer unsub()

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-events:
			if err := writeSSEEvent(w, flusher, string(e.Type), e.Data); err != nil {
				return
			}
		case <-ticker.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
