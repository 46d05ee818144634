package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/docwizard/engine/internal/clarify"
)

// listClarifications handles GET /session/{sessionID}/clarifications:
// every pending (unresolved) CLARIFICATION message, per spec.md §6
// "clarifications".
func (s *Server) listClarifications(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	pending, err := s.conv.PendingClarifications(r.Context(), sess.ID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeData(w, http.StatusOK, pending)
}

type respondRequest struct {
	Response string `json:"response"`
}

// respondToClarification handles POST
// /session/{sessionID}/clarifications/{clarificationID}: records the
// user's answer and, if it was the last pending question, re-evaluates
// whether the session can now complete, per spec.md §4.8.
func (s *Server) respondToClarification(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	clarificationID := chi.URLParam(r, "clarificationID")

	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if req.Response == "" {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "response is required")
		return
	}

	ctx := r.Context()
	msg, err := clarify.Respond(ctx, s.conv, sess.ID, clarificationID, req.Response)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	if s.executor != nil {
		if err := s.executor.EvaluateSessionTransition(ctx, sess.ID); err != nil {
			s.logger.Warn().Err(err).Str("session", sess.ID).Msg("post-clarification transition check failed")
		}
	}

	writeData(w, http.StatusOK, msg)
}
