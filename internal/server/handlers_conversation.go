package server

import "net/http"

// getConversation handles GET /session/{sessionID}/conversation: the full
// append-only message log for the session, per spec.md §6 "conversation".
func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	msgs, err := s.conv.ListBySession(r.Context(), sess.ID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeData(w, http.StatusOK, msgs)
}
