package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/docwizard/engine/pkg/types"
)

// getResult handles GET /session/{sessionID}/result{?version}: the latest
// Result by default, or a specific version when ?version=N is given, per
// spec.md §6 "result".
func (s *Server) getResult(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	version := 0
	if v := r.URL.Query().Get("version"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "version must be an integer")
			return
		}
		version = n
	}

	res, err := s.assembler.Get(r.Context(), sess.ID, version)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	if res == nil {
		writeErr(w, http.StatusNotFound, ErrCodeNotFound, "no result for this session")
		return
	}
	writeData(w, http.StatusOK, res)
}

type confirmResultRequest struct {
	ResultID string `json:"resultID"`
}

// confirmResult handles POST /session/{sessionID}/result/confirm, per
// spec.md §6 and §4.9's CONFIRM action.
func (s *Server) confirmResult(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	var req confirmResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}

	ctx := r.Context()
	resultID := req.ResultID
	if resultID == "" {
		latest, err := s.assembler.Get(ctx, sess.ID, 0)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
			return
		}
		if latest == nil {
			writeErr(w, http.StatusNotFound, ErrCodeNotFound, "no result for this session")
			return
		}
		resultID = latest.ID
	}

	if err := s.assembler.Confirm(ctx, resultID); err != nil {
		writeErr(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"confirmed": true})
}

type modifyResultRequest struct {
	SourceResultID string `json:"sourceResultID,omitempty"`
	Content        string `json:"content"`
}

// modifyResult handles POST /session/{sessionID}/result/modify: a direct
// user edit that produces a new Result version, per spec.md §4.9's MODIFY
// action. Per SPEC_FULL.md §9 open-question decision 3, MODIFY always
// takes direct-edit content here (there is no prompt-list variant at the
// HTTP boundary — re-running prompts is submitPrompts' job).
func (s *Server) modifyResult(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	var req modifyResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if req.Content == "" {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "content is required")
		return
	}

	ctx := r.Context()
	sourceID := req.SourceResultID
	if sourceID == "" {
		latest, err := s.assembler.Get(ctx, sess.ID, 0)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
			return
		}
		if latest == nil {
			writeErr(w, http.StatusNotFound, ErrCodeNotFound, "no result for this session")
			return
		}
		sourceID = latest.ID
	}

	modified, err := s.assembler.Modify(ctx, sess.ID, sourceID, req.Content, time.Now().UnixMilli())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeData(w, http.StatusCreated, modified)
}

// regenerateResult handles POST /session/{sessionID}/result/regenerate, per
// spec.md §4.9's REGENERATE action and §8's end-to-end scenario: every
// prompt in the session resets to PENDING and is re-enqueued as a fresh
// Job, so the Scheduler and Executor run the session again and the Result
// Assembler eventually persists a new version.
func (s *Server) regenerateResult(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	reset, err := s.prompts.ResetToPending(ctx, sess.ID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	if len(reset) == 0 {
		writeErr(w, http.StatusNotFound, ErrCodeNotFound, "no prompts for this session")
		return
	}

	if err := s.sessions.UpdateStatus(ctx, sess.ID, types.SessionProcessing); err != nil {
		writeErr(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	now := time.Now().UnixMilli()
	jobs := make([]types.Job, len(reset))
	for i, p := range reset {
		jobs[i] = types.Job{
			SessionID:   sess.ID,
			PromptID:    p.ID,
			Priority:    p.Priority,
			Sequence:    s.queue.NextSequence(),
			EnqueueTime: now,
		}
	}
	if err := s.queue.EnqueueBatch(ctx, jobs); err != nil {
		writeErr(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	if s.notify != nil {
		s.notify.Notify()
	}

	writeData(w, http.StatusAccepted, reset)
}
