package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/docwizard/engine/pkg/types"
)

type submitPromptsRequest struct {
	Prompts []promptInput `json:"prompts"`
}

type promptInput struct {
	Content       string          `json:"content"`
	Priority      int             `json:"priority"`
	TargetType    types.TargetType `json:"targetType"`
	TargetFileID  string          `json:"targetFileID,omitempty"`
	TargetLines   *types.LineRange `json:"targetLines,omitempty"`
	TargetSection string          `json:"targetSection,omitempty"`
}

// submitPrompts handles POST /session/{sessionID}/prompts: creates the
// session's Prompts and enqueues one Job per prompt onto the global
// priority queue, per spec.md §6 "submitPrompts" and §4.3.
func (s *Server) submitPrompts(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	var req submitPromptsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if len(req.Prompts) == 0 {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "at least one prompt is required")
		return
	}

	drafts := make([]*types.Prompt, len(req.Prompts))
	for i, p := range req.Prompts {
		drafts[i] = &types.Prompt{
			Content:       p.Content,
			Priority:      p.Priority,
			TargetType:    p.TargetType,
			TargetFileID:  p.TargetFileID,
			TargetLines:   p.TargetLines,
			TargetSection: p.TargetSection,
		}
	}

	ctx := r.Context()
	created, err := s.prompts.CreatePrompts(ctx, sess.ID, drafts)
	if err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	jobs := make([]types.Job, len(created))
	now := time.Now()
	for i, p := range created {
		jobs[i] = types.Job{
			SessionID:   sess.ID,
			PromptID:    p.ID,
			Priority:    p.Priority,
			Sequence:    s.queue.NextSequence(),
			EnqueueTime: now.UnixMilli(),
		}
	}
	if err := s.queue.EnqueueBatch(ctx, jobs); err != nil {
		writeErr(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	if s.notify != nil {
		s.notify.Notify()
	}

	writeData(w, http.StatusCreated, created)
}
