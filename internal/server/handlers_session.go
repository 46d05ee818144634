package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/docwizard/engine/pkg/types"
)

// uploadFile is the wire shape of one file in an upload request. The
// engine never parses documents itself — it is the caller's job to supply
// already-extracted plain text, sections, and tables (spec.md §3, File is
// "an immutable record of one uploaded, externally-parsed document").
type uploadFile struct {
	OriginalName string         `json:"originalName"`
	MimeType     string         `json:"mimeType"`
	PlainText    string         `json:"plainText"`
	Sections     []types.Section `json:"sections,omitempty"`
	Tables       []types.Table   `json:"tables,omitempty"`
}

type uploadRequest struct {
	UserID   string         `json:"userID,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Files    []uploadFile   `json:"files"`
}

type uploadResponse struct {
	Session *types.Session `json:"session"`
	Files   []*types.File  `json:"files"`
}

// upload handles POST /session: creates a Session and its Files in one
// call, per spec.md §6 "upload".
func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if len(req.Files) == 0 {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "at least one file is required")
		return
	}

	ctx := r.Context()
	sess, err := s.sessions.CreateSession(ctx, req.UserID, req.Metadata)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	drafts := make([]*types.File, len(req.Files))
	for i, f := range req.Files {
		drafts[i] = &types.File{
			OriginalName: f.OriginalName,
			MimeType:     f.MimeType,
			Size:         int64(len(f.PlainText)),
			PlainText:    f.PlainText,
			Sections:     f.Sections,
			Tables:       f.Tables,
		}
	}

	created, err := s.files.CreateFiles(ctx, sess.ID, drafts)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeData(w, http.StatusCreated, uploadResponse{Session: sess, Files: created})
}

// getSession handles GET /session/{sessionID}.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, sess)
}

type statusResponse struct {
	Session *types.Session   `json:"session"`
	Prompts []*types.Prompt  `json:"prompts"`
}

// getStatus handles GET /session/{sessionID}/status: the session plus the
// current status of every prompt it owns, per spec.md §6 "status".
func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	prompts, err := s.prompts.ListBySession(r.Context(), sess.ID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeData(w, http.StatusOK, statusResponse{Session: sess, Prompts: prompts})
}

// loadSession resolves the {sessionID} path param, writing a 404 envelope
// and returning ok=false if it does not exist.
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (*types.Session, bool) {
	id := chi.URLParam(r, "sessionID")
	sess, err := s.sessions.GetSession(r.Context(), id)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return nil, false
	}
	if sess == nil {
		writeErr(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return nil, false
	}
	return sess, true
}
