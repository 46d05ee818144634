package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures the session-facing API surface of spec.md §6: a
// small slice of the teacher's much larger routes.go, since the rest of
// its HTTP surface (projects, files, LSP, MCP, formatter, TUI control,
// client tools) has no counterpart in this domain.
func (s *Server) setupRoutes() {
	r := s.router

	r.Route("/session", func(r chi.Router) {
		r.Post("/", s.upload)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Post("/prompts", s.submitPrompts)
			r.Get("/status", s.getStatus)
			r.Get("/clarifications", s.listClarifications)
			r.Post("/clarifications/{clarificationID}", s.respondToClarification)
			r.Get("/result", s.getResult)
			r.Post("/result/confirm", s.confirmResult)
			r.Post("/result/modify", s.modifyResult)
			r.Post("/result/regenerate", s.regenerateResult)
			r.Get("/conversation", s.getConversation)
			r.Get("/events", s.sessionEvents)
		})
	})
}
