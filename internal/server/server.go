// Package server exposes the document wizard engine's session-facing HTTP
// API: a thin chi router over the Session/Prompt/File/Conversation/Result
// stores, the Scheduler's queue, and the event bus's SSE stream — the slice
// of operations spec.md §6 names, not the teacher's much larger surface.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/docwizard/engine/internal/conversation"
	"github.com/docwizard/engine/internal/executor"
	"github.com/docwizard/engine/internal/filestore"
	"github.com/docwizard/engine/internal/promptstore"
	"github.com/docwizard/engine/internal/queue"
	"github.com/docwizard/engine/internal/result"
	"github.com/docwizard/engine/internal/sessionstore"
)

// Config holds server configuration.
type Config struct {
	Port         int
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:         8080,
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // no write timeout: /session/{id}/events streams indefinitely
	}
}

// notifier is the subset of *scheduler.Scheduler the server needs: a wakeup
// signal after enqueuing new work. Declared as an interface here (rather
// than importing internal/scheduler directly) so the server package has no
// dependency edge back onto the scheduler.
type notifier interface {
	Notify()
}

// Server is the HTTP server.
type Server struct {
	config    *Config
	router    *chi.Mux
	httpSrv   *http.Server
	sessions  *sessionstore.Store
	files     *filestore.Store
	prompts   *promptstore.Store
	conv      *conversation.Log
	assembler *result.Assembler
	queue     *queue.Queue
	executor  *executor.Executor
	notify    notifier
	logger    zerolog.Logger
}

// Deps bundles every collaborator the server dispatches to.
type Deps struct {
	Sessions  *sessionstore.Store
	Files     *filestore.Store
	Prompts   *promptstore.Store
	Conv      *conversation.Log
	Assembler *result.Assembler
	Queue     *queue.Queue
	Executor  *executor.Executor
	Notify    notifier
	Logger    zerolog.Logger
}

// New creates a new Server instance.
func New(cfg *Config, deps Deps) *Server {
	s := &Server{
		config:    cfg,
		router:    chi.NewRouter(),
		sessions:  deps.Sessions,
		files:     deps.Files,
		prompts:   deps.Prompts,
		conv:      deps.Conv,
		assembler: deps.Assembler,
		queue:     deps.Queue,
		executor:  deps.Executor,
		notify:    deps.Notify,
		logger:    deps.Logger.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
