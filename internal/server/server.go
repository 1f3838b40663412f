// Package server exposes the streaming chat endpoints and the coach CRUD
// API over HTTP.
package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/n0madic/stridecoach/internal/config"
	"github.com/n0madic/stridecoach/internal/relay"
	"github.com/n0madic/stridecoach/internal/store"
	"github.com/n0madic/stridecoach/internal/tools"
	"github.com/n0madic/stridecoach/internal/upstream"
)

// maxBodyBytes limits the size of incoming request bodies.
const maxBodyBytes = 10 * 1024 * 1024 // 10 MB

// Upstream is the completion API the handlers call: streaming for the chat
// endpoints, non-streaming for vision and image generation.
type Upstream interface {
	relay.Opener
	Complete(ctx context.Context, req *upstream.Request) ([]byte, error)
}

// Server is the main HTTP server.
type Server struct {
	Config     *config.ServerConfig
	Store      store.Store
	upstream   Upstream
	tools      *tools.Registry
	httpServer *http.Server
}

// New creates a server with all routes registered. The coach tools are
// bound to st.
func New(cfg *config.ServerConfig, st store.Store, up Upstream) *Server {
	s := &Server{
		Config:   cfg,
		Store:    st,
		upstream: up,
		tools:    tools.NewCoachRegistry(st, st),
	}

	s.httpServer = &http.Server{
		Addr:        cfg.Addr(),
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		// Streams may run for the whole request timeout.
		WriteTimeout: writeTimeout(cfg.RequestTimeout),
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func writeTimeout(requestTimeout time.Duration) time.Duration {
	if requestTimeout <= 0 {
		return 0
	}
	return requestTimeout + 30*time.Second
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)
	r.Use(s.authMiddleware)
	r.Use(s.verboseMiddleware)
	r.Use(s.debugMiddleware)

	r.Get("/", s.handleHealth)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/running-chat", s.handleRunningChat)

		r.Get("/conversations", s.listConversations)
		r.Post("/conversations", s.createConversation)
		r.Delete("/conversations", s.deleteConversation)
		r.Get("/conversations/{id}", s.getConversation)
		r.Put("/conversations/{id}", s.renameConversation)
		r.Post("/conversations/{id}/messages", s.appendMessage)

		r.Get("/runner-profile", s.getRunnerProfile)
		r.Put("/runner-profile", s.putRunnerProfile)
		r.Patch("/runner-profile", s.patchRunnerProfile)

		r.Get("/running-events", s.listRunningEvents)
		r.Post("/running-events", s.createRunningEvent)
		r.Put("/running-events", s.updateRunningEvent)
		r.Delete("/running-events", s.deleteRunningEvent)

		r.Post("/vision", s.handleVision)
		r.Post("/image-generation", s.handleImageGeneration)
		r.Get("/images", s.listGeneratedImages)
		r.Post("/images", s.saveGeneratedImage)
		r.Get("/vision-history", s.listVisionAnalyses)
		r.Post("/vision-history", s.saveVisionAnalysis)
	})
	return r
}

// ListenAndServe starts the server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server. The store is left open for the
// caller to close.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return nil, false
	}
	return body, true
}
