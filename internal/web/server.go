package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/facevote/internal/config"
	"github.com/kozaktomas/facevote/internal/database"
	"github.com/kozaktomas/facevote/internal/election"
	"github.com/kozaktomas/facevote/internal/facematch"
	"github.com/kozaktomas/facevote/internal/ledger"
	"github.com/kozaktomas/facevote/internal/session"
	"github.com/kozaktomas/facevote/internal/web/middleware"
	"github.com/kozaktomas/facevote/internal/web/push"
)

// Services bundles the domain dependencies the HTTP layer needs.
type Services struct {
	Sessions  *session.Orchestrator
	Verifier  *facematch.Verifier
	Ledger    *ledger.Ledger
	Elections *election.Service
	Voters    database.VoterStore
	Admins    database.AdminStore
	Reports   database.ReportStore
}

// Server represents the web server
type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server
	services   Services
	hub        *push.Hub
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, port int, host string, services Services) *Server {
	r := chi.NewRouter()

	hub := push.NewHub()
	services.Sessions.SetNotifier(hub)

	s := &Server{
		config:   cfg,
		router:   r,
		services: services,
		hub:      hub,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(middleware.CORS())

	// Set up routes
	s.setupRoutes()

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second, // Camera frame uploads can be slow on mobile networks
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
