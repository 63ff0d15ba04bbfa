package web

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/saltyorg/dbscope/internal/config"
	"github.com/saltyorg/dbscope/internal/database"
	"github.com/saltyorg/dbscope/internal/web/handlers"
	"github.com/saltyorg/dbscope/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	db         *database.DB
	port       int
	bind       string
	allowedNet *net.IPNet
	timeouts   *config.TimeoutConfig
	router     *chi.Mux
	handlers   *handlers.Handlers
}

// NewServer creates a new web server
func NewServer(db *database.DB, cfg config.ServerConfig, allowedNet *net.IPNet, version handlers.VersionInfo) *Server {
	s := &Server{
		db:         db,
		port:       cfg.Port,
		bind:       cfg.Bind,
		allowedNet: allowedNet,
		timeouts:   cfg.Timeouts(),
		router:     chi.NewRouter(),
		handlers:   handlers.New(version),
	}

	s.setupRoutes()
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	r := s.router
	h := s.handlers

	r.Use(chimiddleware.RequestID)
	// AllowSubnet must come BEFORE RealIP so we check the actual connection source
	r.Use(middleware.AllowSubnet(s.allowedNet))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(s.timeouts.Request))
	// Innermost so teardown runs before Recoverer sees a panic
	r.Use(middleware.Database(s.db))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/database", h.DatabaseInfo)
		r.Get("/version", h.Version)
	})
}

// Start starts the web server and blocks until ctx is canceled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	var addr string
	if s.bind != "" {
		addr = fmt.Sprintf("%s:%d", s.bind, s.port)
	} else {
		addr = fmt.Sprintf(":%d", s.port)
	}

	server := &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: s.timeouts.Read,
		// Chi middleware timeout protects handlers
		WriteTimeout: 0,
		IdleTimeout:  s.timeouts.Idle,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeouts.Shutdown)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}
