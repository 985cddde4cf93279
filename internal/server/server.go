// Package server provides the HTTP preview server for peacecam.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/ayusman/peacecam/internal/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Config holds the server configuration.
type Config struct {
	Hub *Hub
	// FPS caps the MJPEG stream rate per client.
	FPS int
}

// Server represents the preview HTTP server.
type Server struct {
	config Config
	router *chi.Mux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Hub == nil {
		config.Hub = NewHub()
	}
	if config.FPS <= 0 {
		config.FPS = 10
	}

	s := &Server{
		config: config,
		router: chi.NewRouter(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)

	s.router.Get("/api/health", s.handleHealth)
	s.router.Method(http.MethodGet, "/api/stream", NewStreamHandler(s.config.Hub, s.config.FPS))
	s.router.Method(http.MethodGet, "/api/events", NewEventsHandler(s.config.Hub))
}

// Hub returns the hub the server reads from.
func (s *Server) Hub() *Hub {
	return s.config.Hub
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":   "ok",
		"uptime":   time.Since(s.start).String(),
		"captures": s.config.Hub.Captures(),
		"clients":  s.config.Hub.Subscribers(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled. Request contexts
// derive from ctx, so open streams and event feeds end on shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	log.Info(log.Fields{"addr": ln.Addr().String()}, "preview server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
