// Package web implements the local gateway surface of the hub: a JSON
// notification API, the invoked news function, and the websocket change
// feed that the sync core subscribes to.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ivoirehub/hubsync/internal/db"
	"github.com/ivoirehub/hubsync/internal/notify"
)

// Config holds configuration for the gateway server.
type Config struct {
	// Addr is the listen address.
	Addr string

	// Logger is the structured logger. Defaults to slog.Default.
	Logger *slog.Logger

	// NewsRateLimit caps fetch-news invocations per minute per client
	// address. Zero uses DefaultNewsRateLimit.
	NewsRateLimit int
}

// DefaultConfig returns the default gateway configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr: ":8090",
	}
}

// Server is the gateway HTTP server.
type Server struct {
	store    *db.Store
	registry *notify.Registry
	news     *newsFunction
	log      *slog.Logger

	mux  *http.ServeMux
	srv  *http.Server
	addr string
}

// NewServer creates a gateway server over the given store.
func NewServer(cfg *Config, store *db.Store) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "web")

	s := &Server{
		store:    store,
		registry: notify.NewRegistry(),
		news:     newNewsFunction(cfg.NewsRateLimit, log),
		log:      log,
		mux:      http.NewServeMux(),
		addr:     cfg.Addr,
	}

	s.mux.HandleFunc("GET /api/v1/notifications", s.handleListNotifications)
	s.mux.HandleFunc("POST /api/v1/notifications", s.handleCreateNotification)
	s.mux.HandleFunc("POST /api/v1/notifications/read", s.handleMarkRead)
	s.mux.HandleFunc("POST /api/v1/notifications/read-all", s.handleMarkAllRead)
	s.mux.HandleFunc("POST /functions/v1/fetch-news", s.news.handleInvoke)
	s.mux.HandleFunc("GET /ws", s.handleFeed)

	return s
}

// Handler returns the gateway's HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Registry returns the in-process notification fan-out registry.
func (s *Server) Registry() *notify.Registry {
	return s.registry
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         s.addr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Info("Starting gateway server", "addr", s.addr)
	return s.srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}
