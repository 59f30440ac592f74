// Package server exposes editing sessions over WebSocket. Each connection
// owns one session; an HTTP endpoint renders the session's current file with
// its region boxes.
package server

import (
	"errors"
	"image"
	"image/color"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/pogo-pad/internal/overlay"
	"github.com/MeKo-Tech/pogo-pad/internal/regions"
	"github.com/MeKo-Tech/pogo-pad/internal/session"
)

// SessionFactory creates a fresh session for a new connection.
type SessionFactory func() *session.Session

// ImageDecoder loads the current file for overlay rendering.
type ImageDecoder interface {
	Decode(path string) (image.Image, error)
}

// Config holds server configuration.
type Config struct {
	CORSOrigin      string
	OverlayEnabled  bool
	OverlayBoxColor string
	Logger          *slog.Logger
}

// snapshot is the part of a session other goroutines may read.
type snapshot struct {
	current string
	regions []regions.Region
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	newSession     SessionFactory
	decoder        ImageDecoder
	corsOrigin     string
	overlayEnabled bool
	boxColor       color.Color
	logger         *slog.Logger

	mu       sync.RWMutex
	sessions map[string]snapshot
}

// NewServer creates a session server.
func NewServer(cfg Config, factory SessionFactory, decoder ImageDecoder) (*Server, error) {
	if factory == nil {
		return nil, errors.New("server: session factory is required")
	}
	boxColor := overlay.DefaultBoxColor
	if cfg.OverlayBoxColor != "" {
		c, err := overlay.ParseHexColor(cfg.OverlayBoxColor)
		if err != nil {
			return nil, err
		}
		boxColor = c
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{
		newSession:     factory,
		decoder:        decoder,
		corsOrigin:     cfg.CORSOrigin,
		overlayEnabled: cfg.OverlayEnabled && decoder != nil,
		boxColor:       boxColor,
		logger:         cfg.Logger,
		sessions:       make(map[string]snapshot),
	}, nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/overlay", s.corsMiddleware(s.overlayHandler))
	mux.Handle("/metrics", promhttp.Handler())
	// The upgrade needs the raw ResponseWriter, so /ws skips the middleware.
	mux.HandleFunc("/ws", s.sessionWebSocketHandler)
}

// SessionCount returns the number of connected sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Server) register() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = snapshot{}
	s.mu.Unlock()
	return id
}

func (s *Server) unregister(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// publish records what the overlay endpoint may show for id.
func (s *Server) publish(id string, sess *session.Session) {
	current, _ := sess.Current()
	indexed, regs := sess.Regions()
	if indexed != current {
		regs = nil
	}
	s.mu.Lock()
	if _, ok := s.sessions[id]; ok {
		s.sessions[id] = snapshot{current: current, regions: regs}
	}
	s.mu.Unlock()
}

func (s *Server) lookup(id string) (snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.sessions[id]
	snap.regions = slices.Clone(snap.regions)
	return snap, ok
}
