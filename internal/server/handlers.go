package server

import (
	"encoding/json"
	"image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/pogo-pad/internal/overlay"
	"github.com/MeKo-Tech/pogo-pad/internal/regions"
	"github.com/MeKo-Tech/pogo-pad/internal/version"
)

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Sessions int    `json:"sessions"`
	Time     string `json:"time"`
}

// ErrorResponse is the JSON body of failed HTTP requests.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:   "healthy",
		Version:  version.Version,
		Sessions: s.SessionCount(),
		Time:     time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("Error encoding health response", "error", err)
	}
}

// overlayHandler renders the current file of a session with its region boxes.
// Optional x and y query parameters highlight the region under that point.
func (s *Server) overlayHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.overlayEnabled {
		s.writeErrorResponse(w, "overlay output disabled", http.StatusForbidden)
		return
	}

	snap, ok := s.lookup(r.URL.Query().Get("session"))
	if !ok {
		s.writeErrorResponse(w, "unknown session", http.StatusNotFound)
		return
	}
	if snap.current == "" {
		s.writeErrorResponse(w, "session has no current file", http.StatusNotFound)
		return
	}

	img, err := s.decoder.Decode(snap.current)
	if err != nil {
		s.writeErrorResponse(w, "failed to decode current file: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	opts := overlay.Options{BoxColor: s.boxColor}
	if c := r.URL.Query().Get("box"); c != "" {
		if col, err := overlay.ParseHexColor(c); err == nil {
			opts.BoxColor = col
		}
	}
	if x, y, ok := pointFromQuery(r); ok {
		ix := regions.NewIndex(regions.KeepLast)
		ix.Rebuild(snap.regions)
		if hit, found := ix.HitTestRegion(x, y); found {
			opts.Highlight = &hit.Box
		}
	}

	out := overlay.Render(img, snap.regions, opts)
	overlaysRendered.Inc()
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, out); err != nil {
		s.logger.Error("Error encoding overlay", "error", err)
	}
}

func pointFromQuery(r *http.Request) (int, int, bool) {
	q := r.URL.Query()
	x, errX := strconv.Atoi(q.Get("x"))
	y, errY := strconv.Atoi(q.Get("y"))
	return x, y, errX == nil && errY == nil
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Success: false, Error: message}); err != nil {
		s.logger.Error("Error encoding error response", "error", err)
	}
}
