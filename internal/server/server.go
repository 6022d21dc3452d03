// Package server provides the HTTP server for handeye.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/handeye/internal/app"
	"github.com/ayusman/handeye/internal/server/api"
	"github.com/ayusman/handeye/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	App       *app.App
	StreamFPS int
}

// Server represents the HTTP server for the handeye application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if a := s.config.App; a != nil {
		s.mux.Handle("/api/hand", NewHandHandler(a))
		s.mux.Handle("/api/camera", NewCameraHandler(a))
		s.mux.HandleFunc("/api/settings", s.handleSettings)

		// Register session API if a store is configured
		if st := a.Store(); st != nil {
			sessions := api.NewSessionHandler(st)
			s.mux.Handle("/api/sessions", sessions)
			s.mux.Handle("/api/sessions/", sessions)
		}

		// Register camera stream endpoint if a local camera is configured
		if a.HasCamera() {
			s.mux.Handle("/api/stream", NewStreamHandler(a, s.config.StreamFPS))
		}
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if a := s.config.App; a != nil {
		response["pushes"] = a.View().Pushes
		response["camera"] = a.IsRunning()
		recording := []store.Source{}
		for _, src := range []store.Source{store.SourceBrowser, store.SourceCamera} {
			if a.ActiveSession(src) != nil {
				recording = append(recording, src)
			}
		}
		response["store"] = a.Store() != nil
		response["recording"] = recording
	}

	writeJSON(w, http.StatusOK, response)
}

type settingsRequest struct {
	Enabled   *bool `json:"enabled"`
	Smoothing *bool `json:"smoothing"`
	Gate      *bool `json:"gate"`
}

type settingsResponse struct {
	Enabled   bool `json:"enabled"`
	Smoothing bool `json:"smoothing"`
	Gate      bool `json:"gate"`
}

// handleSettings reads (GET) or partially updates (PUT) the runtime toggles.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	a := s.config.App

	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req settingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Enabled != nil {
			a.SetEnabled(*req.Enabled)
		}
		if req.Smoothing != nil {
			a.SetSmoothing(*req.Smoothing)
		}
		if req.Gate != nil {
			a.SetGate(*req.Gate)
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, settingsResponse{
		Enabled:   a.IsEnabled(),
		Smoothing: a.SmoothingEnabled(),
		Gate:      a.GateEnabled(),
	})
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
