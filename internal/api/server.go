// Package api exposes room telemetry and commands over HTTP for the
// UI/automation collaborator.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"adaptivelighting/internal/controller"

	"go.uber.org/zap"
)

// Server provides HTTP endpoints for room telemetry and commands
type Server struct {
	rooms   []*controller.Controller
	byName  map[string]*controller.Controller
	logger  *zap.Logger
	server  *http.Server
	handler http.Handler
}

// NewServer creates an API server over the given room controllers
func NewServer(rooms []*controller.Controller, logger *zap.Logger, port int) *Server {
	s := &Server{
		rooms:  rooms,
		byName: make(map[string]*controller.Controller, len(rooms)),
		logger: logger.Named("api"),
	}
	for _, room := range rooms {
		s.byName[room.Name()] = room
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	mux.HandleFunc("GET /api/rooms/{name}", s.handleGetRoom)
	mux.HandleFunc("POST /api/rooms/{name}/apply", s.handleApply)
	mux.HandleFunc("POST /api/rooms/{name}/override", s.handleSetOverride)
	mux.HandleFunc("DELETE /api/rooms/{name}/override", s.handleClearOverride)
	mux.HandleFunc("POST /api/rooms/{name}/enabled", s.handleSetEnabled)
	mux.HandleFunc("POST /api/rooms/{name}/sleep", s.handleSetSleepMode)
	mux.HandleFunc("POST /api/rooms/{name}/adaptation", s.handleSetAdaptation)
	mux.HandleFunc("POST /api/rooms/{name}/settings", s.handleUpdateSettings)
	s.handler = mux

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the route handler, used directly in tests
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) room(w http.ResponseWriter, r *http.Request) *controller.Controller {
	name := r.PathValue("name")
	room, ok := s.byName[name]
	if !ok {
		http.Error(w, fmt.Sprintf("room %q not found", name), http.StatusNotFound)
		return nil
	}
	return room
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// handleHealth returns a simple health check response
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

// handleListRooms returns telemetry for every room
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	snapshots := make([]controller.Telemetry, 0, len(s.rooms))
	for _, room := range s.rooms {
		snapshots = append(snapshots, room.Telemetry())
	}
	s.writeJSON(w, snapshots)
}

// handleGetRoom returns telemetry for one room
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room := s.room(w, r)
	if room == nil {
		return
	}
	s.writeJSON(w, room.Telemetry())
}

// handleApply forces an immediate recompute-and-apply
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	room := s.room(w, r)
	if room == nil {
		return
	}
	room.ForceUpdate()
	s.writeJSON(w, room.Telemetry())
}

// handleSetOverride arms the manual-override window
func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	room := s.room(w, r)
	if room == nil {
		return
	}

	var body struct {
		DurationMinutes int `json:"duration_minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.DurationMinutes <= 0 {
		body.DurationMinutes = 30
	}

	room.SetManualOverride(body.DurationMinutes)
	s.writeJSON(w, room.Telemetry())
}

// handleClearOverride clears the window and re-applies
func (s *Server) handleClearOverride(w http.ResponseWriter, r *http.Request) {
	room := s.room(w, r)
	if room == nil {
		return
	}
	room.ClearManualOverride()
	s.writeJSON(w, room.Telemetry())
}

// handleSetEnabled flips the internal enable flag
func (s *Server) handleSetEnabled(w http.ResponseWriter, r *http.Request) {
	room := s.room(w, r)
	if room == nil {
		return
	}

	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	room.SetEnabled(body.Enabled)
	s.writeJSON(w, room.Telemetry())
}

// handleSetSleepMode toggles sleep mode
func (s *Server) handleSetSleepMode(w http.ResponseWriter, r *http.Request) {
	room := s.room(w, r)
	if room == nil {
		return
	}

	var body struct {
		SleepMode bool `json:"sleep_mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	room.SetSleepMode(body.SleepMode)
	s.writeJSON(w, room.Telemetry())
}

// handleSetAdaptation toggles per-channel adaptation
func (s *Server) handleSetAdaptation(w http.ResponseWriter, r *http.Request) {
	room := s.room(w, r)
	if room == nil {
		return
	}

	var body struct {
		AdaptBrightness *bool `json:"adapt_brightness"`
		AdaptColorTemp  *bool `json:"adapt_color_temp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if body.AdaptBrightness != nil {
		room.SetAdaptBrightness(*body.AdaptBrightness)
	}
	if body.AdaptColorTemp != nil {
		room.SetAdaptColorTemp(*body.AdaptColorTemp)
	}
	s.writeJSON(w, room.Telemetry())
}

// handleUpdateSettings applies a partial settings update
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	room := s.room(w, r)
	if room == nil {
		return
	}

	var body struct {
		MinBrightness   *int `json:"min_brightness"`
		MaxBrightness   *int `json:"max_brightness"`
		MinColorTemp    *int `json:"min_color_temp"`
		MaxColorTemp    *int `json:"max_color_temp"`
		Transition      *int `json:"transition"`
		SleepBrightness *int `json:"sleep_brightness"`
		SleepColorTemp  *int `json:"sleep_color_temp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if body.MinBrightness != nil {
		room.SetMinBrightness(*body.MinBrightness)
	}
	if body.MaxBrightness != nil {
		room.SetMaxBrightness(*body.MaxBrightness)
	}
	if body.MinColorTemp != nil {
		room.SetMinColorTemp(*body.MinColorTemp)
	}
	if body.MaxColorTemp != nil {
		room.SetMaxColorTemp(*body.MaxColorTemp)
	}
	if body.Transition != nil {
		room.SetTransition(*body.Transition)
	}
	if body.SleepBrightness != nil {
		room.SetSleepBrightness(*body.SleepBrightness)
	}
	if body.SleepColorTemp != nil {
		room.SetSleepColorTemp(*body.SleepColorTemp)
	}
	s.writeJSON(w, room.Telemetry())
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP API server", zap.String("addr", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop() error {
	s.logger.Info("Stopping HTTP API server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	return nil
}
