package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"EverglowMissions/internal/config"
	"EverglowMissions/internal/game"
)

// Server exposes a hub over HTTP and websockets.
type Server struct {
	hub    *game.Hub
	cfg    config.Config
	logger *log.Logger
}

// NewServer wires the HTTP surface of hub.
func NewServer(hub *game.Hub, cfg config.Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{hub: hub, cfg: cfg, logger: logger}
}

/* ------------------------------- HTTP ------------------------------- */

// Handler returns the routes of the mission server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/missions/{player}", s.handleMissions)
	mux.HandleFunc("/ws", s.serveWS)
	return mux
}

func (s *Server) handleMissions(w http.ResponseWriter, r *http.Request) {
	player := strings.TrimSpace(r.PathValue("player"))
	if player == "" {
		writeJSON(w, http.StatusBadRequest, errorDTO{Message: "player is required"})
		return
	}
	sess, err := s.hub.GetSession(r.Context(), player)
	if err != nil {
		s.logger.Printf("http: session %s: %v", player, err)
		writeJSON(w, http.StatusInternalServerError, errorDTO{Message: "session unavailable"})
		return
	}
	view, err := buildMissionsDTO(sess)
	if err != nil {
		s.logger.Printf("http: session %s: %v", player, err)
		writeJSON(w, http.StatusServiceUnavailable, errorDTO{Message: "session unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("http: encode response: %v", err)
	}
}
