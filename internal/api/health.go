package api

import (
	"context"
	"net/http"
	"time"

	"sparqld/internal/store"
	"sparqld/internal/version"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime,omitempty"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Graphs    int       `json:"graphs"`
	Quads     int64     `json:"quads"`
	Error     string    `json:"error,omitempty"`
}

// handleHealth responds to health check requests (simple liveness check)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Info(),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
	}

	WriteJSON(w, response, http.StatusOK)
}

// handleReady responds to readiness check requests by reading from the store
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := ReadyResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC(),
	}
	statusCode := http.StatusOK

	graphs, err := s.store.Graphs(ctx)
	if err == nil {
		response.Graphs = len(graphs)
		response.Quads, err = s.store.Count(ctx, store.QuadPattern{})
	}
	if err != nil {
		response.Status = "not_ready"
		response.Error = err.Error()
		statusCode = http.StatusServiceUnavailable
	}

	WriteJSON(w, response, statusCode)
}
