package api

import (
	"net/http"

	"sparqld/internal/version"
)

// SPARQLPath is the protocol endpoint.
const SPARQLPath = "/sparql"

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	// Health and readiness checks
	s.handle("/health", http.HandlerFunc(s.handleHealth))
	s.handle("/ready", http.HandlerFunc(s.handleReady))

	// SPARQL protocol
	s.handle(SPARQLPath, http.HandlerFunc(s.handleSPARQL))

	if s.metrics != nil {
		s.handle(s.metricsPath(), s.metrics.Handler())
	}

	// Root endpoint
	s.router.HandleFunc("/", s.handleRoot)
}

func (s *Server) handle(path string, h http.Handler) {
	s.routes[path] = true
	s.router.Handle(path, h)
}

func (s *Server) metricsPath() string {
	if s.cfg.Metrics.Path != "" {
		return s.cfg.Metrics.Path
	}
	return "/metrics"
}

// routeLabel bounds metric label cardinality to the registered routes.
func (s *Server) routeLabel(path string) string {
	if s.routes[path] || path == "/" {
		return path
	}
	return "other"
}

// handleRoot handles requests to the root path
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	// Only handle exact root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	endpoints := []string{
		"GET /sparql?query=... - Evaluate a query",
		"GET /sparql - Service description",
		"POST /sparql - Evaluate a query (application/sparql-query or form)",
		"GET /health - Health check",
		"GET /ready - Readiness check",
	}
	if s.metrics != nil {
		endpoints = append(endpoints, "GET "+s.metricsPath()+" - Prometheus metrics")
	}

	response := map[string]interface{}{
		"name":      "sparqld",
		"version":   version.Info(),
		"endpoints": endpoints,
	}

	WriteJSON(w, response, http.StatusOK)
}
