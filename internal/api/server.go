package api

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"sparqld/internal/config"
	"sparqld/internal/engine"
	"sparqld/internal/errors"
	"sparqld/internal/logging"
	"sparqld/internal/results"
	"sparqld/internal/store"
)

// Server represents the SPARQL protocol HTTP server
type Server struct {
	router     *http.ServeMux
	server     *http.Server
	addr       string
	cfg        *config.Config
	logger     *logging.Logger
	store      store.QuadStore
	dispatcher *engine.Dispatcher
	registry   *results.Registry
	metrics    *MetricsCollector
	routes     map[string]bool
	started    time.Time
}

// NewServer creates a new HTTP server instance over st. The result
// registry is built by the caller and shared by reference.
func NewServer(cfg *config.Config, st store.QuadStore, registry *results.Registry, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		addr:     cfg.Addr(),
		cfg:      cfg,
		logger:   logger,
		store:    st,
		registry: registry,
		router:   http.NewServeMux(),
		routes:   make(map[string]bool),
		started:  time.Now(),
	}

	var tracer engine.Tracer = engine.NopTracer{}
	if cfg.Metrics.Enabled {
		s.metrics = NewMetricsCollector()
		tracer = s.metrics
	}
	s.dispatcher = engine.NewDispatcher(logger, tracer)

	s.registerRoutes()

	handler, err := s.applyMiddleware(s.router)
	if err != nil {
		return nil, err
	}
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", map[string]interface{}{
		"addr": s.addr,
	})

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "failed to start server")
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server", nil)

	if err := s.server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "failed to shutdown server")
	}

	s.logger.Info("Server shut down successfully", nil)
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

// applyMiddleware wraps the handler with middleware in the correct order
func (s *Server) applyMiddleware(handler http.Handler) (http.Handler, error) {
	// Apply middleware in reverse order (last one wraps first)
	handler = RecoveryMiddleware(s.logger)(handler)
	if s.cfg.Compression.Enabled {
		compress, err := CompressionMiddleware()
		if err != nil {
			return nil, err
		}
		handler = compress(handler)
	}
	if limits := s.cfg.Limits; limits.RequestsPerSecond > 0 {
		limiter := rate.NewLimiter(rate.Limit(limits.RequestsPerSecond), limits.Burst)
		handler = RateLimitMiddleware(limiter, s.metrics)(handler)
	}
	if s.metrics != nil {
		handler = MetricsMiddleware(s.metrics, s.routeLabel)(handler)
	}
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware()(handler)
	if s.cfg.Server.CORS.Enabled {
		handler = CORSMiddleware(s.cfg.Server.CORS.AllowedOrigins)(handler)
	}
	return handler, nil
}
