package server

import (
	"context"
	"fmt"
	"net/http"

	"SOSDesk/internal/config"
	"SOSDesk/internal/handler"
	"SOSDesk/internal/logger"
	"SOSDesk/internal/metrics"
	"SOSDesk/internal/middleware"
	"SOSDesk/internal/websocket"

	"github.com/gorilla/mux"
)

type Server struct {
	httpServer *http.Server
	router     *mux.Router
	cfg        *config.Config
	metrics    *metrics.Metrics
	log        *logger.Logger
}

func New(cfg *config.Config, m *metrics.Metrics, log *logger.Logger) *Server {
	router := mux.NewRouter()

	server := &Server{
		router:  router,
		cfg:     cfg,
		metrics: m,
		log:     log,
		httpServer: &http.Server{
			Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:        router,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		},
	}

	return server
}

// Router exposes the mux for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

// RegisterHandlers mounts the operator API under /api/v1. journalHandler may
// be nil when the journal is disabled.
func (s *Server) RegisterHandlers(
	alertHandler *handler.AlertHandler,
	historyHandler *handler.HistoryHandler,
	connectionHandler *handler.ConnectionHandler,
	journalHandler *handler.JournalHandler,
	healthHandler *handler.HealthHandler,
	hub *websocket.Hub,
) {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.Use(middleware.RequestLogger(s.log, s.metrics))
	api.Use(middleware.CORS(s.cfg.Security))
	api.Use(middleware.Recovery(s.log))

	if s.cfg.Security.EnableRateLimit {
		api.Use(middleware.RateLimit(s.cfg.Security.RateLimitPerMinute))
	}

	alertHandler.RegisterRoutes(api)
	historyHandler.RegisterRoutes(api)
	connectionHandler.RegisterRoutes(api)
	if journalHandler != nil {
		journalHandler.RegisterRoutes(api)
	}
	healthHandler.RegisterRoutes(s.router)

	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	s.router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		websocket.ServeWs(hub, w, r, s.log)
	})

	s.log.Info("All handlers registered")
}

func (s *Server) Start() error {
	s.log.Info("Starting HTTP server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}
