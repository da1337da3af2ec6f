package handler

import (
	"context"
	"net/http"
	"time"

	"SOSDesk/internal/logger"
	"SOSDesk/internal/models"

	"github.com/gorilla/mux"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker interface {
	Health(ctx context.Context) error
}

type BrokerStatus interface {
	IsConnected() bool
}

// HealthHandler reports on the socket, the backend and the optional broker
// and journal. Nil optional dependencies are reported as disabled.
type HealthHandler struct {
	desk    Desk
	backend Pinger
	broker  BrokerStatus
	journal HealthChecker
	log     *logger.Logger
}

func NewHealthHandler(desk Desk, backend Pinger, broker BrokerStatus, journal HealthChecker, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		desk:    desk,
		backend: backend,
		broker:  broker,
		journal: journal,
		log:     log,
	}
}

func (h *HealthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/health/live", h.Liveness).Methods("GET")
	r.HandleFunc("/health/ready", h.Readiness).Methods("GET")
}

func state(ok bool) string {
	if ok {
		return models.ServiceUp
	}
	return models.ServiceDown
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Services: map[string]string{
			"socket":  state(h.desk.Connected()),
			"backend": state(h.backend.Ping(ctx) == nil),
			"mqtt":    models.ServiceDisabled,
			"journal": models.ServiceDisabled,
		},
	}
	if h.broker != nil {
		response.Services["mqtt"] = state(h.broker.IsConnected())
	}
	if h.journal != nil {
		response.Services["journal"] = state(h.journal.Health(ctx) == nil)
	}

	for _, s := range response.Services {
		if s == models.ServiceDown {
			response.Status = "degraded"
		}
	}

	statusCode := http.StatusOK
	if response.Status == "degraded" {
		h.log.Warn("Health check degraded: %v", response.Services)
		statusCode = http.StatusServiceUnavailable
	}

	respondJSON(w, statusCode, response)
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "alive",
	})
}

// Readiness only needs the backend: an operator may keep the socket closed on purpose.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.backend.Ping(ctx); err != nil {
		h.log.Warn("Readiness check failed - backend: %v", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
