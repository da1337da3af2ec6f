package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"SOSDesk/internal/logger"
	"SOSDesk/internal/models"

	"github.com/gorilla/mux"
)

// EventCounter summarises journal activity. Optional.
type EventCounter interface {
	CountByEvent(ctx context.Context, since time.Time) (map[models.JournalEvent]int, error)
}

type ConnectionHandler struct {
	desk          Desk
	defaultID     string
	locationKnown bool
	journal       EventCounter
	clients       func() int
	log           *logger.Logger
}

func NewConnectionHandler(desk Desk, defaultID string, locationKnown bool, journal EventCounter, clients func() int, log *logger.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		desk:          desk,
		defaultID:     defaultID,
		locationKnown: locationKnown,
		journal:       journal,
		clients:       clients,
		log:           log,
	}
}

func (h *ConnectionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/status", h.Status).Methods("GET")
	r.HandleFunc("/connection/connect", h.Connect).Methods("POST")
	r.HandleFunc("/connection/disconnect", h.Disconnect).Methods("POST")
}

func (h *ConnectionHandler) Status(w http.ResponseWriter, r *http.Request) {
	alerts := h.desk.Alerts()
	resp := models.StatusResponse{
		HospitalID:    h.desk.HospitalID(),
		Connected:     h.desk.Connected(),
		HistoryCount:  len(h.desk.History()),
		LocationKnown: h.locationKnown,
	}
	if resp.HospitalID == "" {
		resp.HospitalID = h.defaultID
	}
	for _, a := range alerts {
		if a.Status == models.StatusResolving {
			resp.ResolvingAlerts++
		} else {
			resp.ActiveAlerts++
		}
	}
	if h.clients != nil {
		resp.DashboardClients = h.clients()
	}
	if h.journal != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		counts, err := h.journal.CountByEvent(ctx, time.Now().Add(-24*time.Hour))
		if err != nil {
			h.log.Warn("Journal counts unavailable: %v", err)
		} else {
			resp.JournalLast24h = counts
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

type connectRequest struct {
	HospitalID string `json:"hospital_id"`
}

// Connect opens the hospital socket. An empty body uses the configured id.
func (h *ConnectionHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.HospitalID == "" {
		req.HospitalID = h.defaultID
	}

	if err := h.desk.Connect(r.Context(), req.HospitalID); err != nil {
		h.log.Error("Connect request for %s failed: %v", req.HospitalID, err)
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"connected":   true,
		"hospital_id": req.HospitalID,
	})
}

func (h *ConnectionHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.desk.Disconnect()
	respondJSON(w, http.StatusOK, map[string]bool{"connected": false})
}
