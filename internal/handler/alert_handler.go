package handler

import (
	"net/http"

	"SOSDesk/internal/logger"

	"github.com/gorilla/mux"
)

type AlertHandler struct {
	desk Desk
	log  *logger.Logger
}

func NewAlertHandler(desk Desk, log *logger.Logger) *AlertHandler {
	return &AlertHandler{
		desk: desk,
		log:  log,
	}
}

func (h *AlertHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/alerts", h.GetAlerts).Methods("GET")
	r.HandleFunc("/alerts/{id}", h.GetAlert).Methods("GET")
	r.HandleFunc("/alerts/{id}/accept", h.Accept).Methods("POST")
}

// GetAlerts lists live alerts in arrival order.
func (h *AlertHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.desk.Alerts())
}

func (h *AlertHandler) GetAlert(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	for _, a := range h.desk.Alerts() {
		if a.LocalID == id {
			respondJSON(w, http.StatusOK, a)
			return
		}
	}
	respondError(w, http.StatusNotFound, "alert not found")
}

// Accept resolves an alert. Failures leave it active and may be retried.
func (h *AlertHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.desk.AcceptAlert(r.Context(), id); err != nil {
		code := statusFor(err)
		if code >= 500 {
			h.log.Error("Failed to accept alert %s: %v", id, err)
		}
		respondError(w, code, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Emergency alert has been accepted and location sent.",
		"id":      id,
	})
}
