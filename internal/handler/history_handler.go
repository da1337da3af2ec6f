package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"SOSDesk/internal/logger"
	"SOSDesk/internal/report"

	"github.com/gorilla/mux"
)

type HistoryHandler struct {
	desk         Desk
	hospitalName string
	log          *logger.Logger
}

func NewHistoryHandler(desk Desk, hospitalName string, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{
		desk:         desk,
		hospitalName: hospitalName,
		log:          log,
	}
}

func (h *HistoryHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/history", h.GetHistory).Methods("GET")
	r.HandleFunc("/history/report", h.GetReport).Methods("GET")
}

// GetHistory returns the cached history; ?refresh=true refetches it first.
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		rows, err := h.desk.RefreshHistory(r.Context())
		if err != nil {
			respondError(w, http.StatusBadGateway, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, rows)
		return
	}
	respondJSON(w, http.StatusOK, h.desk.History())
}

func (h *HistoryHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	name := h.hospitalName
	if name == "" {
		name = h.desk.HospitalID()
	}

	var buf bytes.Buffer
	now := time.Now()
	if err := report.WriteHistory(&buf, name, h.desk.History(), now); err != nil {
		h.log.Error("Failed to render history report: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to render report")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="sos-history-%s.pdf"`, now.Format("20060102")))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
