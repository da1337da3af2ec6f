package handler

import (
	"net/http"

	"SOSDesk/internal/logger"
	"SOSDesk/internal/repository"

	"github.com/gorilla/mux"
)

type JournalHandler struct {
	repo repository.IJournalRepository
	log  *logger.Logger
}

func NewJournalHandler(repo repository.IJournalRepository, log *logger.Logger) *JournalHandler {
	return &JournalHandler{
		repo: repo,
		log:  log,
	}
}

func (h *JournalHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/journal", h.List).Methods("GET")
	r.HandleFunc("/journal/{alert_id}", h.ByAlert).Methods("GET")
}

func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	if limit > 500 {
		limit = 500
	}

	entries, err := h.repo.List(r.Context(), limit, offset)
	if err != nil {
		h.log.Error("Failed to list journal: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (h *JournalHandler) ByAlert(w http.ResponseWriter, r *http.Request) {
	alertID := mux.Vars(r)["alert_id"]

	entries, err := h.repo.ByAlert(r.Context(), alertID)
	if err != nil {
		h.log.Error("Failed to load journal for %s: %v", alertID, err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(entries) == 0 {
		respondError(w, http.StatusNotFound, "no journal entries for alert")
		return
	}
	respondJSON(w, http.StatusOK, entries)
}
