package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"SOSDesk/internal/alertstore"
	"SOSDesk/internal/models"
	"SOSDesk/internal/service"
)

// Desk is the session surface the operator API drives.
type Desk interface {
	Alerts() []models.Alert
	AcceptAlert(ctx context.Context, localID string) error
	History() []models.HistoryEntry
	RefreshHistory(ctx context.Context) ([]models.HistoryEntry, error)
	Connect(ctx context.Context, hospitalID string) error
	Disconnect()
	Connected() bool
	HospitalID() string
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		return
	}
}

func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, alertstore.ErrAlertNotFound):
		return http.StatusNotFound
	case errors.Is(err, alertstore.ErrAlreadyResolving):
		return http.StatusConflict
	case errors.Is(err, service.ErrLocationUnknown):
		return http.StatusPreconditionFailed
	default:
		return http.StatusBadGateway
	}
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return def
}
