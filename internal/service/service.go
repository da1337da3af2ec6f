package service

import (
	"context"
	"errors"

	"SOSDesk/internal/models"
)

var ErrLocationUnknown = errors.New("hospital location not configured")

// PatientSource looks up patient records by sender id.
type PatientSource interface {
	GetPatient(ctx context.Context, userID string) (*models.Patient, error)
}

// CaseStore persists accepted alerts.
type CaseStore interface {
	SaveCase(ctx context.Context, userID, hospitalID string) error
}

// HistorySource lists a hospital's persisted cases.
type HistorySource interface {
	GetHistory(ctx context.Context, hospitalID string) ([]models.HistoryEntry, error)
}

// Replier sends a message back to a patient over the hospital session.
type Replier interface {
	Send(recipientID, content string) error
	SessionID() string
}

// AlertJournal records alert lifecycle events locally. Optional.
type AlertJournal interface {
	Record(ctx context.Context, entry models.JournalEntry) error
}
