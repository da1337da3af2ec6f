package models

import "time"

type JournalEvent string

const (
	EventReceived     JournalEvent = "received"
	EventAccepted     JournalEvent = "accepted"
	EventAcceptFailed JournalEvent = "accept_failed"
)

// JournalEntry is one line of the local audit trail kept next to the
// backend's own history.
type JournalEntry struct {
	ID          int64        `json:"id"`
	AlertID     string       `json:"alert_id"`
	SenderID    string       `json:"sender_id"`
	HospitalID  string       `json:"hospital_id"`
	Event       JournalEvent `json:"event"`
	PatientName string       `json:"patient_name,omitempty"`
	Detail      string       `json:"detail,omitempty"`
	At          time.Time    `json:"at"`
}
