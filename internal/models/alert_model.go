package models

import (
	"fmt"
	"time"
)

type AlertStatus string

const (
	StatusActive    AlertStatus = "active"
	StatusResolving AlertStatus = "resolving"
)

// Alert is one received emergency waiting for an operator. Alerts are values:
// the store hands out copies and replaces entries rather than editing them.
type Alert struct {
	LocalID    string      `json:"local_id"`
	SenderID   string      `json:"sender_id"`
	RawContent string      `json:"raw_content"`
	ReceivedAt time.Time   `json:"received_at"`
	Status     AlertStatus `json:"status"`
	Patient    *Patient    `json:"patient"`
}

// WithStatus returns a copy of the alert carrying status.
func (a Alert) WithStatus(status AlertStatus) Alert {
	a.Status = status
	return a
}

// Summary is the one-line text shown in the emergency notice.
func (a Alert) Summary(now time.Time) string {
	if a.Patient == nil {
		return "Emergency alert from User ID: " + a.SenderID
	}
	if age, ok := a.Patient.AgeOn(now); ok {
		return fmt.Sprintf("Emergency alert from %s (%s, %d years)", a.Patient.Name, a.Patient.Gender, age)
	}
	return fmt.Sprintf("Emergency alert from %s (%s)", a.Patient.Name, a.Patient.Gender)
}
