// internal/models/models.go

package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Sender / recipient types on the wire.
const (
	PartyUser     = "user"
	PartyHospital = "hospital"
)

// ID is an identifier that the backend sometimes sends as a JSON number.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Frame is one inbound message on the hospital socket. It is either a system
// notice (Detail set) or an emergency payload from a user.
type Frame struct {
	Detail     string `json:"detail,omitempty"`
	Content    string `json:"content,omitempty"`
	SenderType string `json:"sender_type,omitempty"`
	SenderID   ID     `json:"sender_id,omitempty"`
}

func (f Frame) IsNotice() bool {
	return f.Detail != ""
}

func (f Frame) IsEmergency() bool {
	return f.Content != "" && f.SenderType == PartyUser
}

// Envelope is the outbound message shape.
type Envelope struct {
	SenderType    string `json:"sender_type"`
	SenderID      string `json:"sender_id"`
	RecipientType string `json:"recipient_type"`
	RecipientID   string `json:"recipient_id"`
	Content       string `json:"content"`
}

// Patient is the user record returned by the backend's user-info endpoint.
type Patient struct {
	ID                ID     `json:"id"`
	Name              string `json:"name"`
	Gender            string `json:"gender"`
	BirthDate         string `json:"birthDate"`
	PhoneNumber       string `json:"phoneNumber"`
	Address           string `json:"address"`
	BloodGroup        string `json:"bloodGroup"`
	MedicalConditions string `json:"medicalConditions,omitempty"`
	Allergies         string `json:"allergies,omitempty"`
}

// UnmarshalJSON accepts the legacy "borndate" key as well as "birthDate".
func (p *Patient) UnmarshalJSON(b []byte) error {
	type plain Patient
	var raw struct {
		plain
		BornDate string `json:"borndate"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*p = Patient(raw.plain)
	if p.BirthDate == "" {
		p.BirthDate = raw.BornDate
	}
	return nil
}

var birthDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02/01/2006",
}

// AgeOn returns the patient's age in whole years at now, or false when the
// birth date is missing or unparsable.
func (p *Patient) AgeOn(now time.Time) (int, bool) {
	if p == nil || p.BirthDate == "" {
		return 0, false
	}
	var born time.Time
	var err error
	for _, layout := range birthDateLayouts {
		if born, err = time.Parse(layout, p.BirthDate); err == nil {
			break
		}
	}
	if err != nil {
		return 0, false
	}

	age := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		age--
	}
	return age, true
}

// HistoryEntry is one durable SOS case as returned by the history endpoint.
type HistoryEntry struct {
	SOSID       ID     `json:"sos_id"`
	UserID      ID     `json:"user_id,omitempty"`
	Name        string `json:"name"`
	Gender      string `json:"gender"`
	BirthDate   string `json:"borndate"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
	BloodGroup  string `json:"bloodGroup"`
	Details     string `json:"details,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// Age reuses the patient age rule for a history row.
func (h HistoryEntry) Age(now time.Time) (int, bool) {
	p := Patient{BirthDate: h.BirthDate}
	return p.AgeOn(now)
}

// Location is the hospital's own position.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// MapLink renders the location as a maps URL the patient can open.
func (l Location) MapLink() string {
	return "https://www.google.com/maps?q=" +
		strconv.FormatFloat(l.Latitude, 'f', -1, 64) + "," +
		strconv.FormatFloat(l.Longitude, 'f', -1, 64)
}

// Service states reported by the health endpoint.
const (
	ServiceUp       = "up"
	ServiceDown     = "down"
	ServiceDisabled = "disabled"
)

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// StatusResponse backs the dashboard header: connectivity and counters.
type StatusResponse struct {
	HospitalID       string               `json:"hospital_id"`
	Connected        bool                 `json:"connected"`
	ActiveAlerts     int                  `json:"active_alerts"`
	ResolvingAlerts  int                  `json:"resolving_alerts"`
	HistoryCount     int                  `json:"history_count"`
	LocationKnown    bool                 `json:"location_known"`
	JournalLast24h   map[JournalEvent]int `json:"journal_last_24h,omitempty"`
	DashboardClients int                  `json:"dashboard_clients"`
}
