// Package notify carries operator-facing notices: the toasts the dashboard
// shows and the pages sent to ward devices.
package notify

import (
	"sync"
	"time"

	"SOSDesk/internal/logger"

	"github.com/google/uuid"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Display durations used by the dashboard. Sticky notices ignore them.
const (
	ShortDuration = 3 * time.Second
	LongDuration  = 5 * time.Second
)

type Notice struct {
	ID       string        `json:"id"`
	Level    Level         `json:"level"`
	Title    string        `json:"title"`
	Message  string        `json:"message"`
	Sticky   bool          `json:"sticky"`
	Duration time.Duration `json:"duration"`
	// AlertID links emergency notices to the alert they announce.
	AlertID string    `json:"alert_id,omitempty"`
	At      time.Time `json:"at"`
}

func newNotice(level Level, title, message string, d time.Duration) Notice {
	return Notice{
		ID:       uuid.NewString(),
		Level:    level,
		Title:    title,
		Message:  message,
		Duration: d,
		At:       time.Now(),
	}
}

func Info(title, message string) Notice {
	return newNotice(LevelInfo, title, message, LongDuration)
}

func Success(title, message string) Notice {
	return newNotice(LevelSuccess, title, message, ShortDuration)
}

func Warning(title, message string) Notice {
	return newNotice(LevelWarning, title, message, LongDuration)
}

func Error(title, message string) Notice {
	return newNotice(LevelError, title, message, ShortDuration)
}

// Emergency is an error-level notice that stays until dismissed.
func Emergency(alertID, message string) Notice {
	n := newNotice(LevelError, "New Emergency Alert", message, 0)
	n.Sticky = true
	n.AlertID = alertID
	return n
}

type Notifier interface {
	Notify(n Notice)
}

// Func adapts a plain function to Notifier.
type Func func(Notice)

func (f Func) Notify(n Notice) { f(n) }

// LogNotifier writes notices to the log at the matching level.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log.With("notice")}
}

func (l *LogNotifier) Notify(n Notice) {
	switch n.Level {
	case LevelError:
		l.log.Error("%s: %s", n.Title, n.Message)
	case LevelWarning:
		l.log.Warn("%s: %s", n.Title, n.Message)
	default:
		l.log.Info("%s: %s", n.Title, n.Message)
	}
}

// Multi fans a notice out to several notifiers. Targets can be added after
// construction, so late-starting transports can join.
type Multi struct {
	mu      sync.RWMutex
	targets []Notifier
}

func NewMulti(targets ...Notifier) *Multi {
	return &Multi{targets: targets}
}

func (m *Multi) Add(n Notifier) {
	if n == nil {
		return
	}
	m.mu.Lock()
	m.targets = append(m.targets, n)
	m.mu.Unlock()
}

func (m *Multi) Notify(n Notice) {
	m.mu.RLock()
	targets := append([]Notifier(nil), m.targets...)
	m.mu.RUnlock()
	for _, t := range targets {
		t.Notify(n)
	}
}
