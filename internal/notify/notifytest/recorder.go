// Package notifytest provides a notifier that records notices for tests.
package notifytest

import (
	"sync"

	"SOSDesk/internal/notify"
)

// Recorder keeps every notice it receives.
type Recorder struct {
	mu      sync.Mutex
	notices []notify.Notice
}

func (r *Recorder) Notify(n notify.Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

func (r *Recorder) Notices() []notify.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notice(nil), r.notices...)
}

// Count returns how many recorded notices have the given level.
func (r *Recorder) Count(level notify.Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, notice := range r.notices {
		if notice.Level == level {
			n++
		}
	}
	return n
}
