// Package alertstore holds the alerts that are still waiting for an operator.
//
// Membership changes only through Insert, BeginResolve/Revert and Remove;
// AttachPatient fills in enrichment on an alert already listed.
// Every call that targets an existing alert re-checks that the alert is still
// present, so a late caller becomes a no-op instead of corrupting the list.
package alertstore

import (
	"errors"
	"sync"

	"SOSDesk/internal/models"
)

var (
	ErrAlertNotFound    = errors.New("alert not found")
	ErrAlreadyResolving = errors.New("alert is already being resolved")
	ErrStaleGeneration  = errors.New("store was reset")
)

// Listener receives a snapshot after each change. Snapshots arrive in change
// order; one superseded by a later change before delivery is skipped.
// Listeners must not modify the store.
type Listener func(alerts []models.Alert)

type Store struct {
	mu         sync.RWMutex
	alerts     []models.Alert
	generation uint64
	version    uint64

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int

	publishMu sync.Mutex
	delivered uint64
}

func New() *Store {
	return &Store{listeners: make(map[int]Listener)}
}

// Generation identifies the current store lifetime. It changes on Reset.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Insert appends an alert.
func (s *Store) Insert(alert models.Alert) {
	s.mu.Lock()
	s.alerts = append(s.alerts, alert)
	v, snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(v, snap)
}

// InsertIfGeneration appends the alert only if the store has not been reset
// since gen was read.
func (s *Store) InsertIfGeneration(gen uint64, alert models.Alert) error {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return ErrStaleGeneration
	}
	s.alerts = append(s.alerts, alert)
	v, snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(v, snap)
	return nil
}

// AttachPatient sets the patient on a stored alert by replacing it with an
// updated copy. It is a no-op when the store was reset since gen was read or
// the alert is gone.
func (s *Store) AttachPatient(gen uint64, localID string, patient *models.Patient) (models.Alert, error) {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return models.Alert{}, ErrStaleGeneration
	}
	i := s.indexOf(localID)
	if i < 0 {
		s.mu.Unlock()
		return models.Alert{}, ErrAlertNotFound
	}
	updated := s.alerts[i]
	updated.Patient = patient
	s.alerts[i] = updated
	v, snap := s.changedLocked()
	s.mu.Unlock()

	s.publish(v, snap)
	return updated, nil
}

// BeginResolve moves an active alert to resolving and returns the updated copy.
func (s *Store) BeginResolve(localID string) (models.Alert, error) {
	s.mu.Lock()
	i := s.indexOf(localID)
	if i < 0 {
		s.mu.Unlock()
		return models.Alert{}, ErrAlertNotFound
	}
	if s.alerts[i].Status == models.StatusResolving {
		s.mu.Unlock()
		return models.Alert{}, ErrAlreadyResolving
	}
	updated := s.alerts[i].WithStatus(models.StatusResolving)
	s.alerts[i] = updated
	v, snap := s.changedLocked()
	s.mu.Unlock()

	s.publish(v, snap)
	return updated, nil
}

// Revert puts a resolving alert back to active. Missing ids are ignored.
func (s *Store) Revert(localID string) bool {
	s.mu.Lock()
	i := s.indexOf(localID)
	if i < 0 || s.alerts[i].Status != models.StatusResolving {
		s.mu.Unlock()
		return false
	}
	s.alerts[i] = s.alerts[i].WithStatus(models.StatusActive)
	v, snap := s.changedLocked()
	s.mu.Unlock()

	s.publish(v, snap)
	return true
}

// Remove deletes an alert by local id and reports whether it was present.
func (s *Store) Remove(localID string) bool {
	s.mu.Lock()
	i := s.indexOf(localID)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	next := make([]models.Alert, 0, len(s.alerts)-1)
	next = append(next, s.alerts[:i]...)
	next = append(next, s.alerts[i+1:]...)
	s.alerts = next
	v, snap := s.changedLocked()
	s.mu.Unlock()

	s.publish(v, snap)
	return true
}

// Reset drops every alert and invalidates pending InsertIfGeneration calls.
func (s *Store) Reset() {
	s.mu.Lock()
	s.alerts = nil
	s.generation++
	v, snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(v, snap)
}

func (s *Store) Get(localID string) (models.Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(localID); i >= 0 {
		return s.alerts[i], true
	}
	return models.Alert{}, false
}

// Snapshot returns a copy safe to iterate while the store keeps changing.
func (s *Store) Snapshot() []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

func (s *Store) copyLocked() []models.Alert {
	out := make([]models.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// changedLocked bumps the version and captures the matching snapshot.
// Caller holds s.mu for writing.
func (s *Store) changedLocked() (uint64, []models.Alert) {
	s.version++
	return s.version, s.copyLocked()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alerts)
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

func (s *Store) indexOf(localID string) int {
	for i := range s.alerts {
		if s.alerts[i].LocalID == localID {
			return i
		}
	}
	return -1
}

func (s *Store) publish(version uint64, snap []models.Alert) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	if version <= s.delivered {
		return
	}
	s.delivered = version

	s.listenersMu.Lock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
