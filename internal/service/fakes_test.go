package service

import (
	"context"
	"errors"
	"sync"

	"SOSDesk/internal/backend"
	"SOSDesk/internal/models"
)

var errTransport = errors.New("connection refused")

type fakePatients struct {
	mu      sync.Mutex
	calls   map[string]int
	records map[string]*models.Patient
	fail    error
	gate    chan struct{}
	gates   map[string]chan struct{}
}

func newFakePatients() *fakePatients {
	return &fakePatients{
		calls:   map[string]int{},
		records: map[string]*models.Patient{},
		gates:   map[string]chan struct{}{},
	}
}

func (f *fakePatients) GetPatient(ctx context.Context, userID string) (*models.Patient, error) {
	f.mu.Lock()
	f.calls[userID]++
	gate := f.gate
	if g, ok := f.gates[userID]; ok {
		gate = g
	}
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	p, ok := f.records[userID]
	if !ok {
		return nil, backend.ErrNotFound
	}
	return p, nil
}

func (f *fakePatients) Calls(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[userID]
}

type saved struct{ userID, hospitalID string }

type fakeCases struct {
	mu    sync.Mutex
	saves []saved
	fail  error
	gate  chan struct{}
}

func (f *fakeCases) SaveCase(ctx context.Context, userID, hospitalID string) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.saves = append(f.saves, saved{userID, hospitalID})
	return nil
}

func (f *fakeCases) Saves() []saved {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]saved(nil), f.saves...)
}

type sent struct{ recipient, content string }

type fakeReplier struct {
	mu        sync.Mutex
	session   string
	connected bool
	sent      []sent
}

func (f *fakeReplier) Send(recipientID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return errors.New("socket not connected")
	}
	f.sent = append(f.sent, sent{recipientID, content})
	return nil
}

func (f *fakeReplier) SessionID() string { return f.session }

func (f *fakeReplier) Sent() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.sent...)
}

type fakeHistory struct {
	mu    sync.Mutex
	calls int
	rows  []models.HistoryEntry
	fail  error
}

func (f *fakeHistory) GetHistory(ctx context.Context, hospitalID string) ([]models.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}
	return f.rows, nil
}

func (f *fakeHistory) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type memJournal struct {
	mu      sync.Mutex
	entries []models.JournalEntry
}

func (j *memJournal) Record(ctx context.Context, e models.JournalEntry) error {
	j.mu.Lock()
	j.entries = append(j.entries, e)
	j.mu.Unlock()
	return nil
}

func (j *memJournal) Events() []models.JournalEvent {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]models.JournalEvent, len(j.entries))
	for i, e := range j.entries {
		out[i] = e.Event
	}
	return out
}
