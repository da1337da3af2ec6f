package service

import (
	"context"
	"sync"
	"time"

	"SOSDesk/internal/logger"
	"SOSDesk/internal/models"
	"SOSDesk/internal/notify"
)

// HistoryService keeps the last fetched case history for the hospital.
type HistoryService struct {
	source   HistorySource
	notifier notify.Notifier
	log      *logger.Logger

	mu        sync.RWMutex
	entries   []models.HistoryEntry
	fetchedAt time.Time
	listeners []func([]models.HistoryEntry)
}

func NewHistoryService(source HistorySource, notifier notify.Notifier, log *logger.Logger) *HistoryService {
	return &HistoryService{
		source:   source,
		notifier: notifier,
		log:      log.With("history"),
		entries:  []models.HistoryEntry{},
	}
}

// Refresh refetches the history. On failure the view is emptied and an error
// notice raised.
func (s *HistoryService) Refresh(ctx context.Context, hospitalID string) ([]models.HistoryEntry, error) {
	rows, err := s.source.GetHistory(ctx, hospitalID)
	if err != nil {
		s.log.Error("Fetching history for %s failed: %v", hospitalID, err)
		s.notifier.Notify(notify.Error("Error", "Failed to fetch emergency history"))
		rows = []models.HistoryEntry{}
	}

	s.mu.Lock()
	s.entries = rows
	s.fetchedAt = time.Now()
	listeners := append([]func([]models.HistoryEntry){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(rows)
	}
	return rows, err
}

func (s *HistoryService) Entries() []models.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.HistoryEntry{}, s.entries...)
}

func (s *HistoryService) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

// OnUpdate registers a callback run after each refresh.
func (s *HistoryService) OnUpdate(fn func([]models.HistoryEntry)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}
