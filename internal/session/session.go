// Package session ties the socket, ingestion, store and resolution together
// into the one object a hospital desk holds for its lifetime.
package session

import (
	"context"
	"sync"

	"SOSDesk/internal/alertstore"
	"SOSDesk/internal/logger"
	"SOSDesk/internal/metrics"
	"SOSDesk/internal/models"
	"SOSDesk/internal/service"
)

// Connection is the socket side of a session.
type Connection interface {
	Connect(ctx context.Context, sessionID string) error
	Disconnect()
	Connected() bool
	SessionID() string
	SetOnMessage(fn func(models.Frame))
	SetOnStatusChange(fn func(connected bool))
}

type Session struct {
	conn    Connection
	store   *alertstore.Store
	ingest  *service.IngestService
	resolve *service.ResolutionService
	history *service.HistoryService
	metrics *metrics.Metrics
	log     *logger.Logger

	mu        sync.Mutex
	listeners map[int]func(bool)
	nextID    int
}

func New(
	conn Connection,
	store *alertstore.Store,
	ingest *service.IngestService,
	resolve *service.ResolutionService,
	history *service.HistoryService,
	m *metrics.Metrics,
	log *logger.Logger,
) *Session {
	s := &Session{
		conn:      conn,
		store:     store,
		ingest:    ingest,
		resolve:   resolve,
		history:   history,
		metrics:   m,
		log:       log.With("session"),
		listeners: make(map[int]func(bool)),
	}
	conn.SetOnMessage(ingest.HandleFrame)
	conn.SetOnStatusChange(s.statusChanged)
	return s
}

// Connect opens the hospital socket and loads the case history. The history
// is fetched even when the socket fails to open.
func (s *Session) Connect(ctx context.Context, hospitalID string) error {
	err := s.conn.Connect(ctx, hospitalID)
	if err != nil {
		s.log.Error("Connect %s failed: %v", hospitalID, err)
	}
	s.history.Refresh(ctx, hospitalID)
	return err
}

// Disconnect closes the socket. Live alerts and cached patients are kept.
func (s *Session) Disconnect() {
	s.conn.Disconnect()
}

func (s *Session) AcceptAlert(ctx context.Context, localID string) error {
	return s.resolve.Accept(ctx, localID)
}

func (s *Session) Alerts() []models.Alert {
	return s.store.Snapshot()
}

func (s *Session) History() []models.HistoryEntry {
	return s.history.Entries()
}

func (s *Session) RefreshHistory(ctx context.Context) ([]models.HistoryEntry, error) {
	return s.history.Refresh(ctx, s.conn.SessionID())
}

func (s *Session) Connected() bool {
	return s.conn.Connected()
}

func (s *Session) HospitalID() string {
	return s.conn.SessionID()
}

// SubscribeAlerts calls fn with the live alert list after every change.
func (s *Session) SubscribeAlerts(fn func([]models.Alert)) (unsubscribe func()) {
	return s.store.Subscribe(fn)
}

// SubscribeConnectivity calls fn on every connectivity report, including
// redundant ones.
func (s *Session) SubscribeConnectivity(fn func(connected bool)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Close ends the session: the socket is closed, the live set emptied and
// in-flight enrichments drained. Their results are discarded.
func (s *Session) Close() {
	s.conn.Disconnect()
	s.store.Reset()
	s.ingest.Wait()
	s.metrics.SetActiveAlerts(0)
}

func (s *Session) statusChanged(connected bool) {
	s.metrics.SetConnected(connected)
	if connected {
		s.log.Info("Hospital socket up")
	} else {
		s.log.Warn("Hospital socket down")
	}

	s.mu.Lock()
	fns := make([]func(bool), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(connected)
	}
}
