package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"SOSDesk/internal/alertstore"
	"SOSDesk/internal/backend"
	"SOSDesk/internal/logger"
	"SOSDesk/internal/metrics"
	"SOSDesk/internal/models"
	"SOSDesk/internal/notify"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

type IngestOptions struct {
	CacheSize     int
	CacheTTL      time.Duration
	EnrichTimeout time.Duration
}

// IngestService turns socket frames into alerts. Each emergency frame is
// listed immediately, in arrival order, and enriched on its own goroutine.
type IngestService struct {
	patients PatientSource
	store    *alertstore.Store
	notifier notify.Notifier
	journal  AlertJournal
	metrics  *metrics.Metrics
	log      *logger.Logger

	cache   *expirable.LRU[string, *models.Patient]
	lookups singleflight.Group
	timeout time.Duration
	now     func() time.Time

	wg sync.WaitGroup
}

func NewIngestService(
	patients PatientSource,
	store *alertstore.Store,
	notifier notify.Notifier,
	journal AlertJournal,
	m *metrics.Metrics,
	opts IngestOptions,
	log *logger.Logger,
) *IngestService {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}
	if opts.EnrichTimeout <= 0 {
		opts.EnrichTimeout = 15 * time.Second
	}
	return &IngestService{
		patients: patients,
		store:    store,
		notifier: notifier,
		journal:  journal,
		metrics:  m,
		log:      log.With("ingest"),
		cache:    expirable.NewLRU[string, *models.Patient](opts.CacheSize, nil, opts.CacheTTL),
		timeout:  opts.EnrichTimeout,
		now:      time.Now,
	}
}

// HandleFrame classifies one inbound frame. It never blocks on the network.
func (s *IngestService) HandleFrame(frame models.Frame) {
	switch {
	case frame.IsNotice():
		s.metrics.Frame("notice")
		s.notifier.Notify(notify.Info("System Message", frame.Detail))
		return
	case !frame.IsEmergency():
		s.metrics.Frame("ignored")
		s.log.Debug("Ignoring frame from %s %q", frame.SenderType, frame.SenderID)
		return
	}

	s.metrics.Frame("emergency")
	alert := models.Alert{
		LocalID:    uuid.NewString(),
		SenderID:   frame.SenderID.String(),
		RawContent: frame.Content,
		ReceivedAt: s.now(),
		Status:     models.StatusActive,
	}

	// Listed right away in arrival order; the patient is attached once known.
	gen := s.store.Generation()
	s.wg.Add(1)
	if err := s.store.InsertIfGeneration(gen, alert); err != nil {
		s.wg.Done()
		s.log.Debug("Dropping alert %s: %v", alert.LocalID, err)
		return
	}
	s.metrics.SetActiveAlerts(s.store.Len())
	s.log.Info("Alert %s from %s queued", alert.LocalID, alert.SenderID)

	go func() {
		defer s.wg.Done()
		s.enrich(gen, alert)
	}()
}

// Wait blocks until every in-flight enrichment has finished.
func (s *IngestService) Wait() {
	s.wg.Wait()
}

// CachedPatients reports how many patient records are cached.
func (s *IngestService) CachedPatients() int {
	return s.cache.Len()
}

func (s *IngestService) enrich(gen uint64, alert models.Alert) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	patient, result, err := s.lookup(ctx, alert.SenderID)
	switch {
	case err == nil:
	case errors.Is(err, backend.ErrNotFound):
		s.log.Warn("No patient record for %s", alert.SenderID)
		s.notifier.Notify(notify.Warning("Warning", "User information not found"))
	default:
		s.log.Error("Patient lookup for %s failed: %v", alert.SenderID, err)
		s.notifier.Notify(notify.Error("Error", "Failed to fetch user information"))
	}
	s.metrics.Enrichment(result, s.now().Sub(alert.ReceivedAt))

	if s.store.Generation() != gen {
		s.log.Debug("Dropping enrichment for %s: store was reset", alert.LocalID)
		return
	}

	listed := true
	if patient != nil {
		alert.Patient = patient
		if _, err := s.store.AttachPatient(gen, alert.LocalID, patient); err != nil {
			s.log.Debug("Patient for %s not attached: %v", alert.LocalID, err)
			if errors.Is(err, alertstore.ErrStaleGeneration) {
				return
			}
			listed = false
		}
	} else {
		_, listed = s.store.Get(alert.LocalID)
	}

	// An alert accepted while its lookup was pending needs no notice.
	if listed {
		s.notifier.Notify(notify.Emergency(alert.LocalID, alert.Summary(s.now())))
	}
	s.record(ctx, alert)
}

func (s *IngestService) lookup(ctx context.Context, userID string) (*models.Patient, string, error) {
	if p, ok := s.cache.Get(userID); ok {
		return p, "hit", nil
	}

	v, err, _ := s.lookups.Do(userID, func() (interface{}, error) {
		if p, ok := s.cache.Get(userID); ok {
			return p, nil
		}
		p, err := s.patients.GetPatient(ctx, userID)
		if err != nil {
			return nil, err
		}
		s.cache.Add(userID, p)
		return p, nil
	})
	switch {
	case err == nil:
		return v.(*models.Patient), "fetched", nil
	case errors.Is(err, backend.ErrNotFound):
		return nil, "not_found", err
	default:
		return nil, "error", err
	}
}

func (s *IngestService) record(ctx context.Context, alert models.Alert) {
	if s.journal == nil {
		return
	}
	entry := models.JournalEntry{
		AlertID:  alert.LocalID,
		SenderID: alert.SenderID,
		Event:    models.EventReceived,
		Detail:   alert.RawContent,
		At:       alert.ReceivedAt,
	}
	if alert.Patient != nil {
		entry.PatientName = alert.Patient.Name
	}
	if err := s.journal.Record(ctx, entry); err != nil {
		s.log.Warn("Journal write failed for %s: %v", alert.LocalID, err)
	}
}
