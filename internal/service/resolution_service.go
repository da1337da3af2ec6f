package service

import (
	"context"
	"fmt"
	"time"

	"SOSDesk/internal/alertstore"
	"SOSDesk/internal/logger"
	"SOSDesk/internal/metrics"
	"SOSDesk/internal/models"
	"SOSDesk/internal/notify"
)

// ResolutionService accepts alerts: persist the case, send the patient a map
// link to the hospital and drop the alert from the live set.
type ResolutionService struct {
	store    *alertstore.Store
	cases    CaseStore
	replier  Replier
	history  *HistoryService
	notifier notify.Notifier
	journal  AlertJournal
	metrics  *metrics.Metrics
	location *models.Location
	log      *logger.Logger
}

func NewResolutionService(
	store *alertstore.Store,
	cases CaseStore,
	replier Replier,
	history *HistoryService,
	notifier notify.Notifier,
	journal AlertJournal,
	m *metrics.Metrics,
	location *models.Location,
	log *logger.Logger,
) *ResolutionService {
	return &ResolutionService{
		store:    store,
		cases:    cases,
		replier:  replier,
		history:  history,
		notifier: notifier,
		journal:  journal,
		metrics:  m,
		location: location,
		log:      log.With("resolve"),
	}
}

// Accept resolves one alert. Only the first of several concurrent callers for
// the same alert persists anything; the rest get alertstore.ErrAlreadyResolving.
// A persistence failure puts the alert back to active so it can be retried.
func (s *ResolutionService) Accept(ctx context.Context, localID string) error {
	if s.location == nil {
		s.metrics.Resolution("rejected")
		s.notifier.Notify(notify.Error("Error", "Hospital location information not found"))
		return ErrLocationUnknown
	}

	alert, err := s.store.BeginResolve(localID)
	if err != nil {
		s.metrics.Resolution("rejected")
		return fmt.Errorf("accept alert %s: %w", localID, err)
	}

	hospitalID := s.replier.SessionID()
	if err := s.cases.SaveCase(ctx, alert.SenderID, hospitalID); err != nil {
		s.store.Revert(localID)
		s.metrics.Resolution("failed")
		s.log.Error("Persisting alert %s failed: %v", localID, err)
		s.notifier.Notify(notify.Error("Error", "Failed to accept the alert. Please try again."))
		s.record(ctx, alert, hospitalID, models.EventAcceptFailed, err.Error())
		return fmt.Errorf("accept alert %s: %w", localID, err)
	}

	link := s.location.MapLink()
	if err := s.replier.Send(alert.SenderID, link); err != nil {
		s.log.Warn("Location for alert %s not delivered: %v", localID, err)
	}

	s.store.Remove(localID)
	s.metrics.SetActiveAlerts(s.store.Len())
	s.metrics.Resolution("accepted")
	s.log.Info("Alert %s from %s accepted", localID, alert.SenderID)

	if s.history != nil {
		s.history.Refresh(ctx, hospitalID)
	}
	s.notifier.Notify(notify.Success("Alert Accepted", "Emergency alert has been accepted and location sent."))
	s.record(ctx, alert, hospitalID, models.EventAccepted, link)
	return nil
}

func (s *ResolutionService) record(ctx context.Context, alert models.Alert, hospitalID string, event models.JournalEvent, detail string) {
	if s.journal == nil {
		return
	}
	entry := models.JournalEntry{
		AlertID:    alert.LocalID,
		SenderID:   alert.SenderID,
		HospitalID: hospitalID,
		Event:      event,
		Detail:     detail,
		At:         time.Now(),
	}
	if alert.Patient != nil {
		entry.PatientName = alert.Patient.Name
	}
	if err := s.journal.Record(ctx, entry); err != nil {
		s.log.Warn("Journal write failed for %s: %v", alert.LocalID, err)
	}
}
