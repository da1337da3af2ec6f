package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SOSDesk/internal/models"
)

// IJournalRepository is the local audit trail of alert lifecycle events.
type IJournalRepository interface {
	Record(ctx context.Context, entry models.JournalEntry) error
	List(ctx context.Context, limit, offset int) ([]models.JournalEntry, error)
	ByAlert(ctx context.Context, alertID string) ([]models.JournalEntry, error)
	CountByEvent(ctx context.Context, since time.Time) (map[models.JournalEvent]int, error)
	DeleteOld(ctx context.Context, olderThan time.Duration) (int64, error)
}

type JournalRepository struct {
	db *sql.DB
}

func NewJournalRepository(db *sql.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// Record appends one event.
func (r *JournalRepository) Record(ctx context.Context, entry models.JournalEntry) error {
	query := `
		INSERT INTO alert_journal (
			alert_id, sender_id, hospital_id, event, patient_name, detail, at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	if entry.At.IsZero() {
		entry.At = time.Now()
	}

	var id int64
	err := r.db.QueryRowContext(
		ctx, query,
		entry.AlertID,
		entry.SenderID,
		entry.HospitalID,
		entry.Event,
		entry.PatientName,
		entry.Detail,
		entry.At,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	return nil
}

// List returns the newest entries first.
func (r *JournalRepository) List(ctx context.Context, limit, offset int) ([]models.JournalEntry, error) {
	query := `
		SELECT id, alert_id, sender_id, hospital_id, event, patient_name, detail, at
		FROM alert_journal
		ORDER BY at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ByAlert returns one alert's events in the order they happened.
func (r *JournalRepository) ByAlert(ctx context.Context, alertID string) ([]models.JournalEntry, error) {
	query := `
		SELECT id, alert_id, sender_id, hospital_id, event, patient_name, detail, at
		FROM alert_journal
		WHERE alert_id = $1
		ORDER BY at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal for alert %s: %w", alertID, err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *JournalRepository) CountByEvent(ctx context.Context, since time.Time) (map[models.JournalEvent]int, error) {
	query := `
		SELECT event, COUNT(*)
		FROM alert_journal
		WHERE at >= $1
		GROUP BY event
	`
	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.JournalEvent]int)
	for rows.Next() {
		var event models.JournalEvent
		var n int
		if err := rows.Scan(&event, &n); err != nil {
			return nil, err
		}
		counts[event] = n
	}
	return counts, rows.Err()
}

// DeleteOld prunes entries older than the given age.
func (r *JournalRepository) DeleteOld(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `DELETE FROM alert_journal WHERE at < $1`
	result, err := r.db.ExecContext(ctx, query, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanEntries(rows *sql.Rows) ([]models.JournalEntry, error) {
	entries := []models.JournalEntry{}
	for rows.Next() {
		var e models.JournalEntry
		err := rows.Scan(
			&e.ID, &e.AlertID, &e.SenderID, &e.HospitalID,
			&e.Event, &e.PatientName, &e.Detail, &e.At,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
