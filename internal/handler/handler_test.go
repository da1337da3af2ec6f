package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"SOSDesk/internal/alertstore"
	"SOSDesk/internal/logger"
	"SOSDesk/internal/models"
	"SOSDesk/internal/service"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDesk struct {
	mu         sync.Mutex
	alerts     []models.Alert
	history    []models.HistoryEntry
	acceptErr  error
	connectErr error
	connected  bool
	hospitalID string
	accepted   []string
	connectIDs []string
}

func (d *fakeDesk) Alerts() []models.Alert {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.Alert(nil), d.alerts...)
}

func (d *fakeDesk) AcceptAlert(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accepted = append(d.accepted, id)
	return d.acceptErr
}

func (d *fakeDesk) History() []models.HistoryEntry { return d.history }

func (d *fakeDesk) RefreshHistory(context.Context) ([]models.HistoryEntry, error) {
	return d.history, nil
}

func (d *fakeDesk) Connect(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connectIDs = append(d.connectIDs, id)
	if d.connectErr != nil {
		return d.connectErr
	}
	d.connected = true
	d.hospitalID = id
	return nil
}

func (d *fakeDesk) Disconnect() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = false
}

func (d *fakeDesk) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *fakeDesk) HospitalID() string { return d.hospitalID }

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fakeCounter struct{ counts map[models.JournalEvent]int }

func (c fakeCounter) CountByEvent(context.Context, time.Time) (map[models.JournalEvent]int, error) {
	return c.counts, nil
}

func router(register ...func(*mux.Router)) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	for _, fn := range register {
		fn(api)
	}
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func sampleAlerts() []models.Alert {
	now := time.Now()
	return []models.Alert{
		{LocalID: "a1", SenderID: "42", ReceivedAt: now, Status: models.StatusActive},
		{LocalID: "a2", SenderID: "43", ReceivedAt: now, Status: models.StatusResolving},
		{LocalID: "a3", SenderID: "44", ReceivedAt: now, Status: models.StatusActive},
	}
}

func TestAlertHandler_ListAndGet(t *testing.T) {
	desk := &fakeDesk{alerts: sampleAlerts()}
	r := router(NewAlertHandler(desk, logger.Nop()).RegisterRoutes)

	rec := do(t, r, http.MethodGet, "/api/v1/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []models.Alert
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 3)
	assert.Equal(t, "a1", got[0].LocalID)
	assert.Equal(t, "a3", got[2].LocalID)

	rec = do(t, r, http.MethodGet, "/api/v1/alerts/a2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var one models.Alert
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&one))
	assert.Equal(t, models.StatusResolving, one.Status)

	rec = do(t, r, http.MethodGet, "/api/v1/alerts/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAlertHandler_AcceptStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"ok", nil, http.StatusOK},
		{"not found", alertstore.ErrAlertNotFound, http.StatusNotFound},
		{"already resolving", alertstore.ErrAlreadyResolving, http.StatusConflict},
		{"no location", service.ErrLocationUnknown, http.StatusPreconditionFailed},
		{"backend failure", errors.New("save case: 500"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			desk := &fakeDesk{acceptErr: tc.err}
			r := router(NewAlertHandler(desk, logger.Nop()).RegisterRoutes)

			rec := do(t, r, http.MethodPost, "/api/v1/alerts/a1/accept", "")
			assert.Equal(t, tc.want, rec.Code)
			assert.Equal(t, []string{"a1"}, desk.accepted)
		})
	}
}

func TestAlertHandler_WrapsDomainErrors(t *testing.T) {
	wrapped := errors.Join(errors.New("accept a1"), alertstore.ErrAlreadyResolving)
	assert.Equal(t, http.StatusConflict, statusFor(wrapped))
}

func TestConnectionHandler_Status(t *testing.T) {
	desk := &fakeDesk{
		alerts:     sampleAlerts(),
		history:    []models.HistoryEntry{{Name: "Jane"}, {Name: "John"}},
		connected:  true,
		hospitalID: "7",
	}
	counts := map[models.JournalEvent]int{models.EventReceived: 4, models.EventAccepted: 1}
	h := NewConnectionHandler(desk, "7", true, fakeCounter{counts: counts}, func() int { return 2 }, logger.Nop())
	r := router(h.RegisterRoutes)

	rec := do(t, r, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "7", got.HospitalID)
	assert.True(t, got.Connected)
	assert.Equal(t, 2, got.ActiveAlerts)
	assert.Equal(t, 1, got.ResolvingAlerts)
	assert.Equal(t, 2, got.HistoryCount)
	assert.True(t, got.LocationKnown)
	assert.Equal(t, 2, got.DashboardClients)
	assert.Equal(t, 4, got.JournalLast24h[models.EventReceived])
}

func TestConnectionHandler_ConnectUsesDefaultID(t *testing.T) {
	desk := &fakeDesk{}
	r := router(NewConnectionHandler(desk, "7", false, nil, nil, logger.Nop()).RegisterRoutes)

	rec := do(t, r, http.MethodPost, "/api/v1/connection/connect", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/v1/connection/connect", `{"hospital_id":"9"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []string{"7", "9"}, desk.connectIDs)
	assert.True(t, desk.Connected())

	rec = do(t, r, http.MethodPost, "/api/v1/connection/disconnect", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, desk.Connected())
}

func TestConnectionHandler_ConnectErrors(t *testing.T) {
	desk := &fakeDesk{connectErr: errors.New("dial refused")}
	r := router(NewConnectionHandler(desk, "7", false, nil, nil, logger.Nop()).RegisterRoutes)

	rec := do(t, r, http.MethodPost, "/api/v1/connection/connect", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/v1/connection/connect", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryHandler_Report(t *testing.T) {
	desk := &fakeDesk{
		hospitalID: "7",
		history: []models.HistoryEntry{
			{Name: "Jane Doe", Gender: "female", BloodGroup: "O+", CreatedAt: "2024-03-01T10:00:00Z"},
		},
	}
	r := router(NewHistoryHandler(desk, "St. Mary", logger.Nop()).RegisterRoutes)

	rec := do(t, r, http.MethodGet, "/api/v1/history/report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))

	rec = do(t, r, http.MethodGet, "/api/v1/history?refresh=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []models.HistoryEntry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Jane Doe", rows[0].Name)
}

func TestHealthHandler(t *testing.T) {
	desk := &fakeDesk{connected: true}

	r := router(NewHealthHandler(desk, fakePinger{}, nil, nil, logger.Nop()).RegisterRoutes)
	rec := do(t, r, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "healthy", got.Status)
	assert.Equal(t, models.ServiceDisabled, got.Services["mqtt"])
	assert.Equal(t, models.ServiceUp, got.Services["socket"])

	r = router(NewHealthHandler(desk, fakePinger{err: errors.New("down")}, nil, nil, logger.Nop()).RegisterRoutes)
	rec = do(t, r, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec = do(t, r, http.MethodGet, "/api/v1/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec = do(t, r, http.MethodGet, "/api/v1/health/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
