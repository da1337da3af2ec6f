package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Frame("emergency")
		m.Enrichment("fetched", time.Millisecond)
		m.Resolution("accepted")
		m.Notice("info")
		m.SetActiveAlerts(3)
		m.SetConnected(true)
		m.HTTPRequest("GET", 200, time.Millisecond)
	})
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCounters(t *testing.T) {
	m := New()
	m.Frame("emergency")
	m.Frame("emergency")
	m.Frame("notice")
	m.SetActiveAlerts(2)
	m.SetConnected(true)

	body := scrape(t, m)
	assert.Contains(t, body, `sosdesk_frames_total{kind="emergency"} 2`)
	assert.Contains(t, body, `sosdesk_frames_total{kind="notice"} 1`)
	assert.Contains(t, body, "sosdesk_alerts_active 2")
	assert.Contains(t, body, "sosdesk_socket_connected 1")
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.Resolution("accepted")

	assert.Contains(t, scrape(t, m), `sosdesk_resolutions_total{result="accepted"} 1`)
}
