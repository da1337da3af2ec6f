// Package metrics exposes the desk's Prometheus metrics. A nil *Metrics is
// valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sosdesk"

type Metrics struct {
	registry *prometheus.Registry

	framesTotal      *prometheus.CounterVec
	enrichmentsTotal *prometheus.CounterVec
	resolutionsTotal *prometheus.CounterVec
	noticesTotal     *prometheus.CounterVec
	alertsActive     prometheus.Gauge
	socketConnected  prometheus.Gauge
	enrichDuration   prometheus.Histogram

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		framesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Inbound socket frames by kind",
		}, []string{"kind"}),
		enrichmentsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichments_total",
			Help:      "Patient lookups by outcome",
		}, []string{"result"}),
		resolutionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Accept attempts by outcome",
		}, []string{"result"}),
		noticesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notices_total",
			Help:      "Operator notices by level",
		}, []string{"level"}),
		alertsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alerts_active",
			Help:      "Alerts waiting for an operator",
		}),
		socketConnected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "socket_connected",
			Help:      "1 while the hospital socket is open",
		}),
		enrichDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enrichment_duration_seconds",
			Help:      "Time from frame arrival to alert insertion",
			Buckets:   prometheus.DefBuckets,
		}),
		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Operator API requests",
		}, []string{"method", "status"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Operator API request duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

func (m *Metrics) Frame(kind string) {
	if m == nil {
		return
	}
	m.framesTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) Enrichment(result string, took time.Duration) {
	if m == nil {
		return
	}
	m.enrichmentsTotal.WithLabelValues(result).Inc()
	m.enrichDuration.Observe(took.Seconds())
}

func (m *Metrics) Resolution(result string) {
	if m == nil {
		return
	}
	m.resolutionsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) Notice(level string) {
	if m == nil {
		return
	}
	m.noticesTotal.WithLabelValues(level).Inc()
}

func (m *Metrics) SetActiveAlerts(n int) {
	if m == nil {
		return
	}
	m.alertsActive.Set(float64(n))
}

func (m *Metrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.socketConnected.Set(1)
	} else {
		m.socketConnected.Set(0)
	}
}

func (m *Metrics) HTTPRequest(method string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method).Observe(took.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
