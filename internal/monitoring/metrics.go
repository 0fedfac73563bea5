package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive    prometheus.Gauge
	SessionsCreated   prometheus.Counter
	SessionsSaved     prometheus.Counter
	SessionsRestored  prometheus.Counter
	SessionsReclaimed *prometheus.CounterVec

	// SavedSession metrics
	SavedSessions prometheus.Gauge

	// Peer connection metrics
	PeersActive prometheus.Gauge
	Offers      prometheus.Counter
	Candidates  *prometheus.CounterVec

	// Streaming metrics
	Frames *prometheus.CounterVec

	// Interaction metrics
	Interactions *prometheus.CounterVec

	// Bridge metrics
	BridgeTimeouts prometheus.Counter

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a metrics collector on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates a metrics collector on a specific registerer.
// Tests use this with a fresh registry to avoid duplicate registration.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_sessions_active",
				Help: "Number of live browser sessions",
			},
		),
		SessionsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_sessions_created_total",
				Help: "Total number of sessions created",
			},
		),
		SessionsSaved: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_sessions_saved_total",
				Help: "Total number of sessions saved",
			},
		),
		SessionsRestored: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_sessions_restored_total",
				Help: "Total number of sessions restored",
			},
		),
		SessionsReclaimed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_sessions_reclaimed_total",
				Help: "Total number of sessions reclaimed by the janitor",
			},
			[]string{"reason"},
		),

		SavedSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_saved_sessions",
				Help: "Number of stored session snapshots",
			},
		),

		PeersActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_peer_connections_active",
				Help: "Number of tracked peer connections",
			},
		),
		Offers: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_webrtc_offers_total",
				Help: "Total number of accepted signaling offers",
			},
		),
		Candidates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_webrtc_candidates_total",
				Help: "Total number of ICE candidates received",
			},
			[]string{"result"},
		),

		Frames: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_stream_frames_total",
				Help: "Total number of streamed frames",
			},
			[]string{"result"},
		),

		Interactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_interactions_total",
				Help: "Total number of data-channel interactions",
			},
			[]string{"type"},
		),

		BridgeTimeouts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_bridge_timeouts_total",
				Help: "Total number of bridge calls that exceeded their deadline",
			},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_uptime_seconds",
				Help: "Backend uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// SetSessionsActive updates the live session gauge
func (m *Metrics) SetSessionsActive(n int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(n))
}

// SetSavedSessions updates the stored snapshot gauge
func (m *Metrics) SetSavedSessions(n int) {
	if m == nil {
		return
	}
	m.SavedSessions.Set(float64(n))
}

// SetPeersActive updates the peer connection gauge
func (m *Metrics) SetPeersActive(n int) {
	if m == nil {
		return
	}
	m.PeersActive.Set(float64(n))
}

// IncSessionsCreated records a session creation
func (m *Metrics) IncSessionsCreated() {
	if m == nil {
		return
	}
	m.SessionsCreated.Inc()
}

// IncSessionsSaved records a session save
func (m *Metrics) IncSessionsSaved() {
	if m == nil {
		return
	}
	m.SessionsSaved.Inc()
}

// IncSessionsRestored records a session restore
func (m *Metrics) IncSessionsRestored() {
	if m == nil {
		return
	}
	m.SessionsRestored.Inc()
}

// RecordReclaim records a janitor reclamation with its reason
func (m *Metrics) RecordReclaim(reason string) {
	if m == nil {
		return
	}
	m.SessionsReclaimed.WithLabelValues(reason).Inc()
}

// IncOffers records an accepted signaling offer
func (m *Metrics) IncOffers() {
	if m == nil {
		return
	}
	m.Offers.Inc()
}

// RecordCandidate records an ICE candidate outcome ("added" or "ignored")
func (m *Metrics) RecordCandidate(result string) {
	if m == nil {
		return
	}
	m.Candidates.WithLabelValues(result).Inc()
}

// RecordFrame records one streamed frame outcome ("ok" or "error")
func (m *Metrics) RecordFrame(result string) {
	if m == nil {
		return
	}
	m.Frames.WithLabelValues(result).Inc()
}

// RecordInteraction records one data-channel interaction by type
func (m *Metrics) RecordInteraction(msgType string) {
	if m == nil {
		return
	}
	m.Interactions.WithLabelValues(msgType).Inc()
}

// IncBridgeTimeouts records a bridge call deadline overrun
func (m *Metrics) IncBridgeTimeouts() {
	if m == nil {
		return
	}
	m.BridgeTimeouts.Inc()
}
