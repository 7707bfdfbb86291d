// Package metrics defines the Prometheus collectors for the recognition pipeline.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "visionctl"

// Frame outcomes.
const (
	FrameOK        = "ok"
	FrameNoHand    = "no_hand"
	FrameMalformed = "malformed"
	FrameFailed    = "detect_failed"
	FramePaused    = "paused"
)

// Metrics groups the collectors. A nil *Metrics records nothing.
type Metrics struct {
	frames       *prometheus.CounterVec
	frameLatency prometheus.Histogram
	gestures     *prometheus.CounterVec
	combos       *prometheus.CounterVec
	connections  prometheus.Gauge
	sendFailures prometheus.Counter
	actions      *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "frames_total",
				Help:      "Frames received, by outcome.",
			},
			[]string{"outcome"},
		),
		frameLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "frame_processing_seconds",
				Help:      "Decode, detect and classify time per frame.",
				Buckets:   []float64{.005, .01, .025, .05, .075, .1, .15, .25, .5, 1},
			},
		),
		gestures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "gestures_emitted_total",
				Help:      "gesture_detected events sent.",
			},
			[]string{"gesture", "kind"},
		),
		combos: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "combos_total",
				Help:      "Combos recognized.",
			},
			[]string{"combo"},
		),
		connections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "connections",
				Help:      "Open gateway connections.",
			},
		),
		sendFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "send_failures_total",
				Help:      "Connections closed after a failed send.",
			},
		),
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "action",
				Name:      "dispatched_total",
				Help:      "Action triggers, by action and result.",
			},
			[]string{"action", "result"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.frames, m.frameLatency, m.gestures, m.combos, m.connections,
			m.sendFailures, m.actions, m.httpRequests, m.httpDuration,
		)
	}
	return m
}

// RecordFrame counts a frame and, for processed frames, its latency.
func (m *Metrics) RecordFrame(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(outcome).Inc()
	if outcome == FrameOK || outcome == FrameNoHand {
		m.frameLatency.Observe(d.Seconds())
	}
}

// RecordGesture counts an emitted gesture event. Clears use gesture "none".
func (m *Metrics) RecordGesture(gesture, kind string) {
	if m == nil {
		return
	}
	if gesture == "" {
		gesture = "none"
	}
	m.gestures.WithLabelValues(gesture, kind).Inc()
}

// RecordCombo counts a recognized combo.
func (m *Metrics) RecordCombo(name string) {
	if m == nil {
		return
	}
	m.combos.WithLabelValues(name).Inc()
}

// ConnectionOpened increments the open connection gauge.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

// ConnectionClosed decrements the open connection gauge.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

// RecordSendFailure counts a connection lost to a failed write.
func (m *Metrics) RecordSendFailure() {
	if m == nil {
		return
	}
	m.sendFailures.Inc()
}

// RecordAction counts an action trigger outcome.
func (m *Metrics) RecordAction(action, result string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action, result).Inc()
}

// RecordHTTPRequest counts an HTTP request and its duration.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	statusLabel := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	m.httpDuration.WithLabelValues(method, path, statusLabel).Observe(d.Seconds())
}
