// Package metrics holds the prometheus collectors for synthesis sessions,
// decoded frames and pipeline segments.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gotts"

// Metrics is a set of collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	sessions        *prometheus.CounterVec
	sessionDuration *prometheus.HistogramVec
	frames          *prometheus.CounterVec
	audioBytes      *prometheus.CounterVec
	segments        *prometheus.CounterVec
	assetMisses     prometheus.Counter
}

// New creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which tests use.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Synthesis sessions by protocol variant and terminal outcome.",
		}, []string{"variant", "outcome"}),
		sessionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Wall time from dial to terminal state.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"variant"}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Inbound frames by decoded type.",
		}, []string{"type"}),
		audioBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_total",
			Help:      "Audio bytes delivered, by source.",
		}, []string{"source"}),
		segments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_total",
			Help:      "Pipeline segments by kind and outcome.",
		}, []string{"kind", "outcome"}),
		assetMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asset_misses_total",
			Help:      "Audio asset paths that were not found and skipped.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.sessions, m.sessionDuration, m.frames, m.audioBytes, m.segments, m.assetMisses)
	}
	return m
}

// SessionDone records a finished session.
func (m *Metrics) SessionDone(variant, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(variant, outcome).Inc()
	m.sessionDuration.WithLabelValues(variant).Observe(elapsed.Seconds())
}

// Frame counts one inbound frame.
func (m *Metrics) Frame(kind string) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(kind).Inc()
}

// AudioBytes adds n delivered bytes for source.
func (m *Metrics) AudioBytes(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.audioBytes.WithLabelValues(source).Add(float64(n))
}

// Segment counts one processed segment.
func (m *Metrics) Segment(kind, outcome string) {
	if m == nil {
		return
	}
	m.segments.WithLabelValues(kind, outcome).Inc()
}

// AssetMiss counts one missing audio asset.
func (m *Metrics) AssetMiss() {
	if m == nil {
		return
	}
	m.assetMisses.Inc()
}
