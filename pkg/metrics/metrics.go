// Package metrics exposes Prometheus collectors for the communication core.
//
// A nil *Metrics is valid and records nothing, so components take an
// optional *Metrics without nil checks at every call site.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "homewire"

// Metrics groups the core's collectors.
type Metrics struct {
	framesSent     *prometheus.CounterVec
	framesReceived *prometheus.CounterVec
	framesDropped  *prometheus.CounterVec
	transportUp    *prometheus.GaugeVec
	reconnects     *prometheus.CounterVec

	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	cacheHits    *prometheus.CounterVec

	events        *prometheus.CounterVec
	eventsInvalid *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
// A nil reg creates unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		framesSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "transport", Name: "frames_sent_total",
			Help: "Frames written to the network, repeats included.",
		}, []string{"transport"}),
		framesReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "transport", Name: "frames_received_total",
			Help: "Frames received from the network.",
		}, []string{"transport"}),
		framesDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "transport", Name: "frames_dropped_total",
			Help: "Inbound frames discarded before reaching a consumer.",
		}, []string{"transport", "reason"}),
		transportUp: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace, Subsystem: "transport", Name: "connected",
			Help: "1 while the transport is connected.",
		}, []string{"transport"}),
		reconnects: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "transport", Name: "reconnects_total",
			Help: "Connection attempts made by the keepalive loop.",
		}, []string{"transport"}),
		calls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "service", Name: "calls_total",
			Help: "Settled service calls by outcome.",
		}, []string{"service", "outcome"}),
		callDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace, Subsystem: "service", Name: "round_trip_seconds",
			Help:    "Round-trip time of resolved calls.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"service"}),
		cacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "service", Name: "shared_results_total",
			Help: "Calls answered without their own wire exchange.",
		}, []string{"service"}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "event", Name: "published_total",
			Help: "Decoded notifications published to subscribers.",
		}, []string{"event"}),
		eventsInvalid: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "event", Name: "invalid_total",
			Help: "Notifications rejected by their decoder.",
		}, []string{"event"}),
	}
}

// FrameSent counts an outbound frame.
func (m *Metrics) FrameSent(transport string) {
	if m == nil {
		return
	}
	m.framesSent.WithLabelValues(transport).Inc()
}

// FrameReceived counts an inbound frame.
func (m *Metrics) FrameReceived(transport string) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(transport).Inc()
}

// FrameDropped counts a discarded inbound frame.
func (m *Metrics) FrameDropped(transport, reason string) {
	if m == nil {
		return
	}
	m.framesDropped.WithLabelValues(transport, reason).Inc()
}

// TransportConnected records the connection state.
func (m *Metrics) TransportConnected(transport string, up bool) {
	if m == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	m.transportUp.WithLabelValues(transport).Set(v)
}

// ReconnectAttempt counts a keepalive-driven connection attempt.
func (m *Metrics) ReconnectAttempt(transport string) {
	if m == nil {
		return
	}
	m.reconnects.WithLabelValues(transport).Inc()
}

// CallSettled counts a settled call; rtt is observed for resolved calls.
func (m *Metrics) CallSettled(service, outcome string, rtt time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(service, outcome).Inc()
	if outcome == "resolved" {
		m.callDuration.WithLabelValues(service).Observe(rtt.Seconds())
	}
}

// SharedResult counts a call served by another caller's exchange or a
// cooldown result.
func (m *Metrics) SharedResult(service string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(service).Inc()
}

// EventPublished counts a published notification.
func (m *Metrics) EventPublished(event string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(event).Inc()
}

// EventInvalid counts a notification rejected by its decoder.
func (m *Metrics) EventInvalid(event string) {
	if m == nil {
		return
	}
	m.eventsInvalid.WithLabelValues(event).Inc()
}
