// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/aural/internal/events"
	"github.com/roach88/aural/internal/output"
)

const namespace = "aural"

// Metrics holds the pipeline collectors.
//
// Thread-safety: all methods are safe for concurrent use; the underlying
// collectors are.
type Metrics struct {
	EventsPosted     prometheus.Counter
	EventsCoalesced  *prometheus.CounterVec
	EventsDispatched *prometheus.CounterVec
	Outputs          *prometheus.CounterVec
	Timeouts         *prometheus.CounterVec
	Rebuilds         prometheus.Counter
	QueueDepth       prometheus.Gauge
	DeltaLatency     prometheus.Histogram
}

// New creates the collectors and registers them with reg. A nil reg skips
// registration, which tests use to read values directly.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsPosted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_posted_total",
			Help:      "Accessibility events accepted by the queue.",
		}),
		EventsCoalesced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_coalesced_total",
			Help:      "Events removed during drain.",
		}, []string{"reason"}),
		EventsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dispatched_total",
			Help:      "Events handled by the consumer, by kind.",
		}, []string{"kind"}),
		Outputs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outputs_total",
			Help:      "Output request lifecycle steps.",
		}, []string{"channel", "status"}),
		Timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "native_timeouts_total",
			Help:      "Native accessibility calls that exceeded their budget.",
		}, []string{"op"}),
		Rebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffer_rebuilds_total",
			Help:      "Full virtual buffer builds.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_queue_depth",
			Help:      "Events waiting for the consumer.",
		}),
		DeltaLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "buffer_delta_seconds",
			Help:      "Time spent applying a buffer delta.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.EventsPosted,
			m.EventsCoalesced,
			m.EventsDispatched,
			m.Outputs,
			m.Timeouts,
			m.Rebuilds,
			m.QueueDepth,
			m.DeltaLatency,
		)
	}
	return m
}

// Posted counts one accepted event.
func (m *Metrics) Posted() { m.EventsPosted.Inc() }

// Drained records one drain pass and the depth left behind.
func (m *Metrics) Drained(st events.Stats, remaining int) {
	m.EventsCoalesced.WithLabelValues("coalesced").Add(float64(st.Coalesced))
	m.EventsCoalesced.WithLabelValues("debounced").Add(float64(st.Debounced))
	m.QueueDepth.Set(float64(remaining))
}

// Dispatched counts one handled event.
func (m *Metrics) Dispatched(k events.Kind) {
	m.EventsDispatched.WithLabelValues(k.String()).Inc()
}

// Timeout counts one timed-out native call. Usable as a11y.WithTimeoutHook.
func (m *Metrics) Timeout(op string) {
	m.Timeouts.WithLabelValues(op).Inc()
}

// Rebuilt counts one full buffer build.
func (m *Metrics) Rebuilt() { m.Rebuilds.Inc() }

// ObserveDelta records how long a delta took.
func (m *Metrics) ObserveDelta(d time.Duration) {
	m.DeltaLatency.Observe(d.Seconds())
}

// RecordOutput implements output.Recorder.
func (m *Metrics) RecordOutput(r output.Record) {
	m.Outputs.WithLabelValues(r.Channel.String(), string(r.Status)).Inc()
}
