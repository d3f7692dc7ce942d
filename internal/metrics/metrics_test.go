package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aural/internal/events"
	"github.com/roach88/aural/internal/output"
)

func TestNew_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Posted()
	m.Rebuilt()
	m.ObserveDelta(2 * time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["aural_events_posted_total"])
	assert.True(t, names["aural_buffer_rebuilds_total"])
	assert.True(t, names["aural_buffer_delta_seconds"])
	assert.True(t, names["aural_event_queue_depth"])
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestMetrics_Drained(t *testing.T) {
	m := New(nil)

	m.Drained(events.Stats{Drained: 10, Coalesced: 3, Debounced: 2, Emitted: 5}, 4)
	m.Drained(events.Stats{Drained: 2, Coalesced: 1, Emitted: 1}, 0)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.EventsCoalesced.WithLabelValues("coalesced")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsCoalesced.WithLabelValues("debounced")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.QueueDepth))
}

func TestMetrics_Dispatched(t *testing.T) {
	m := New(nil)

	m.Dispatched(events.FocusChanged)
	m.Dispatched(events.FocusChanged)
	m.Dispatched(events.ContentChanged)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsDispatched.WithLabelValues("focus")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDispatched.WithLabelValues("content")))
}

func TestMetrics_RecordOutput(t *testing.T) {
	m := New(nil)
	var rec output.Recorder = m

	rec.RecordOutput(output.Record{Channel: output.Speech, Status: output.StatusCompleted})
	rec.RecordOutput(output.Record{Channel: output.Speech, Status: output.StatusDropped})
	rec.RecordOutput(output.Record{Channel: output.Braille, Status: output.StatusCompleted})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outputs.WithLabelValues("speech", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outputs.WithLabelValues("speech", "dropped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outputs.WithLabelValues("braille", "completed")))
}

func TestMetrics_Timeout(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Timeout("snapshot")
	m.Timeout("snapshot")
	m.Timeout("children")

	expected := `
# HELP aural_native_timeouts_total Native accessibility calls that exceeded their budget.
# TYPE aural_native_timeouts_total counter
aural_native_timeouts_total{op="children"} 1
aural_native_timeouts_total{op="snapshot"} 2
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "aural_native_timeouts_total")
	assert.NoError(t, err)
}
