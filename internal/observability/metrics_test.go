package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordTransitions(t *testing.T) {
	m := NewMetrics()

	m.RecordTransition("approved", "PENDING_L1")
	m.RecordTransition("approved", "PENDING_L1")
	m.RecordAutoClosed(3)
	m.RecordAutoClosed(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("approved", "PENDING_L1")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.autoClosed))
}

func TestMetricsRecordRequest(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets", "GET", 200, 15*time.Millisecond)
	m.RecordError("/tickets", "POST", "VALIDATION_FAILED")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/tickets", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("POST", "/tickets", "VALIDATION_FAILED")))

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Second)
		m.RecordEmail("request_created", "sent")
		m.RecordRequestIDAttempts(1)
	})
}
