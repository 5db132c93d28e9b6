package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestEscrowMetricsCountsTransitionsAndCaptures(t *testing.T) {
	m := NewEscrowMetrics(prometheus.NewRegistry())
	m.IncTransition("COMPLETED")
	m.IncTransition("COMPLETED")
	m.IncTransition("")
	m.IncCapture(CapturePathSweep, true)
	m.IncCapture(CapturePathGuest, false)
	m.AddSweepRows(3, 1, 2)

	require.Equal(t, float64(2), testutil.ToFloat64(m.transitions.WithLabelValues("COMPLETED")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.transitions.WithLabelValues("unknown")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.captures.WithLabelValues(CapturePathSweep, resultSuccess)))
	require.Equal(t, float64(1), testutil.ToFloat64(m.captures.WithLabelValues(CapturePathGuest, resultFailure)))
	require.Equal(t, float64(3), testutil.ToFloat64(m.sweepRows.WithLabelValues("completed")))
	require.Equal(t, float64(2), testutil.ToFloat64(m.sweepRows.WithLabelValues("failed")))
}

func TestEscrowMetricsNilSafe(t *testing.T) {
	var m *EscrowMetrics
	m.IncTransition("COMPLETED")
	m.IncCapture(CapturePathGuest, true)
	m.AddSweepRows(1, 0, 0)

	NewEscrowMetrics(nil).IncTransition("ESCROWED")
}
