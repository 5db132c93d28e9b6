package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Capture paths.
const (
	CapturePathGuest = "guest"
	CapturePathSweep = "sweep"
)

// EscrowMetrics counts settlement transitions and gateway captures.
type EscrowMetrics struct {
	transitions *prometheus.CounterVec
	captures    *prometheus.CounterVec
	sweepRows   *prometheus.CounterVec
}

// NewEscrowMetrics registers the escrow metrics on the provided registerer.
func NewEscrowMetrics(reg prometheus.Registerer) *EscrowMetrics {
	if reg == nil {
		return &EscrowMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shootpay_escrow_transitions_total",
		Help: "Committed escrow state transitions by target status.",
	}, []string{"status"})
	captures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shootpay_escrow_captures_total",
		Help: "Gateway capture attempts by completion path and result.",
	}, []string{"path", "result"})
	sweepRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shootpay_escrow_sweep_rows_total",
		Help: "Rows handled by the auto-confirmation sweep by result.",
	}, []string{"result"})
	reg.MustRegister(transitions, captures, sweepRows)
	return &EscrowMetrics{
		transitions: transitions,
		captures:    captures,
		sweepRows:   sweepRows,
	}
}

// IncTransition counts a committed transition into status.
func (m *EscrowMetrics) IncTransition(status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncCapture counts a gateway capture attempt.
func (m *EscrowMetrics) IncCapture(path string, ok bool) {
	if m == nil || m.captures == nil {
		return
	}
	result := resultSuccess
	if !ok {
		result = resultFailure
	}
	m.captures.WithLabelValues(normalizeLabel(path), result).Inc()
}

// AddSweepRows adds the outcome counts of one sweep batch.
func (m *EscrowMetrics) AddSweepRows(completed, skipped, failed int) {
	if m == nil || m.sweepRows == nil {
		return
	}
	m.sweepRows.WithLabelValues("completed").Add(float64(completed))
	m.sweepRows.WithLabelValues("skipped").Add(float64(skipped))
	m.sweepRows.WithLabelValues("failed").Add(float64(failed))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
