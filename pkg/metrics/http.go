package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records API request latency by route pattern.
type HTTPMetrics struct {
	latency *prometheus.HistogramVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shootpay_http_request_duration_seconds",
		Help:    "API request latency by route, method and status.",
		Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"route", "method", "status"})
	reg.MustRegister(latency)
	return &HTTPMetrics{latency: latency}
}

// ObserveRequest records one finished request. route should be the router pattern, not
// the raw path, to keep cardinality bounded.
func (m *HTTPMetrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil || m.latency == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.latency.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
