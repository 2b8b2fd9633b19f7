package request

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP latency histogram recorded by LatencyMiddleware.
type Metrics struct {
	EndpointLatency *prometheus.HistogramVec
}

// NewMetrics registers the latency histogram with reg. A nil reg uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Metrics{
		EndpointLatency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hearthgate_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and method",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint", "method"}),
	}
}

func (m *Metrics) ObserveEndpointLatency(endpoint, method string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.EndpointLatency.WithLabelValues(endpoint, method).Observe(durationSeconds)
}
