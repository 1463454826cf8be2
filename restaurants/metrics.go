package restaurants

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backendDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chopfinder_backend_duration_seconds",
		Help:    "Latency of catalog backend calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "op"})
	backendFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chopfinder_backend_failures_total",
		Help: "The total number of failed catalog backend calls",
	}, []string{"backend", "op"})
)

func observe(backend, op string, start time.Time, err error) {
	backendDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
	if err != nil {
		backendFailures.WithLabelValues(backend, op).Inc()
	}
}
