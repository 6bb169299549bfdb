package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// EngineMetrics exposes recommendation engine counters to Prometheus.
type EngineMetrics struct {
	generatedTotal    *prometheus.CounterVec
	generationSeconds prometheus.Histogram
}

func NewEngineMetrics(logger *logrus.Logger) *EngineMetrics {
	m := &EngineMetrics{
		generatedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recommendations_generated_total",
			Help: "Number of recommendation sets generated, by strategy",
		}, []string{"strategy"}),
		generationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "recommendation_generation_seconds",
			Help:    "Latency of recommendation generation",
			Buckets: prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{m.generatedTotal, m.generationSeconds} {
		if err := prometheus.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				logger.WithError(err).Warn("Failed to register recommendation metric")
			}
		}
	}

	return m
}

func (m *EngineMetrics) observeGeneration(strategy string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.generatedTotal.WithLabelValues(strategy).Inc()
	m.generationSeconds.Observe(elapsed.Seconds())
}
