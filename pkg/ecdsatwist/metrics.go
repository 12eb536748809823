package ecdsatwist

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusAnalyses             *prometheus.CounterVec
	prometheusFragmentsRecorded    prometheus.Counter
	prometheusKeysRecovered        prometheus.Counter
	prometheusVerificationFailures prometheus.Counter
	prometheusFactorDuration       prometheus.Histogram
	prometheusDiscreteLogDuration  prometheus.Histogram

	// only init the metrics once
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusAnalyses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "twist",
			Name:      "analyses",
			Help:      "Number of finished transaction analyses",
		},
		[]string{
			"vulnerability", // vulnerability type
			"status",        // terminal status
		},
	)
	prometheusFragmentsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "twist",
			Name:      "fragments_recorded",
			Help:      "Number of new key residues merged into fragment sets",
		},
	)
	prometheusKeysRecovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "twist",
			Name:      "keys_recovered",
			Help:      "Number of private keys reconstructed and verified",
		},
	)
	prometheusVerificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "twist",
			Name:      "verification_failures",
			Help:      "Number of reconstructed keys that did not reproduce the public key",
		},
	)
	prometheusFactorDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "twist",
			Name:      "factor_duration_seconds",
			Help:      "Duration of twist order factorizations",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)
	prometheusDiscreteLogDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "twist",
			Name:      "discrete_log_duration_seconds",
			Help:      "Duration of per-prime discrete logarithms",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)
}
