package partialeval

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "qirc"
	subsystem        = "partial_eval"
)

var (
	compilationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "compilations_total",
			Help:      "Total number of programs evaluated, by outcome",
		},
		[]string{"status"},
	)

	instructionsEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "instructions_emitted_total",
			Help:      "Total number of instructions emitted into programs",
		},
	)

	blocksCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "blocks_created_total",
			Help:      "Total number of blocks created for dynamic control flow",
		},
	)

	classicalEvaluations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "classical_evaluations_total",
			Help:      "Total number of expressions folded by the classical interpreter",
		},
	)

	evaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "duration_seconds",
			Help:      "Time taken to evaluate one program",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
