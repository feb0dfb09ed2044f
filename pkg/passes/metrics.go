package passes

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fixupsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "qirc",
			Subsystem: "passes",
			Name:      "fixups_inserted_total",
			Help:      "Total number of cx fix-ups inserted for measured qubits that are used again",
		},
	)

	resetsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "qirc",
			Subsystem: "passes",
			Name:      "resets_dropped_total",
			Help:      "Total number of reset calls replaced by fresh qubit ids",
		},
	)
)
