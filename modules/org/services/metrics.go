package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	orgHierarchyLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org",
		Subsystem: "hierarchy",
		Name:      "loads_total",
		Help:      "Total number of Org hierarchy loads broken down by source and result.",
	}, []string{"source", "result"})

	orgHierarchySites = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "org",
		Subsystem: "hierarchy",
		Name:      "sites",
		Help:      "Number of sites in the loaded Org hierarchy.",
	})

	orgCascadeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org",
		Subsystem: "cascade",
		Name:      "operations_total",
		Help:      "Total number of cascade triggers broken down by operation and outcome.",
	}, []string{"op", "outcome"})
)

func recordHierarchyLoad(source string, err error, sites int) {
	if source == "" {
		source = "unknown"
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	orgHierarchyLoads.WithLabelValues(source, result).Inc()
	if err == nil {
		orgHierarchySites.Set(float64(sites))
	}
}

// recordCascade counts one trigger; outcome is applied, degraded or rejected.
func recordCascade(op, outcome string) {
	orgCascadeOperations.WithLabelValues(op, outcome).Inc()
}
