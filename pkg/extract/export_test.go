package extract

import "github.com/prometheus/client_golang/prometheus"

// MetricItems exposes the item outcome counter to the external test package.
func MetricItems(outcome string) prometheus.Counter {
	return itemsTotal.WithLabelValues(outcome)
}
