package internal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const METRICS_NAMESPACE = "fuel_dashboard"

var (
	pagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: METRICS_NAMESPACE,
		Name:      "query_pages_fetched_total",
		Help:      "Total number of result pages fetched from the query service",
	})

	rowsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: METRICS_NAMESPACE,
		Name:      "query_rows_fetched_total",
		Help:      "Total number of rows returned by completed paginated queries",
	})

	requestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: METRICS_NAMESPACE,
			Name:      "query_errors_total",
			Help:      "Total number of failed query service requests by HTTP status",
		},
		[]string{"status"},
	)
)
