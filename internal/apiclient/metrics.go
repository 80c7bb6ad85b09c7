package apiclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charchat_http_requests_total",
			Help: "Total number of REST API requests by method and response status.",
		},
		[]string{"method", "status"},
	)

	unauthorizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "charchat_http_unauthorized_total",
		Help: "Total number of 401 responses that forced a logout.",
	})
)
