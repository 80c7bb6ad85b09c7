package pushbridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var forwardedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "charchat_pushbridge_forwarded_total",
		Help: "Total number of notifications forwarded to RabbitMQ.",
	},
	[]string{"status"},
)
