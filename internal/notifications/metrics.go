package notifications

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "charchat_notifications_connected",
		Help: "1 when the notification socket is connected.",
	})

	reconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "charchat_notifications_reconnects_total",
		Help: "Total number of successful automatic reconnects.",
	})

	receivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charchat_notifications_received_total",
			Help: "Total number of frames received on the notification socket.",
		},
		[]string{"event"},
	)
)
