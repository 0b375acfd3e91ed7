package alerting

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AlertsSent tracks alerts actually delivered (critical immediate +
	// batch-flushed), post-dedup.
	AlertsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictionarb_alerting_alerts_sent_total",
		Help: "Total alerts delivered (after cooldown dedup)",
	})

	// AlertDeliveryFailures tracks failed webhook POSTs.
	AlertDeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictionarb_alerting_delivery_failures_total",
		Help: "Total webhook delivery failures",
	})
)
