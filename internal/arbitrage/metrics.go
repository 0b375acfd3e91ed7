package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpportunitiesDetectedTotal tracks emitted opportunities by strategy.
	OpportunitiesDetectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predictionarb_opportunities_detected_total",
		Help: "Total number of arbitrage opportunities detected",
	}, []string{"strategy"})

	// NetProfitCents tracks net profit after fees, in cents.
	NetProfitCents = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "predictionarb_opportunity_net_profit_cents",
		Help:    "Arbitrage opportunity net profit after fees, in cents",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200, 500},
	})

	// OpportunitiesRejectedTotal tracks rejected evaluation attempts by reason.
	OpportunitiesRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predictionarb_opportunities_rejected_total",
		Help: "Total number of arbitrage evaluation attempts rejected",
	}, []string{"reason"})

	// EvaluationDurationSeconds tracks evaluator latency per pair.
	EvaluationDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "predictionarb_evaluation_duration_seconds",
		Help:    "Duration of a single pair evaluation",
		Buckets: prometheus.DefBuckets,
	})
)
