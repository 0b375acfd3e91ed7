package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpportunitiesReceived tracks opportunities handed to the executor.
	OpportunitiesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictionarb_execution_opportunities_received_total",
		Help: "Total number of arbitrage opportunities received for execution",
	})

	// ExecutionsTotal tracks execute() outcomes by audit type.
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictionarb_execution_results_total",
			Help: "Total execute() calls by outcome (executed, skip_min_order, skip_liquidity, dry_run, critical_partial_fill, both_failed)",
		},
		[]string{"outcome"},
	)

	// ExecutionDurationSeconds tracks execute() latency.
	ExecutionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "predictionarb_execution_duration_seconds",
		Help:    "Duration of one dual-leg execute() call",
		Buckets: prometheus.DefBuckets,
	})

	// LegPlacementErrorsByType tracks individual leg placement failures.
	LegPlacementErrorsByType = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictionarb_execution_leg_errors_by_type_total",
			Help: "Total leg placement errors classified by type (network, api, validation, funds, unknown)",
		},
		[]string{"venue", "error_type"},
	)

	// ProfitRealizedCents tracks cumulative expected net profit of executed opportunities.
	ProfitRealizedCents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictionarb_execution_profit_realized_cents",
		Help: "Cumulative expected net profit (cents) of successfully executed dual-leg opportunities",
	})
)
