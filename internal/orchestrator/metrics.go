package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarketsTracked reports the size of the active-market set per venue.
	MarketsTracked = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "predictionarb_orchestrator_markets_tracked",
			Help: "Number of active markets currently tracked, by venue",
		},
		[]string{"venue"},
	)

	// PairsMatched reports the current matched-pair count.
	PairsMatched = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predictionarb_orchestrator_pairs_matched",
		Help: "Number of cross-venue matched pairs in the current cycle",
	})

	// ScansTotal counts completed scan-loop iterations.
	ScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictionarb_orchestrator_scans_total",
		Help: "Total scan-loop iterations completed",
	})

	// PositionsOpen tracks currently open positions.
	PositionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predictionarb_orchestrator_positions_open",
		Help: "Number of currently open positions",
	})

	// SameMarketScansTotal counts completed same-market scan-loop iterations.
	SameMarketScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictionarb_orchestrator_same_market_scans_total",
		Help: "Total same-market scan-loop iterations completed",
	})

	// SameMarketPositionsOpen tracks currently open same-market positions.
	SameMarketPositionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predictionarb_orchestrator_same_market_positions_open",
		Help: "Number of currently open same-market positions",
	})
)
