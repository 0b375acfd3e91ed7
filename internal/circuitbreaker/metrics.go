package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CircuitBreakerEnabled indicates whether the circuit breaker allows trade execution.
	CircuitBreakerEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predictionarb_circuit_breaker_enabled",
		Help: "Whether circuit breaker allows trade execution (1=enabled, 0=disabled)",
	})

	// CircuitBreakerBalanceA tracks the last checked venue-A tradable balance.
	CircuitBreakerBalanceA = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predictionarb_circuit_breaker_balance_venue_a_usd",
		Help: "Last checked venue-A tradable balance in dollars",
	})

	// CircuitBreakerBalanceB tracks the last checked venue-B tradable balance.
	CircuitBreakerBalanceB = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predictionarb_circuit_breaker_balance_venue_b_usd",
		Help: "Last checked venue-B tradable balance in dollars",
	})

	// CircuitBreakerDisableThreshold tracks the current threshold for disabling execution.
	CircuitBreakerDisableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predictionarb_circuit_breaker_disable_threshold_usd",
		Help: "Current balance threshold for disabling execution (dynamically calculated)",
	})

	// CircuitBreakerEnableThreshold tracks the current threshold for re-enabling execution.
	CircuitBreakerEnableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predictionarb_circuit_breaker_enable_threshold_usd",
		Help: "Current balance threshold for re-enabling execution (with hysteresis)",
	})

	// CircuitBreakerAvgTradeSize tracks the rolling average trade size.
	CircuitBreakerAvgTradeSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predictionarb_circuit_breaker_avg_trade_size_usd",
		Help: "Rolling average trade size from recent trades (used for threshold calculation)",
	})

	// CircuitBreakerStateChanges tracks the number of times the circuit breaker changed state.
	CircuitBreakerStateChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictionarb_circuit_breaker_state_changes_total",
		Help: "Total number of times circuit breaker changed state (enabled/disabled)",
	})

	// CircuitBreakerCheckDuration tracks the time taken to check balances.
	CircuitBreakerCheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "predictionarb_circuit_breaker_check_duration_seconds",
		Help:    "Time taken to check both venues' balances",
		Buckets: prometheus.DefBuckets,
	})
)
