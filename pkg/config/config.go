package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Venue A (on-chain CLOB-style, Polymarket-shaped)
	VenueAWSURL     string
	VenueAGammaURL  string
	VenueAProxyURL  string // optional order-placement proxy for geo-restricted callers
	VenueAAuthToken string

	// Venue B (centralized, Kalshi-shaped)
	VenueBBaseURL        string
	VenueBAPIKeyID       string
	VenueBPrivateKeyPath string
	VenueBPrivateKeyPEM  string

	// Market Discovery
	MarketRefreshMs  time.Duration
	DiscoveryMarketLimit int
	MaxMarketDuration    time.Duration // read and validated; discovery applies no expiry filter, as outcomes carry no close time

	// WebSocket (venue A streaming)
	WSPoolSize              int
	WSDialTimeout           time.Duration
	WSPongTimeout           time.Duration
	WSPingInterval          time.Duration
	WSReconnectInitialDelay time.Duration
	WSReconnectMaxDelay     time.Duration
	WSReconnectBackoffMult  float64
	WSMessageBufferSize     int
	KalshiPollMs            time.Duration

	// Matching
	MatchingThreshold float64

	// Arb evaluation
	MinProfitCents         int
	MinPriceThresholdCents int
	TotalFeeCents          float64
	AlertThresholdCents    int
	TopNOpportunities      int
	ScanIntervalMs         time.Duration

	// Same-market (btc15min) track
	BTC15MinTargetPairCost        float64
	BTC15MinOrderSize             float64
	BTC15MinScanIntervalMs        time.Duration
	BTC15MinMarketRefreshMs       time.Duration
	BTC15MinTickers               string
	BTC15MinMaxPositionsPerMarket int
	BTC15MinMinTimeRemainingMs    time.Duration
	BTC15MinCooldownMs            time.Duration

	// Execution
	TradingMode         string // CONSERVATIVE or YOLO
	TradeAmountCents    int
	DryRun              bool
	LiquiditySafetyMargin float64
	MinOrderDollars       float64
	TradeCooldownMs       time.Duration
	RotationEpsilonCents  float64
	MaxGlobalPositions    int
	PlacementTimeout      time.Duration

	// Resolution watcher
	ResolutionCheckIntervalMs time.Duration

	// Alerting
	AlertCooldownMs      time.Duration
	AlertBatchIntervalMs time.Duration
	AlertWebhookURL      string
	AlertWebhookTimeout  time.Duration

	// Circuit Breaker
	CircuitBreakerEnabled         bool
	CircuitBreakerCheckInterval   time.Duration
	CircuitBreakerTradeMultiplier float64
	CircuitBreakerMinAbsolute     float64
	CircuitBreakerHysteresisRatio float64

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults,
// recognizing every tunable across venue connectivity, matching, arbitrage
// evaluation, execution, alerting, the circuit breaker, and storage.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		VenueAWSURL:     getEnvOrDefault("VENUE_A_WS_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/market"),
		VenueAGammaURL:  getEnvOrDefault("VENUE_A_GAMMA_API_URL", "https://gamma-api.polymarket.com"),
		VenueAProxyURL:  os.Getenv("VENUE_A_ORDER_PROXY_URL"),
		VenueAAuthToken: os.Getenv("VENUE_A_AUTH_TOKEN"),

		VenueBBaseURL:        getEnvOrDefault("VENUE_B_BASE_URL", "https://trading-api.kalshi.com"),
		VenueBAPIKeyID:       os.Getenv("KALSHI_API_KEY_ID"),
		VenueBPrivateKeyPath: os.Getenv("KALSHI_PRIVATE_KEY_PATH"),
		VenueBPrivateKeyPEM:  os.Getenv("KALSHI_PRIVATE_KEY_PEM"),

		MarketRefreshMs:      getDurationMsOrDefault("MARKET_REFRESH_MS", 60_000),
		DiscoveryMarketLimit: getIntOrDefault("DISCOVERY_MARKET_LIMIT", 1000),
		MaxMarketDuration:    getDurationOrDefault("MAX_MARKET_DURATION", 0),

		WSPoolSize:              getIntOrDefault("WS_POOL_SIZE", 20),
		WSDialTimeout:           getDurationOrDefault("WS_DIAL_TIMEOUT", 10*time.Second),
		WSPongTimeout:           getDurationOrDefault("WS_PONG_TIMEOUT", 15*time.Second),
		WSPingInterval:          getDurationOrDefault("WS_PING_INTERVAL", 10*time.Second),
		WSReconnectInitialDelay: getDurationOrDefault("WS_RECONNECT_INITIAL_DELAY", 5*time.Second),
		WSReconnectMaxDelay:     getDurationOrDefault("WS_RECONNECT_MAX_DELAY", 30*time.Second),
		WSReconnectBackoffMult:  getFloat64OrDefault("WS_RECONNECT_BACKOFF_MULTIPLIER", 2.0),
		WSMessageBufferSize:     getIntOrDefault("WS_MESSAGE_BUFFER_SIZE", 10000),
		KalshiPollMs:            getDurationMsOrDefault("KALSHI_POLL_MS", 5_000),

		MatchingThreshold: getFloat64OrDefault("MATCHING_THRESHOLD", 0.7),

		MinProfitCents:         getIntOrDefault("MIN_PROFIT_CENTS", 1),
		MinPriceThresholdCents: getIntOrDefault("MIN_PRICE_THRESHOLD_CENTS", 2),
		TotalFeeCents:          getFloat64OrDefault("TOTAL_FEE_CENTS", 0),
		AlertThresholdCents:    getIntOrDefault("ALERT_THRESHOLD_CENTS", 50),
		TopNOpportunities:      getIntOrDefault("TOP_N_OPPORTUNITIES", 10),
		ScanIntervalMs:         getDurationMsOrDefault("SCAN_INTERVAL_MS", 5_000),

		BTC15MinTargetPairCost:        getFloat64OrDefault("BTC15MIN_TARGET_PAIR_COST", 0.97),
		BTC15MinOrderSize:             getFloat64OrDefault("BTC15MIN_ORDER_SIZE", 10),
		BTC15MinScanIntervalMs:        getDurationMsOrDefault("BTC15MIN_SCAN_INTERVAL_MS", 5_000),
		BTC15MinMarketRefreshMs:       getDurationMsOrDefault("BTC15MIN_MARKET_REFRESH_MS", 60_000),
		BTC15MinTickers:               getEnvOrDefault("BTC15MIN_TICKERS", ""),
		BTC15MinMaxPositionsPerMarket: getIntOrDefault("BTC15MIN_MAX_POSITIONS_PER_MARKET", 1),
		BTC15MinMinTimeRemainingMs:    getDurationMsOrDefault("BTC15MIN_MIN_TIME_REMAINING_MS", 30_000),
		BTC15MinCooldownMs:            getDurationMsOrDefault("BTC15MIN_COOLDOWN_MS", 10_000),

		TradingMode:           getEnvOrDefault("TRADING_MODE", "CONSERVATIVE"),
		TradeAmountCents:      getIntOrDefault("TRADE_AMOUNT_CENTS", 500),
		DryRun:                getBoolOrDefault("DRY_RUN", true),
		LiquiditySafetyMargin: getFloat64OrDefault("LIQUIDITY_SAFETY_MARGIN", 0.5),
		MinOrderDollars:       getFloat64OrDefault("MIN_ORDER_DOLLARS", 1.10),
		TradeCooldownMs:       getDurationMsOrDefault("TRADE_COOLDOWN_MS", 10_000),
		RotationEpsilonCents:  getFloat64OrDefault("ROTATION_EPSILON_CENTS", 0),
		MaxGlobalPositions:    getIntOrDefault("MAX_GLOBAL_POSITIONS", 10),
		PlacementTimeout:      getDurationOrDefault("PLACEMENT_TIMEOUT", 15*time.Second),

		ResolutionCheckIntervalMs: getDurationMsOrDefault("RESOLUTION_CHECK_INTERVAL_MS", 5*60_000),

		AlertCooldownMs:      getDurationMsOrDefault("ALERT_COOLDOWN_MS", 60_000),
		AlertBatchIntervalMs: getDurationMsOrDefault("ALERT_BATCH_INTERVAL_MS", 5_000),
		AlertWebhookURL:      os.Getenv("ALERT_WEBHOOK_URL"),
		AlertWebhookTimeout:  getDurationOrDefault("ALERT_WEBHOOK_TIMEOUT", 5*time.Second),

		CircuitBreakerEnabled:         getBoolOrDefault("CIRCUIT_BREAKER_ENABLED", true),
		CircuitBreakerCheckInterval:   getDurationOrDefault("CIRCUIT_BREAKER_CHECK_INTERVAL", 300*time.Second),
		CircuitBreakerTradeMultiplier: getFloat64OrDefault("CIRCUIT_BREAKER_TRADE_MULTIPLIER", 3.0),
		CircuitBreakerMinAbsolute:     getFloat64OrDefault("CIRCUIT_BREAKER_MIN_ABSOLUTE", 5.0),
		CircuitBreakerHysteresisRatio: getFloat64OrDefault("CIRCUIT_BREAKER_HYSTERESIS_RATIO", 1.5),

		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "predictionarb"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "predictionarb123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "predictionarb"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return errors.New("HTTP_PORT cannot be empty")
	}
	if c.VenueAWSURL == "" {
		return errors.New("VENUE_A_WS_URL cannot be empty")
	}
	if c.VenueAGammaURL == "" {
		return errors.New("VENUE_A_GAMMA_API_URL cannot be empty")
	}
	if c.VenueBBaseURL == "" {
		return errors.New("VENUE_B_BASE_URL cannot be empty")
	}
	if c.MinProfitCents < 1 {
		return fmt.Errorf("MIN_PROFIT_CENTS must be >= 1, got %d", c.MinProfitCents)
	}
	if c.MatchingThreshold <= 0 || c.MatchingThreshold > 1.0 {
		return fmt.Errorf("MATCHING_THRESHOLD must be in (0,1], got %f", c.MatchingThreshold)
	}
	if c.TradingMode != "CONSERVATIVE" && c.TradingMode != "YOLO" {
		return fmt.Errorf("TRADING_MODE must be 'CONSERVATIVE' or 'YOLO', got %q", c.TradingMode)
	}
	if c.LiquiditySafetyMargin <= 0 || c.LiquiditySafetyMargin > 1.0 {
		return fmt.Errorf("LIQUIDITY_SAFETY_MARGIN must be in (0,1], got %f", c.LiquiditySafetyMargin)
	}
	if c.MinOrderDollars <= 0 {
		return fmt.Errorf("MIN_ORDER_DOLLARS must be positive, got %f", c.MinOrderDollars)
	}
	if c.MaxMarketDuration < 0 {
		return fmt.Errorf("MAX_MARKET_DURATION must be non-negative (0 = unlimited), got %s", c.MaxMarketDuration)
	}
	if c.DiscoveryMarketLimit < 0 {
		return fmt.Errorf("DISCOVERY_MARKET_LIMIT must be non-negative (0 = unlimited), got %d", c.DiscoveryMarketLimit)
	}
	if c.WSPoolSize < 1 || c.WSPoolSize > 20 {
		return fmt.Errorf("WS_POOL_SIZE must be in [1,20], got %d", c.WSPoolSize)
	}
	if c.MaxGlobalPositions < 1 {
		return fmt.Errorf("MAX_GLOBAL_POSITIONS must be at least 1, got %d", c.MaxGlobalPositions)
	}
	return nil
}

// TradeAmountDollars resolves the per-leg trade size:
// YOLO mode uses a fixed $10, conservative mode uses TradeAmountCents.
func (c *Config) TradeAmountDollars() float64 {
	if c.TradingMode == "YOLO" {
		return 10.0
	}
	return float64(c.TradeAmountCents) / 100.0
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

// getDurationMsOrDefault reads a millisecond integer (*Ms config
// keys) and returns it as a time.Duration.
func getDurationMsOrDefault(key string, defaultMs int) time.Duration {
	ms := getIntOrDefault(key, defaultMs)
	return time.Duration(ms) * time.Millisecond
}
