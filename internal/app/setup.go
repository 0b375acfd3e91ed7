package app

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/arb-engine/predictionarb/internal/alerting"
	"github.com/arb-engine/predictionarb/internal/arbitrage"
	"github.com/arb-engine/predictionarb/internal/circuitbreaker"
	"github.com/arb-engine/predictionarb/internal/execution"
	"github.com/arb-engine/predictionarb/internal/matching"
	"github.com/arb-engine/predictionarb/internal/orchestrator"
	"github.com/arb-engine/predictionarb/internal/storage"
	"github.com/arb-engine/predictionarb/internal/venueA"
	"github.com/arb-engine/predictionarb/internal/venueB"
	"github.com/arb-engine/predictionarb/pkg/cache"
	"github.com/arb-engine/predictionarb/pkg/config"
	"github.com/arb-engine/predictionarb/pkg/healthprobe"
	"github.com/arb-engine/predictionarb/pkg/httpserver"
	"github.com/arb-engine/predictionarb/pkg/wallet"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	venueAClient := venueA.NewClient(cfg.VenueAGammaURL, logger)
	venueBClient, err := setupVenueBClient(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup venue B client: %w", err)
	}

	arbStorage, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	detector := arbitrage.New(arbitrage.Config{
		MinProfitCents:         cfg.MinProfitCents,
		MinPriceThresholdCents: cfg.MinPriceThresholdCents,
		FeeConstCents:          cfg.TotalFeeCents,
		TargetPairCost:         cfg.BTC15MinTargetPairCost,
		Logger:                 logger,
	}, arbStorage)

	alerter := alerting.New(&alerting.Config{
		WebhookURL:     cfg.AlertWebhookURL,
		WebhookTimeout: cfg.AlertWebhookTimeout,
		Cooldown:       cfg.AlertCooldownMs,
		BatchInterval:  cfg.AlertBatchIntervalMs,
		Logger:         logger,
	})

	breaker, err := setupCircuitBreaker(ctx, cfg, logger, venueBClient)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup circuit breaker: %w", err)
	}

	executor, err := setupExecutor(cfg, logger, venueAClient, venueBClient, alerter, breaker, arbStorage)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup executor: %w", err)
	}

	var stream *venueA.Stream
	if cfg.VenueAWSURL != "" {
		stream = venueA.NewStream(venueA.StreamConfig{
			PoolSize: cfg.WSPoolSize,
			WSURL:    cfg.VenueAWSURL,
			Logger:   logger,
		}, logger)
	}
	// Leave the interface nil (not a typed nil pointer) when streaming is off.
	var priceStream orchestrator.PriceStream
	if stream != nil {
		priceStream = stream
	}

	orch := orchestrator.New(orchestrator.Config{
		MarketRefreshInterval: cfg.MarketRefreshMs,
		MaxMarketDuration:     cfg.MaxMarketDuration,
		DiscoveryLimit:        cfg.DiscoveryMarketLimit,
		KalshiPollInterval:    cfg.KalshiPollMs,
		ScanInterval:          cfg.ScanIntervalMs,
		TradeCooldown:         cfg.TradeCooldownMs,
		RotationEpsilonCents:  cfg.RotationEpsilonCents,
		AlertThresholdCents:   cfg.AlertThresholdCents,
		MaxGlobalPositions:    cfg.MaxGlobalPositions,
		TradeContractsPerLeg:  float64(cfg.TradeAmountCents) / 100,
		MinProfitCents:        cfg.MinProfitCents,

		ResolutionCheckInterval: cfg.ResolutionCheckIntervalMs,
		ResolutionEnabled:       cfg.ResolutionCheckIntervalMs > 0,

		SameMarketScanInterval:          cfg.BTC15MinScanIntervalMs,
		SameMarketMarketRefreshInterval: cfg.BTC15MinMarketRefreshMs,
		SameMarketOrderSize:             cfg.BTC15MinOrderSize,
		SameMarketTickers:               parseTickers(cfg.BTC15MinTickers),
		SameMarketMaxPositionsPerMarket: cfg.BTC15MinMaxPositionsPerMarket,
		SameMarketGlobalCap:             cfg.MaxGlobalPositions,
		SameMarketCooldown:              cfg.BTC15MinCooldownMs,
		SameMarketMinTimeRemaining:      cfg.BTC15MinMinTimeRemainingMs,

		Logger: logger,
	}, orchestrator.Deps{
		VenueA:         venueAClient,
		VenueB:         venueBClient,
		Stream:         priceStream,
		SameMarketBook: venueBClient,
		Matcher:        matching.NewWithThreshold(cfg.MatchingThreshold),
		Detector:       detector,
		Executor:       executor,
		Alerter:        alerter,
		Breaker:        breaker,
		Trades:         arbStorage,
	})

	healthChecker := healthprobe.New()
	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Orchestrator:  orch,
		Executor:      executor,
		Breaker:       breaker,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		venueAClient:  venueAClient,
		venueBClient:  venueBClient,
		stream:        stream,
		detector:      detector,
		executor:      executor,
		alerter:       alerter,
		breaker:       breaker,
		storage:       arbStorage,
		orch:          orch,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// parseTickers splits a comma-separated ticker allowlist, trimming
// whitespace and dropping empty entries. An empty input yields nil, so the
// same-market track stays disabled.
func parseTickers(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tickers := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			tickers = append(tickers, t)
		}
	}
	return tickers
}

func setupVenueBClient(cfg *config.Config, logger *zap.Logger) (*venueB.Client, error) {
	var signer *venueB.Signer
	if cfg.VenueBAPIKeyID != "" {
		s, err := venueB.NewSigner(cfg.VenueBAPIKeyID, cfg.VenueBPrivateKeyPEM, cfg.VenueBPrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("create venue B signer: %w", err)
		}
		signer = s
	} else {
		logger.Warn("venue-b-signer-disabled-no-api-key", zap.String("note", "KALSHI_API_KEY_ID not set, authenticated venue B requests will fail"))
	}

	bookCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		logger.Warn("venue-b-book-cache-disabled", zap.Error(err))
		bookCache = nil
	}

	return venueB.NewClient(&venueB.Config{
		BaseURL: cfg.VenueBBaseURL,
		Signer:  signer,
		Logger:  logger,
		Cache:   bookCache,
	}), nil
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}

func setupCircuitBreaker(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	venueBClient *venueB.Client,
) (*circuitbreaker.BalanceCircuitBreaker, error) {
	if !cfg.CircuitBreakerEnabled {
		return nil, nil
	}

	privateKeyHex := os.Getenv("POLYMARKET_PRIVATE_KEY")
	if privateKeyHex == "" {
		logger.Warn("circuit-breaker-disabled-no-private-key",
			zap.String("note", "POLYMARKET_PRIVATE_KEY not set, circuit breaker disabled"))
		return nil, nil
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		logger.Warn("circuit-breaker-disabled-invalid-key", zap.Error(err))
		return nil, nil
	}

	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		logger.Warn("circuit-breaker-disabled-key-cast-failed")
		return nil, nil
	}
	address := crypto.PubkeyToAddress(*publicKeyECDSA)

	rpcURL := os.Getenv("POLYGON_RPC_URL")
	if rpcURL == "" {
		rpcURL = "https://polygon-rpc.com"
	}

	walletClient, err := wallet.NewClient(rpcURL, logger)
	if err != nil {
		logger.Warn("circuit-breaker-disabled-wallet-client-failed", zap.Error(err))
		return nil, nil
	}

	breaker, err := circuitbreaker.New(&circuitbreaker.Config{
		CheckInterval:   cfg.CircuitBreakerCheckInterval,
		TradeMultiplier: cfg.CircuitBreakerTradeMultiplier,
		MinAbsolute:     cfg.CircuitBreakerMinAbsolute,
		HysteresisRatio: cfg.CircuitBreakerHysteresisRatio,
		VenueA:          venueABalanceAdapter{wallet: walletClient, address: address},
		VenueB:          venueBClient,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create circuit breaker: %w", err)
	}

	logger.Info("circuit-breaker-enabled",
		zap.Duration("check_interval", cfg.CircuitBreakerCheckInterval),
		zap.Float64("trade_multiplier", cfg.CircuitBreakerTradeMultiplier),
		zap.Float64("min_absolute", cfg.CircuitBreakerMinAbsolute),
		zap.Float64("hysteresis_ratio", cfg.CircuitBreakerHysteresisRatio))

	return breaker, nil
}

func setupExecutor(
	cfg *config.Config,
	logger *zap.Logger,
	venueAClient *venueA.Client,
	venueBClient *venueB.Client,
	alerter *alerting.Manager,
	breaker *circuitbreaker.BalanceCircuitBreaker,
	store storage.Storage,
) (*execution.Executor, error) {
	placerA, err := setupVenueAOrderClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup venue A order client: %w", err)
	}

	return execution.New(&execution.Config{
		Logger:           logger,
		DryRun:           cfg.DryRun,
		LiquidityMargin:  cfg.LiquiditySafetyMargin,
		MinOrderDollars:  cfg.MinOrderDollars,
		PlacementTimeout: cfg.PlacementTimeout,
		PlacerA:          placerA,
		PlacerB:          venueBClient,
		BookFetcherA:     venueABookAdapter{client: venueAClient},
		BookFetcherB:     venueBBookAdapter{client: venueBClient},
		Alerter:          alerter,
		CircuitBreaker:   breaker,
		NearMissStorage:  store,
	}), nil
}

func setupVenueAOrderClient(cfg *config.Config, logger *zap.Logger) (*venueA.OrderClient, error) {
	privateKeyHex := os.Getenv("POLYMARKET_PRIVATE_KEY")
	if privateKeyHex == "" && cfg.VenueAProxyURL == "" {
		logger.Warn("venue-a-order-client-disabled",
			zap.String("note", "neither POLYMARKET_PRIVATE_KEY nor VENUE_A_ORDER_PROXY_URL set, venue A orders will fail"))
	}

	return venueA.NewOrderClient(&venueA.OrderClientConfig{
		ProxyURL:      cfg.VenueAProxyURL,
		AuthToken:     cfg.VenueAAuthToken,
		PrivateKeyHex: privateKeyHex,
		Logger:        logger,
	})
}
