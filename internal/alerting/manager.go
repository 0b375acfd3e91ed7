// Package alerting implements the cooldown/dedup/batched webhook alert
// manager, grounded on the circuit breaker's
// ticker-driven background-monitor-loop shape and go-resty for outbound
// webhook delivery.
package alerting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/arb-engine/predictionarb/pkg/types"
)

const defaultCooldown = 60 * time.Second
const defaultBatchInterval = 5 * time.Second
const defaultWebhookTimeout = 5 * time.Second

// Config configures a Manager.
type Config struct {
	WebhookURL     string
	WebhookTimeout time.Duration
	Cooldown       time.Duration // per-type dedup window
	BatchInterval  time.Duration // how often batched (non-critical) alerts flush
	Logger         *zap.Logger
	HTTPClient     *resty.Client // optional override, mainly for tests
}

// Manager is the alert gateway every other component sends notifications
// through. Critical alerts bypass the cooldown/batch machinery and are
// delivered immediately; everything else is deduplicated per alert type
// within the cooldown window and flushed in batches.
type Manager struct {
	webhookURL string
	cooldown   time.Duration
	batchWait  time.Duration
	logger     *zap.Logger
	http       *resty.Client

	mu       sync.Mutex
	lastSent map[string]time.Time
	pending  []types.AlertEnvelope
}

// New builds a Manager. An empty WebhookURL disables outbound delivery;
// alerts are still deduplicated and logged.
func New(cfg *Config) *Manager {
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	batchWait := cfg.BatchInterval
	if batchWait <= 0 {
		batchWait = defaultBatchInterval
	}
	timeout := cfg.WebhookTimeout
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resty.New().SetTimeout(timeout).SetRetryCount(1)
	}

	return &Manager{
		webhookURL: cfg.WebhookURL,
		cooldown:   cooldown,
		batchWait:  batchWait,
		logger:     cfg.Logger,
		http:       httpClient,
		lastSent:   make(map[string]time.Time),
	}
}

// Send implements execution.Alerter: a critical alert bypasses cooldown
// and batching and is delivered synchronously; lower-severity alerts are
// deduplicated and queued for the next batch flush.
func (m *Manager) Send(ctx context.Context, alertType, message string, level types.AlertLevel) {
	envelope := types.AlertEnvelope{
		Type:         alertType,
		Message:      message,
		Level:        level,
		TimestampISO: time.Now().UTC().Format(time.RFC3339Nano),
		Source:       "predictionarb",
	}

	if level == types.AlertCritical {
		m.logger.Error("alert-critical", zap.String("type", alertType), zap.String("message", message))
		m.deliver(ctx, []types.AlertEnvelope{envelope})
		return
	}

	m.mu.Lock()
	if last, ok := m.lastSent[alertType]; ok && time.Since(last) < m.cooldown {
		m.mu.Unlock()
		return
	}
	m.lastSent[alertType] = time.Now()
	m.pending = append(m.pending, envelope)
	m.mu.Unlock()

	logFn := m.logger.Info
	if level == types.AlertWarn {
		logFn = m.logger.Warn
	}
	logFn("alert-queued", zap.String("type", alertType), zap.String("message", message))
}

// Start begins the background batch-flush loop. Runs until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	go m.flushLoop(ctx)
}

func (m *Manager) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(m.batchWait)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.flush(ctx)
		}
	}
}

func (m *Manager) flush(ctx context.Context) {
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return
	}
	batch := m.pending
	m.pending = nil
	m.mu.Unlock()

	m.deliver(ctx, batch)
}

func (m *Manager) deliver(ctx context.Context, envelopes []types.AlertEnvelope) {
	AlertsSent.Add(float64(len(envelopes)))

	if m.webhookURL == "" {
		return
	}

	resp, err := m.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"alerts": envelopes}).
		Post(m.webhookURL)
	if err != nil {
		AlertDeliveryFailures.Inc()
		m.logger.Error("webhook-delivery-failed", zap.Error(err), zap.Int("count", len(envelopes)))
		return
	}
	if resp.IsError() {
		AlertDeliveryFailures.Inc()
		m.logger.Error("webhook-delivery-rejected",
			zap.Int("status", resp.StatusCode()),
			zap.String("body", resp.String()))
		return
	}
	AlertsSent.Add(float64(len(envelopes)))
}

// Convenience alerts.

func (m *Manager) TradeExecuted(ctx context.Context, market string, profitCents int) {
	m.Send(ctx, "trade_executed", fmt.Sprintf("%s: executed, profit %dc", market, profitCents), types.AlertInfo)
}

func (m *Manager) TradeFailed(ctx context.Context, market, reason string) {
	m.Send(ctx, "trade_failed", fmt.Sprintf("%s: %s", market, reason), types.AlertWarn)
}

func (m *Manager) CircuitBreakerTripped(ctx context.Context, minBalance, threshold float64) {
	m.Send(ctx, "circuit_breaker_tripped",
		fmt.Sprintf("balance %.2f fell below threshold %.2f", minBalance, threshold),
		types.AlertCritical)
}

func (m *Manager) CircuitBreakerReset(ctx context.Context, minBalance float64) {
	m.Send(ctx, "circuit_breaker_reset", fmt.Sprintf("balance recovered to %.2f", minBalance), types.AlertInfo)
}

func (m *Manager) PositionRedeemed(ctx context.Context, market string, amountCents int) {
	m.Send(ctx, "position_redeemed", fmt.Sprintf("%s: redeemed %dc", market, amountCents), types.AlertInfo)
}

func (m *Manager) DailySummary(ctx context.Context, tradeCount int, netProfitCents int) {
	m.Send(ctx, "daily_summary", fmt.Sprintf("%d trades, net %dc", tradeCount, netProfitCents), types.AlertInfo)
}

func (m *Manager) BotStarted(ctx context.Context) {
	m.Send(ctx, "bot_started", "prediction arb engine started", types.AlertInfo)
}

func (m *Manager) BotStopped(ctx context.Context, reason string) {
	m.Send(ctx, "bot_stopped", reason, types.AlertWarn)
}

func (m *Manager) BigOpportunity(ctx context.Context, market string, profitCents int) {
	m.Send(ctx, "big_opportunity", fmt.Sprintf("%s: %dc profit opportunity", market, profitCents), types.AlertInfo)
}
