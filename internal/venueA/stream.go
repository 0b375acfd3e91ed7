package venueA

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/arb-engine/predictionarb/pkg/websocket"
)

// StreamConfig configures the venue-A streaming price feed.
type StreamConfig struct {
	PoolSize int
	WSURL    string
	Logger   *zap.Logger
}

// Stream wraps the websocket pool and republishes its wire messages as
// venue-neutral price updates keyed by token ID.
type Stream struct {
	pool   *websocket.Pool
	logger *zap.Logger
	out    chan PriceUpdate
}

// PriceUpdate is a single token's latest best price, derived from a
// streaming book/price_change message.
type PriceUpdate struct {
	TokenID   string
	BestAsk   float64
	Timestamp time.Time
}

// NewStream creates a venue-A streaming feed.
func NewStream(cfg StreamConfig, logger *zap.Logger) *Stream {
	pool := websocket.NewPool(websocket.PoolConfig{
		Size:                  cfg.PoolSize,
		WSUrl:                 cfg.WSURL,
		DialTimeout:           10 * time.Second,
		PongTimeout:           30 * time.Second,
		PingInterval:          15 * time.Second,
		ReconnectInitialDelay: 5 * time.Second,
		ReconnectMaxDelay:     60 * time.Second,
		ReconnectBackoffMult:  2.0,
		MessageBufferSize:     1000,
		Logger:                logger,
	})

	return &Stream{
		pool:   pool,
		logger: logger,
		out:    make(chan PriceUpdate, 1000),
	}
}

// Start connects the pool and begins republishing price updates.
func (s *Stream) Start() error {
	if err := s.pool.Start(); err != nil {
		return err
	}
	go s.relay()
	return nil
}

// Subscribe adds token IDs to the streaming feed.
func (s *Stream) Subscribe(ctx context.Context, tokenIDs []string) error {
	return s.pool.Subscribe(ctx, tokenIDs)
}

// Updates returns the channel of republished price updates.
func (s *Stream) Updates() <-chan PriceUpdate {
	return s.out
}

// Close shuts down the pool.
func (s *Stream) Close() error {
	return s.pool.Close()
}

func (s *Stream) relay() {
	for msg := range s.pool.MessageChan() {
		if msg == nil || len(msg.Asks) == 0 {
			continue
		}
		ask, err := strconv.ParseFloat(msg.Asks[0].Price, 64)
		if err != nil {
			s.logger.Debug("skipping-unparseable-price", zap.String("asset-id", msg.AssetID))
			continue
		}

		select {
		case s.out <- PriceUpdate{TokenID: msg.AssetID, BestAsk: ask, Timestamp: time.Now()}:
		default:
			s.logger.Warn("price-update-channel-full", zap.String("asset-id", msg.AssetID))
		}
	}
}
