package venueB

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/arb-engine/predictionarb/pkg/cache"
	"github.com/arb-engine/predictionarb/pkg/types"
)

// bookCacheTTL bounds how long a venue B book quote is reused across
// repeated FetchBook calls. Venue B has no streaming feed, so both
// discovery polling and the executor's liquidity probe hit this endpoint
// directly; a short TTL absorbs bursts of same-second lookups for the
// same market without letting quotes go stale against scanInterval.
const bookCacheTTL = 2 * time.Second

// Client is the venue B REST client: market discovery, order book
// polling, balance lookup and order placement (PlaceOrder).
type Client struct {
	http   *resty.Client
	signer *Signer
	logger *zap.Logger
	cache  cache.Cache // optional; nil disables book caching
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	Signer     *Signer
	Logger     *zap.Logger
	HTTPClient *resty.Client // optional override, mainly for tests
	Cache      cache.Cache   // optional; caches FetchBook results briefly
}

// NewClient builds a venue B client.
func NewClient(cfg *Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(10 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(200 * time.Millisecond)
	}
	return &Client{http: httpClient, signer: cfg.Signer, logger: cfg.Logger, cache: cfg.Cache}
}

type wireMarket struct {
	Ticker     string  `json:"ticker"`
	Title      string  `json:"title"`
	EventTitle string  `json:"event_title"`
	YesBid     int     `json:"yes_bid"`
	YesAsk     int     `json:"yes_ask"`
	NoBid      int     `json:"no_bid"`
	NoAsk      int     `json:"no_ask"`
	Status     string  `json:"status"`
	CloseTime  string  `json:"close_time"`
	Volume     float64 `json:"volume"`
}

type marketsResponse struct {
	Markets []wireMarket `json:"markets"`
	Cursor  string       `json:"cursor"`
}

// FetchActiveMarkets retrieves open venue B markets and maps them to the
// shared Outcome model: a Kalshi-style binary market
// maps to a single Outcome with both YES and NO sides already embedded.
func (c *Client) FetchActiveMarkets(ctx context.Context) ([]types.Outcome, error) {
	var out marketsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"status": "open", "limit": "1000"}).
		SetResult(&out).
		Get("/trade-api/v2/markets")
	if err != nil {
		return nil, fmt.Errorf("fetch venue B markets: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("venue B markets error (status %d): %s", resp.StatusCode(), resp.String())
	}

	outcomes := make([]types.Outcome, 0, len(out.Markets))
	for _, m := range out.Markets {
		title := m.Title
		if title == "" {
			title = m.EventTitle
		}
		outcomes = append(outcomes, types.Outcome{
			Venue:         types.VenueB,
			MarketID:      m.Ticker,
			OutcomeTitle:  title,
			YesID:         m.Ticker,
			NoID:          m.Ticker,
			YesPriceCents: m.YesAsk,
			NoPriceCents:  m.NoAsk,
			VolumeUSD:     m.Volume,
		})
	}
	return outcomes, nil
}

// FetchBook returns a synthesized one-level order book for a venue B
// market, serving a cached copy when one is still fresh.
func (c *Client) FetchBook(ctx context.Context, outcomeID string, side types.Side) (types.OrderBook, error) {
	cacheKey := "book:" + outcomeID
	if c.cache != nil {
		if cached, ok := c.cache.Get(cacheKey); ok {
			return askBook(cached.(wireMarket), side), nil
		}
	}

	var out wireMarket
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/trade-api/v2/markets/" + outcomeID)
	if err != nil {
		return types.OrderBook{}, fmt.Errorf("fetch venue B market %s: %w", outcomeID, err)
	}
	if resp.IsError() {
		return types.OrderBook{}, fmt.Errorf("venue B market error (status %d): %s", resp.StatusCode(), resp.String())
	}

	if c.cache != nil {
		c.cache.Set(cacheKey, out, bookCacheTTL)
	}
	return askBook(out, side), nil
}

// askBook is approximated with the best price at a generous assumed
// size: Kalshi exposes top-of-book bid/ask per side rather than a full
// depth ladder over this endpoint, so callers that need book-walking
// precision treat venue B fills as effectively unconstrained at the
// quoted price.
func askBook(m wireMarket, side types.Side) types.OrderBook {
	ask := m.YesAsk
	if side == types.SideNo {
		ask = m.NoAsk
	}
	const assumedDepth = 10000.0
	return types.OrderBook{
		Asks: []types.PriceLevel{{Price: types.CentsToDecimal(ask), Size: assumedDepth}},
	}
}

type balanceResponse struct {
	BalanceCents int64 `json:"balance"`
}

// GetBalance implements circuitbreaker.BalanceFetcher: the tradable USD
// balance held at venue B.
func (c *Client) GetBalance(ctx context.Context) (float64, error) {
	var out balanceResponse
	req := c.http.R().SetContext(ctx).SetResult(&out)
	if c.signer != nil {
		ts, sig, err := c.signer.Sign("GET", "/trade-api/v2/portfolio/balance")
		if err != nil {
			return 0, err
		}
		req.SetHeader("KALSHI-ACCESS-KEY", c.signer.KeyID()).
			SetHeader("KALSHI-ACCESS-TIMESTAMP", ts).
			SetHeader("KALSHI-ACCESS-SIGNATURE", sig)
	}

	resp, err := req.Get("/trade-api/v2/portfolio/balance")
	if err != nil {
		return 0, fmt.Errorf("fetch venue B balance: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("venue B balance error (status %d): %s", resp.StatusCode(), resp.String())
	}

	return float64(out.BalanceCents) / 100.0, nil
}
