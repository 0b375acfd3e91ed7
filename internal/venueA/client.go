// Package venueA implements the on-chain CLOB-style venue: Polymarket
// Gamma-shaped REST API, streaming order book feed, and order placement.
package venueA

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/arb-engine/predictionarb/pkg/types"
)

// wireMarket mirrors the Gamma API's market payload shape: clobTokenIds
// and outcomePrices sometimes arrive JSON-encoded as a string rather than
// as a native array, so both are decoded leniently.
type wireMarket struct {
	Slug          string          `json:"slug"`
	ConditionID   string          `json:"conditionId"`
	ID            string          `json:"id"`
	Question      string          `json:"question"`
	ClobTokenIDs  json.RawMessage `json:"clobTokenIds"`
	OutcomePrices json.RawMessage `json:"outcomePrices"`
	Volume        string          `json:"volume"`
}

type wireBook struct {
	Bids []wireLevel `json:"bids"`
	Asks []wireLevel `json:"asks"`
}

type wireLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// Client is the venue-A REST client. It uses the standard library
// net/http directly rather than resty: the Gamma API surface here is a
// couple of plain GETs with lenient JSON decoding, the same shape as the
// original discovery client this was adapted from.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a venue-A REST client.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// FetchActiveMarkets fetches active, non-closed markets with at least two
// outcomes, parsed into the venue-neutral Outcome shape.
func (c *Client) FetchActiveMarkets(ctx context.Context, limit int) ([]types.Outcome, error) {
	return c.fetchMarkets(ctx, limit, false)
}

// FetchClosedMarkets fetches recently-closed markets, parsed into the
// venue-neutral Outcome shape. Used by the resolution watcher, which needs
// a market's final settled prices rather than its still-active ones.
func (c *Client) FetchClosedMarkets(ctx context.Context, limit int) ([]types.Outcome, error) {
	return c.fetchMarkets(ctx, limit, true)
}

func (c *Client) fetchMarkets(ctx context.Context, limit int, closed bool) ([]types.Outcome, error) {
	params := url.Values{}
	params.Add("active", strconv.FormatBool(!closed))
	params.Add("closed", strconv.FormatBool(closed))
	params.Add("limit", strconv.Itoa(limit))

	reqURL := fmt.Sprintf("%s/markets?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch markets: status %d: %s", resp.StatusCode, string(body))
	}

	var raw []wireMarket
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal markets: %w", err)
	}

	outcomes := make([]types.Outcome, 0, len(raw))
	for _, m := range raw {
		outcome, err := m.toOutcome()
		if err != nil {
			c.logger.Debug("skipping-malformed-market", zap.String("slug", m.Slug), zap.Error(err))
			continue
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

func (m wireMarket) toOutcome() (types.Outcome, error) {
	tokenIDs, err := decodeStringArray(m.ClobTokenIDs)
	if err != nil || len(tokenIDs) < 2 {
		return types.Outcome{}, fmt.Errorf("missing or malformed clobTokenIds")
	}
	prices, err := decodeStringArray(m.OutcomePrices)
	if err != nil || len(prices) < 2 {
		return types.Outcome{}, fmt.Errorf("missing or malformed outcomePrices")
	}

	yesPrice, err := strconv.ParseFloat(prices[0], 64)
	if err != nil {
		return types.Outcome{}, fmt.Errorf("parse yes price: %w", err)
	}
	noPrice, err := strconv.ParseFloat(prices[1], 64)
	if err != nil {
		return types.Outcome{}, fmt.Errorf("parse no price: %w", err)
	}

	marketID := m.ConditionID
	if marketID == "" {
		marketID = m.ID
	}

	volume, _ := strconv.ParseFloat(m.Volume, 64)

	return types.Outcome{
		Venue:         types.VenueA,
		MarketID:      marketID,
		OutcomeTitle:  m.Question,
		YesID:         tokenIDs[0],
		NoID:          tokenIDs[1],
		YesPriceCents: types.DecimalToCents(yesPrice),
		NoPriceCents:  types.DecimalToCents(noPrice),
		VolumeUSD:     volume,
	}, nil
}

// decodeStringArray accepts a JSON value that is either a native array of
// strings or a JSON-encoded string containing that array (both forms are
// seen in the wild from the Gamma API).
func decodeStringArray(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty field")
	}

	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil {
		return arr, nil
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, fmt.Errorf("neither array nor encoded string: %w", err)
	}
	if err := json.Unmarshal([]byte(encoded), &arr); err != nil {
		return nil, fmt.Errorf("decode nested array: %w", err)
	}
	return arr, nil
}

// FetchBook fetches the full two-sided ladder for one token.
func (c *Client) FetchBook(ctx context.Context, tokenID string) (types.OrderBook, error) {
	reqURL := fmt.Sprintf("%s/book?token_id=%s", c.baseURL, url.QueryEscape(tokenID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return types.OrderBook{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.OrderBook{}, fmt.Errorf("fetch book: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.OrderBook{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return types.OrderBook{}, fmt.Errorf("fetch book: status %d: %s", resp.StatusCode, string(body))
	}

	var raw wireBook
	if err := json.Unmarshal(body, &raw); err != nil {
		return types.OrderBook{}, fmt.Errorf("unmarshal book: %w", err)
	}

	return types.OrderBook{
		TokenID: tokenID,
		Bids:    decodeLevels(raw.Bids),
		Asks:    decodeLevels(raw.Asks),
	}, nil
}

func decodeLevels(wire []wireLevel) []types.PriceLevel {
	levels := make([]types.PriceLevel, 0, len(wire))
	for _, l := range wire {
		price, err := strconv.ParseFloat(l.Price, 64)
		if err != nil {
			continue
		}
		size, err := strconv.ParseFloat(l.Size, 64)
		if err != nil {
			continue
		}
		levels = append(levels, types.PriceLevel{Price: price, Size: size})
	}
	return levels
}
