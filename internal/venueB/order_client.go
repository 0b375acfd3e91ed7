package venueB

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/arb-engine/predictionarb/internal/execution"
	"github.com/arb-engine/predictionarb/pkg/types"
)

type orderRequest struct {
	Ticker        string `json:"ticker"`
	ClientOrderID string `json:"client_order_id"`
	Side          string `json:"side"`
	Action        string `json:"action"`
	Count         int    `json:"count"`
	Type          string `json:"type"`
	YesPrice      int    `json:"yes_price,omitempty"`
	NoPrice       int    `json:"no_price,omitempty"`
}

type orderResponse struct {
	Order struct {
		OrderID         string `json:"order_id"`
		Status          string `json:"status"`
		FilledCount     int    `json:"filled_count"`
		AveragePriceCts int    `json:"average_fill_price"`
	} `json:"order"`
}

// PlaceOrder submits one leg to venue B's order endpoint. Venue B quotes
// contracts in whole units rather than fractional size, so the caller's
// contracts count is rounded down to the nearest whole contract.
func (c *Client) PlaceOrder(ctx context.Context, leg execution.Leg, contracts float64) (*execution.Confirmation, error) {
	if leg.Venue != types.VenueB {
		return nil, fmt.Errorf("venue B order client received a %s leg", leg.Venue)
	}
	count := int(contracts)
	if count < 1 {
		return nil, fmt.Errorf("venue B order size rounds down to 0 contracts")
	}

	side := "yes"
	if leg.Side == types.SideNo {
		side = "no"
	}
	action := "buy"
	if leg.Action == types.ActionSell {
		action = "sell"
	}

	req := orderRequest{
		Ticker:        leg.OutcomeID,
		ClientOrderID: uuid.NewString(),
		Side:          side,
		Action:        action,
		Count:         count,
		Type:          "limit",
	}
	if side == "yes" {
		req.YesPrice = leg.PriceCents
	} else {
		req.NoPrice = leg.PriceCents
	}

	const path = "/trade-api/v2/portfolio/orders"
	httpReq := c.http.R().SetContext(ctx).SetBody(req)

	var out orderResponse
	httpReq.SetResult(&out)
	if c.signer != nil {
		ts, sig, err := c.signer.Sign("POST", path)
		if err != nil {
			return nil, err
		}
		httpReq.SetHeader("KALSHI-ACCESS-KEY", c.signer.KeyID()).
			SetHeader("KALSHI-ACCESS-TIMESTAMP", ts).
			SetHeader("KALSHI-ACCESS-SIGNATURE", sig)
	}

	resp, err := httpReq.Post(path)
	if err != nil {
		return nil, fmt.Errorf("submit venue B order: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("venue B order rejected (status %d): %s", resp.StatusCode(), resp.String())
	}

	filled := float64(out.Order.FilledCount)
	if filled == 0 {
		filled = contracts
	}
	avgPrice := out.Order.AveragePriceCts
	if avgPrice == 0 {
		avgPrice = leg.PriceCents
	}

	return &execution.Confirmation{
		OrderID:         out.Order.OrderID,
		FilledContracts: filled,
		AvgPriceCents:   avgPrice,
	}, nil
}
