package venueA

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-resty/resty/v2"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"go.uber.org/zap"

	"github.com/arb-engine/predictionarb/internal/execution"
	"github.com/arb-engine/predictionarb/pkg/types"
)

// OrderClient places single-leg orders against the on-chain CLOB. It
// implements execution.OrderPlacer. Two submission paths are supported:
//
//   - Direct signing: the order is built and EIP-712 signed locally with
//     go-order-utils, then POSTed straight to the CLOB order endpoint. This
//     is the path used when a private key is configured.
//   - Proxy forwarding: when VenueAProxyURL is set (and no private key is
//     available locally, e.g. geo-restricted deployments), the unsigned
//     order intent is forwarded to a trusted proxy that holds the key and
//     signs on our behalf.
type OrderClient struct {
	httpClient    *resty.Client
	privateKey    *ecdsa.PrivateKey
	address       string
	proxyAddress  string
	proxyURL      string
	authToken     string
	signatureType model.SignatureType
	orderBuilder  builder.ExchangeOrderBuilder
	logger        *zap.Logger
}

// OrderClientConfig configures an OrderClient.
type OrderClientConfig struct {
	ClobBaseURL   string
	ProxyURL      string // optional order-placement proxy
	AuthToken     string // bearer token for the proxy path
	PrivateKeyHex string // optional; enables direct EIP-712 signing
	ProxyAddress  string // maker/funder address when trading via a proxy wallet
	SignatureType int
	Logger        *zap.Logger
}

const defaultClobBaseURL = "https://clob.polymarket.com"

// NewOrderClient builds an OrderClient. At least one of PrivateKeyHex or
// ProxyURL must be set, or no orders can ever be placed.
func NewOrderClient(cfg *OrderClientConfig) (*OrderClient, error) {
	base := cfg.ClobBaseURL
	if base == "" {
		base = defaultClobBaseURL
	}

	oc := &OrderClient{
		httpClient:    resty.New().SetBaseURL(base).SetTimeout(15 * time.Second),
		proxyURL:      cfg.ProxyURL,
		authToken:     cfg.AuthToken,
		proxyAddress:  cfg.ProxyAddress,
		signatureType: model.SignatureType(cfg.SignatureType),
		logger:        cfg.Logger,
	}

	if cfg.PrivateKeyHex != "" {
		privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse venue A private key: %w", err)
		}
		publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("derive venue A public key: unexpected key type")
		}
		oc.privateKey = privateKey
		oc.address = crypto.PubkeyToAddress(*publicKeyECDSA).Hex()
		oc.orderBuilder = builder.NewExchangeOrderBuilderImpl(big.NewInt(137), nil)
	}

	if oc.privateKey == nil && oc.proxyURL == "" {
		return nil, fmt.Errorf("venue A order client requires a private key or a proxy URL")
	}

	return oc, nil
}

// PlaceOrder submits one leg. The leg's PriceCents and the caller-supplied
// contracts count are combined into a taker buy/sell order sized in raw
// on-chain units.
func (c *OrderClient) PlaceOrder(ctx context.Context, leg execution.Leg, contracts float64) (*execution.Confirmation, error) {
	if leg.Venue != types.VenueA {
		return nil, fmt.Errorf("venue A order client received a %s leg", leg.Venue)
	}
	price := types.CentsToDecimal(leg.PriceCents)
	if price <= 0 || price >= 1 {
		return nil, fmt.Errorf("invalid venue A price %d cents", leg.PriceCents)
	}

	if c.proxyURL != "" {
		return c.placeViaProxy(ctx, leg, contracts, price)
	}
	return c.placeDirect(ctx, leg, contracts, price)
}

// placeViaProxy forwards the order intent to a trusted signer rather than
// signing locally.
func (c *OrderClient) placeViaProxy(ctx context.Context, leg execution.Leg, contracts, price float64) (*execution.Confirmation, error) {
	side := "BUY"
	if leg.Action == types.ActionSell {
		side = "SELL"
	}

	reqBody := map[string]any{
		"action": "polymarket_order",
		"order": map[string]any{
			"tokenID":    leg.OutcomeID,
			"price":      price,
			"side":       side,
			"size":       contracts,
			"feeRateBps": 0,
			"tickSize":   "0.01",
		},
	}

	var out struct {
		Success  bool    `json:"success"`
		OrderID  string  `json:"orderId"`
		Filled   float64 `json:"filledSize"`
		AvgPrice float64 `json:"avgPrice"`
		Error    string  `json:"error"`
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.authToken).
		SetBody(reqBody).
		SetResult(&out).
		Post(c.proxyURL)
	if err != nil {
		return nil, fmt.Errorf("proxy order request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("proxy order rejected (status %d): %s", resp.StatusCode(), resp.String())
	}
	if !out.Success {
		return nil, fmt.Errorf("proxy order failed: %s", out.Error)
	}

	filled := out.Filled
	if filled == 0 {
		filled = contracts
	}
	avg := out.AvgPrice
	if avg == 0 {
		avg = price
	}

	return &execution.Confirmation{
		OrderID:         out.OrderID,
		FilledContracts: filled,
		AvgPriceCents:   types.DecimalToCents(avg),
	}, nil
}

// placeDirect signs the order locally with go-order-utils and submits it
// straight to the CLOB.
func (c *OrderClient) placeDirect(ctx context.Context, leg execution.Leg, contracts, price float64) (*execution.Confirmation, error) {
	makerAddress := c.address
	if c.proxyAddress != "" {
		makerAddress = c.proxyAddress
	}

	side := model.BUY
	if leg.Action == types.ActionSell {
		side = model.SELL
	}

	takerTokens := roundAmount(contracts, 2)
	makerUSD := roundAmount(takerTokens*price, 4)

	orderData := &model.OrderData{
		Maker:         makerAddress,
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenId:       leg.OutcomeID,
		MakerAmount:   usdToRawAmount(makerUSD),
		TakerAmount:   usdToRawAmount(takerTokens),
		Side:          side,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        c.address,
		Expiration:    "0",
		SignatureType: c.signatureType,
	}

	signedOrder, err := c.orderBuilder.BuildSignedOrder(c.privateKey, orderData, model.CTFExchange)
	if err != nil {
		return nil, fmt.Errorf("sign venue A order: %w", err)
	}

	c.logger.Debug("venue-a-order-signed",
		zap.String("maker", makerAddress),
		zap.String("token_id", leg.OutcomeID),
		zap.Float64("contracts", contracts))

	reqBody := map[string]any{
		"order":     convertToOrderJSON(signedOrder),
		"owner":     makerAddress,
		"orderType": "GTC",
	}

	var out struct {
		Success   bool   `json:"success"`
		OrderID   string `json:"orderID"`
		ErrorMsg  string `json:"errorMsg"`
		TakingAmt string `json:"takingAmount"`
		MakingAmt string `json:"makingAmount"`
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(&out).
		Post("/order")
	if err != nil {
		return nil, fmt.Errorf("submit venue A order: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("venue A order rejected (status %d): %s", resp.StatusCode(), resp.String())
	}
	if !out.Success {
		return nil, fmt.Errorf("venue A order failed: %s", out.ErrorMsg)
	}

	return &execution.Confirmation{
		OrderID:         out.OrderID,
		FilledContracts: contracts,
		AvgPriceCents:   leg.PriceCents,
	}, nil
}

// signedOrderJSON mirrors the CLOB's wire representation of a signed order.
type signedOrderJSON struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Side          string `json:"side"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

func convertToOrderJSON(order *model.SignedOrder) signedOrderJSON {
	side := "BUY"
	if order.Side.Uint64() == uint64(model.SELL) {
		side = "SELL"
	}
	return signedOrderJSON{
		Salt:          order.Salt.Int64(),
		Maker:         order.Maker.Hex(),
		Signer:        order.Signer.Hex(),
		Taker:         order.Taker.Hex(),
		TokenID:       order.TokenId.String(),
		MakerAmount:   order.MakerAmount.String(),
		TakerAmount:   order.TakerAmount.String(),
		Side:          side,
		Expiration:    order.Expiration.String(),
		Nonce:         order.Nonce.String(),
		FeeRateBps:    order.FeeRateBps.String(),
		SignatureType: int(order.SignatureType.Int64()),
		Signature:     "0x" + hexEncode(order.Signature),
	}
}

func hexEncode(b []byte) string {
	return fmt.Sprintf("%x", b)
}

func usdToRawAmount(usd float64) string {
	return fmt.Sprintf("%d", int64(usd*1_000_000))
}

func roundAmount(value float64, decimals int) float64 {
	multiplier := math.Pow(10, float64(decimals))
	return math.Round(value*multiplier) / multiplier
}
