package venueA

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arb-engine/predictionarb/internal/execution"
	"github.com/arb-engine/predictionarb/pkg/types"
)

func TestNewOrderClient_RequiresKeyOrProxy(t *testing.T) {
	_, err := NewOrderClient(&OrderClientConfig{Logger: zap.NewNop()})
	require.Error(t, err)
}

func TestPlaceOrder_ViaProxy(t *testing.T) {
	var gotAuth, gotAction string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotAction, _ = body["action"].(string)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":    true,
			"orderId":    "proxy-order-1",
			"filledSize": 10.0,
			"avgPrice":   0.4,
		})
	}))
	defer srv.Close()

	client, err := NewOrderClient(&OrderClientConfig{
		ProxyURL:  srv.URL,
		AuthToken: "test-token",
		Logger:    zap.NewNop(),
	})
	require.NoError(t, err)

	conf, err := client.PlaceOrder(context.Background(), execution.Leg{
		Venue:      types.VenueA,
		Side:       types.SideYes,
		Action:     types.ActionBuy,
		OutcomeID:  "token-123",
		PriceCents: 40,
	}, 10)
	require.NoError(t, err)
	assert.Equal(t, "proxy-order-1", conf.OrderID)
	assert.Equal(t, 10.0, conf.FilledContracts)
	assert.Equal(t, 40, conf.AvgPriceCents)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "polymarket_order", gotAction)
}

func TestPlaceOrder_ViaProxy_RejectsWrongVenue(t *testing.T) {
	client, err := NewOrderClient(&OrderClientConfig{ProxyURL: "http://unused", Logger: zap.NewNop()})
	require.NoError(t, err)

	_, err = client.PlaceOrder(context.Background(), execution.Leg{Venue: types.VenueB, PriceCents: 40}, 1)
	assert.Error(t, err)
}

func TestPlaceOrder_ViaProxy_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   "insufficient balance",
		})
	}))
	defer srv.Close()

	client, err := NewOrderClient(&OrderClientConfig{ProxyURL: srv.URL, Logger: zap.NewNop()})
	require.NoError(t, err)

	_, err = client.PlaceOrder(context.Background(), execution.Leg{
		Venue: types.VenueA, OutcomeID: "tok", PriceCents: 40,
	}, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient balance")
}
