package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/arb-engine/predictionarb/pkg/types"
)

type fakePlacer struct {
	conf *Confirmation
	err  error
	calls int
}

func (f *fakePlacer) PlaceOrder(ctx context.Context, leg Leg, contracts float64) (*Confirmation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.conf, nil
}

type fakeBookFetcher struct {
	book types.OrderBook
	err  error
}

func (f *fakeBookFetcher) FetchBook(ctx context.Context, venue types.Venue, outcomeID string) (types.OrderBook, error) {
	return f.book, f.err
}

type fakeAlerter struct {
	sent []string
}

func (f *fakeAlerter) Send(ctx context.Context, alertType, message string, level types.AlertLevel) {
	f.sent = append(f.sent, alertType)
}

func deepBook() types.OrderBook {
	return types.OrderBook{Asks: []types.PriceLevel{{Price: 0.5, Size: 1000}}}
}

func testOpp() *types.Opportunity {
	return &types.Opportunity{Name: "test-market", Strategy: types.StrategyS1, NetProfitCents: 20}
}

func testMapping() Mapping {
	return Mapping{
		LegA: Leg{Venue: types.VenueA, Side: types.SideYes, Action: types.ActionBuy, OutcomeID: "tokenA", PriceCents: 40},
		LegB: Leg{Venue: types.VenueB, Side: types.SideNo, Action: types.ActionBuy, OutcomeID: "tickerB", PriceCents: 40},
	}
}

func newTestExecutor(t *testing.T, placerA, placerB OrderPlacer, dryRun bool) *Executor {
	t.Helper()
	return New(&Config{
		Logger:           zaptest.NewLogger(t),
		DryRun:           dryRun,
		LiquidityMargin:  0.5,
		MinOrderDollars:  1.10,
		PlacementTimeout: time.Second,
		ProbeTimeout:     time.Second,
		PlacerA:          placerA,
		PlacerB:          placerB,
		BookFetcherA:     &fakeBookFetcher{book: deepBook()},
		BookFetcherB:     &fakeBookFetcher{book: deepBook()},
	})
}

func TestExecute_SkipMinOrder(t *testing.T) {
	e := newTestExecutor(t, &fakePlacer{}, &fakePlacer{}, false)
	mapping := testMapping()
	mapping.LegA.PriceCents = 1 // 1 contract at 1 cent = $0.01 < $1.10

	result := e.Execute(context.Background(), testOpp(), mapping, 1)
	if result.Success {
		t.Fatal("expected failure for below-minimum order")
	}
	entries := e.AuditEntries()
	if len(entries) != 1 || entries[0].Type != types.AuditSkipMinOrder {
		t.Fatalf("expected one SKIP_MIN_ORDER audit entry, got %+v", entries)
	}
}

func TestExecute_SkipLiquidity(t *testing.T) {
	e := New(&Config{
		Logger:           zaptest.NewLogger(t),
		LiquidityMargin:  0.5,
		MinOrderDollars:  1.10,
		PlacementTimeout: time.Second,
		ProbeTimeout:     time.Second,
		PlacerA:          &fakePlacer{},
		PlacerB:          &fakePlacer{},
		BookFetcherA:     &fakeBookFetcher{book: types.OrderBook{Asks: []types.PriceLevel{{Price: 0.4, Size: 1}}}},
		BookFetcherB:     &fakeBookFetcher{book: deepBook()},
	})

	result := e.Execute(context.Background(), testOpp(), testMapping(), 100)
	if result.Success {
		t.Fatal("expected failure for insufficient liquidity")
	}
	entries := e.AuditEntries()
	if len(entries) != 1 || entries[0].Type != types.AuditSkipLiquidity {
		t.Fatalf("expected one SKIP_LIQUIDITY audit entry, got %+v", entries)
	}
}

func TestExecute_DryRun(t *testing.T) {
	e := newTestExecutor(t, &fakePlacer{}, &fakePlacer{}, true)
	result := e.Execute(context.Background(), testOpp(), testMapping(), 10)
	if !result.Success || !result.DryRun {
		t.Fatalf("expected dry-run success, got %+v", result)
	}
	entries := e.AuditEntries()
	if len(entries) != 1 || entries[0].Type != types.AuditDryRun {
		t.Fatalf("expected one DRY_RUN audit entry, got %+v", entries)
	}
}

func TestExecute_BothLegsFilled(t *testing.T) {
	placerA := &fakePlacer{conf: &Confirmation{OrderID: "a-1", FilledContracts: 10, AvgPriceCents: 40}}
	placerB := &fakePlacer{conf: &Confirmation{OrderID: "b-1", FilledContracts: 10, AvgPriceCents: 40}}
	e := newTestExecutor(t, placerA, placerB, false)

	result := e.Execute(context.Background(), testOpp(), testMapping(), 10)
	if !result.Success || result.CriticalPartialFill {
		t.Fatalf("expected clean success, got %+v", result)
	}
	entries := e.AuditEntries()
	if len(entries) != 1 || entries[0].Type != types.AuditExecuted {
		t.Fatalf("expected one EXECUTED audit entry, got %+v", entries)
	}
}

func TestExecute_CriticalPartialFill(t *testing.T) {
	placerA := &fakePlacer{conf: &Confirmation{OrderID: "a-1", FilledContracts: 10, AvgPriceCents: 40}}
	placerB := &fakePlacer{err: errors.New("transport error")}
	alerter := &fakeAlerter{}

	e := New(&Config{
		Logger:           zaptest.NewLogger(t),
		LiquidityMargin:  0.5,
		MinOrderDollars:  1.10,
		PlacementTimeout: time.Second,
		ProbeTimeout:     time.Second,
		PlacerA:          placerA,
		PlacerB:          placerB,
		BookFetcherA:     &fakeBookFetcher{book: deepBook()},
		BookFetcherB:     &fakeBookFetcher{book: deepBook()},
		Alerter:          alerter,
	})

	result := e.Execute(context.Background(), testOpp(), testMapping(), 10)
	if result.Success {
		t.Fatal("expected failure for partial fill")
	}
	if !result.CriticalPartialFill {
		t.Error("expected CriticalPartialFill flag set")
	}
	entries := e.AuditEntries()
	if len(entries) != 1 || entries[0].Type != types.AuditCriticalPartialFill {
		t.Fatalf("expected one CRITICAL_PARTIAL_FILL audit entry, got %+v", entries)
	}
	if len(alerter.sent) != 1 {
		t.Fatalf("expected exactly one alert raised, got %d", len(alerter.sent))
	}
}

func TestExecute_BothFailed(t *testing.T) {
	placerA := &fakePlacer{err: errors.New("rejected: bad request")}
	placerB := &fakePlacer{err: errors.New("timeout")}
	e := newTestExecutor(t, placerA, placerB, false)

	result := e.Execute(context.Background(), testOpp(), testMapping(), 10)
	if result.Success || result.CriticalPartialFill {
		t.Fatalf("expected both-failed result, got %+v", result)
	}
	entries := e.AuditEntries()
	if len(entries) != 1 || entries[0].Type != types.AuditBothFailed {
		t.Fatalf("expected one BOTH_FAILED audit entry, got %+v", entries)
	}
}

func TestExecute_NeverPlacesMoreThanTwoOrders(t *testing.T) {
	placerA := &fakePlacer{conf: &Confirmation{OrderID: "a-1", FilledContracts: 10, AvgPriceCents: 40}}
	placerB := &fakePlacer{conf: &Confirmation{OrderID: "b-1", FilledContracts: 10, AvgPriceCents: 40}}
	e := newTestExecutor(t, placerA, placerB, false)

	e.Execute(context.Background(), testOpp(), testMapping(), 10)

	if placerA.calls != 1 || placerB.calls != 1 {
		t.Fatalf("expected exactly one call per leg, got A=%d B=%d", placerA.calls, placerB.calls)
	}
}

func TestAuditRing_BoundedFIFO(t *testing.T) {
	ring := NewAuditRing(3)
	for i := 0; i < 5; i++ {
		ring.Append(types.AuditEntry{Market: string(rune('a' + i))})
	}
	snapshot := ring.Snapshot()
	if len(snapshot) != 3 {
		t.Fatalf("expected ring capped at 3 entries, got %d", len(snapshot))
	}
	if snapshot[0].Market != "c" || snapshot[2].Market != "e" {
		t.Fatalf("expected oldest-evicted FIFO order [c,d,e], got %+v", snapshot)
	}
}
