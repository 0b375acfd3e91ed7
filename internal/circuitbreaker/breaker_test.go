package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type fakeBalanceFetcher struct {
	balance float64
	err     error
}

func (f *fakeBalanceFetcher) GetBalance(ctx context.Context) (float64, error) {
	return f.balance, f.err
}

func validConfig(t *testing.T, a, b BalanceFetcher) *Config {
	t.Helper()
	return &Config{
		CheckInterval:   5 * time.Minute,
		TradeMultiplier: 3.0,
		MinAbsolute:     5.0,
		HysteresisRatio: 1.5,
		VenueA:          a,
		VenueB:          b,
		Logger:          zaptest.NewLogger(t),
	}
}

func TestNew(t *testing.T) {
	a := &fakeBalanceFetcher{balance: 100}
	b := &fakeBalanceFetcher{balance: 100}

	t.Run("valid-config", func(t *testing.T) {
		breaker, err := New(validConfig(t, a, b))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !breaker.IsEnabled() {
			t.Error("expected breaker to start enabled")
		}
	})

	t.Run("nil-config", func(t *testing.T) {
		if _, err := New(nil); err == nil {
			t.Fatal("expected error for nil config")
		}
	})

	t.Run("missing-venue-fetchers", func(t *testing.T) {
		cfg := validConfig(t, a, b)
		cfg.VenueB = nil
		if _, err := New(cfg); err == nil {
			t.Fatal("expected error for missing venue B fetcher")
		}
	})

	t.Run("bad-hysteresis", func(t *testing.T) {
		cfg := validConfig(t, a, b)
		cfg.HysteresisRatio = 0.5
		if _, err := New(cfg); err == nil {
			t.Fatal("expected error for hysteresis ratio < 1.0")
		}
	})
}

func TestCheckBalance_DisablesOnEitherVenueLow(t *testing.T) {
	a := &fakeBalanceFetcher{balance: 1.0} // below the $5 min absolute
	b := &fakeBalanceFetcher{balance: 100}

	breaker, err := New(validConfig(t, a, b))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := breaker.CheckBalance(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if breaker.IsEnabled() {
		t.Error("expected breaker to disable when venue A balance is below threshold, even though venue B is healthy")
	}
}

func TestCheckBalance_ReenablesAboveHysteresisThreshold(t *testing.T) {
	a := &fakeBalanceFetcher{balance: 1.0}
	b := &fakeBalanceFetcher{balance: 100}

	breaker, err := New(validConfig(t, a, b))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := breaker.CheckBalance(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if breaker.IsEnabled() {
		t.Fatal("expected breaker disabled before re-check")
	}

	a.balance = 50 // well above enableThreshold (5 * 1.5 = 7.5)
	if err := breaker.CheckBalance(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !breaker.IsEnabled() {
		t.Error("expected breaker to re-enable once both venues clear the enable threshold")
	}
}

func TestCheckBalance_BothVenuesFail(t *testing.T) {
	a := &fakeBalanceFetcher{err: errors.New("timeout")}
	b := &fakeBalanceFetcher{err: errors.New("timeout")}

	breaker, err := New(validConfig(t, a, b))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := breaker.CheckBalance(context.Background()); err == nil {
		t.Fatal("expected error when both venues fail")
	}
}

func TestCheckBalance_OneVenueFailsStillChecksOther(t *testing.T) {
	a := &fakeBalanceFetcher{err: errors.New("timeout")}
	b := &fakeBalanceFetcher{balance: 1.0}

	breaker, err := New(validConfig(t, a, b))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := breaker.CheckBalance(context.Background()); err != nil {
		t.Fatalf("expected no error (one venue still reachable), got %v", err)
	}
	if breaker.IsEnabled() {
		t.Error("expected breaker disabled based on venue B's low balance alone")
	}
}

func TestRecordTrade_UpdatesThresholds(t *testing.T) {
	a := &fakeBalanceFetcher{balance: 100}
	b := &fakeBalanceFetcher{balance: 100}

	breaker, err := New(validConfig(t, a, b))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	breaker.RecordTrade(10)
	breaker.RecordTrade(20)

	status := breaker.GetStatus()
	if status.RecentTradeCount != 2 {
		t.Errorf("expected 2 recorded trades, got %d", status.RecentTradeCount)
	}
	if status.AvgTradeSize != 15 {
		t.Errorf("expected avg trade size 15, got %f", status.AvgTradeSize)
	}
	wantDisable := 15.0 * 3.0 // tradeMultiplier
	if status.DisableThreshold != wantDisable {
		t.Errorf("expected disable threshold %f, got %f", wantDisable, status.DisableThreshold)
	}
}

func TestRecordTrade_IgnoresNonPositive(t *testing.T) {
	a := &fakeBalanceFetcher{balance: 100}
	b := &fakeBalanceFetcher{balance: 100}

	breaker, err := New(validConfig(t, a, b))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	breaker.RecordTrade(-5)
	breaker.RecordTrade(0)

	if status := breaker.GetStatus(); status.RecentTradeCount != 0 {
		t.Errorf("expected non-positive trades to be ignored, got count %d", status.RecentTradeCount)
	}
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	a := &fakeBalanceFetcher{balance: 100}
	b := &fakeBalanceFetcher{balance: 100}

	cfg := validConfig(t, a, b)
	cfg.CheckInterval = 10 * time.Millisecond
	breaker, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	breaker.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	cancel()
	time.Sleep(30 * time.Millisecond) // let monitorLoop observe cancellation
}
