package paper

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap/zaptest"

	"binary_bot/internal/broker"
	"binary_bot/internal/feed"
	"binary_bot/internal/models"
)

var t0 = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func newBroker(t *testing.T) *Broker {
	src := feed.NewSynthetic(100, 0.5, 7).WithClock(func() time.Time { return t0 })
	b := New(Config{TickInterval: time.Hour}, 1000, src, zaptest.NewLogger(t))
	if err := b.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestPlaceOrderFillsAtLatestPrice(t *testing.T) {
	b := newBroker(t)
	b.Record(models.PriceSample{Value: 123.4, Timestamp: t0.Add(time.Second)})

	fill, err := b.PlaceOrder(context.Background(), broker.OrderRequest{
		Instrument: "R_50", Direction: models.DirectionUp, Stake: 10, Duration: time.Minute,
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if fill.EntryPrice != 123.4 || fill.PayoutRate != 0.85 || fill.ID == "" {
		t.Fatalf("unexpected fill %+v", fill)
	}

	other, _ := b.PlaceOrder(context.Background(), broker.OrderRequest{
		Instrument: "R_50", Direction: models.DirectionUp, Stake: 10, Duration: time.Minute,
	})
	if other.ID == fill.ID {
		t.Fatalf("contract ids must be unique")
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	b := newBroker(t)
	bad := []broker.OrderRequest{
		{Direction: models.DirectionUp, Stake: 0, Duration: time.Minute},
		{Direction: models.DirectionUp, Stake: 10},
		{Direction: "SIDEWAYS", Stake: 10, Duration: time.Minute},
	}
	for _, req := range bad {
		if _, err := b.PlaceOrder(context.Background(), req); !errors.Is(err, models.ErrOrderRejected) {
			t.Fatalf("%+v: expected ErrOrderRejected, got %v", req, err)
		}
	}
}

func TestPlaceOrderRequiresConnection(t *testing.T) {
	b := New(Config{}, 1000, nil, zaptest.NewLogger(t))
	_, err := b.PlaceOrder(context.Background(), broker.OrderRequest{Direction: models.DirectionUp, Stake: 1, Duration: time.Second})
	if !errors.Is(err, models.ErrConnection) {
		t.Fatalf("expected ErrConnection, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	b := newBroker(t)
	expiry := t0.Add(5 * time.Minute)
	b.Record(models.PriceSample{Value: 99, Timestamp: expiry.Add(-time.Second)})
	b.Record(models.PriceSample{Value: 101, Timestamp: expiry.Add(time.Second)})
	b.Record(models.PriceSample{Value: 90, Timestamp: expiry.Add(3 * time.Second)})

	cases := []struct {
		dir   models.Direction
		entry float64
		want  models.TradeResult
	}{
		{models.DirectionUp, 100, models.ResultWin},
		{models.DirectionDown, 100, models.ResultLoss},
		{models.DirectionDown, 102, models.ResultWin},
		{models.DirectionUp, 101, models.ResultLoss},
		{models.DirectionDown, 101, models.ResultLoss},
	}
	for _, tc := range cases {
		out, err := b.Resolve(context.Background(), models.Trade{ID: "x", Direction: tc.dir, EntryPrice: tc.entry, ExpiresAt: expiry})
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if out.Result != tc.want || out.ExitPrice != 101 {
			t.Fatalf("%s entry=%v: got %+v, want %s", tc.dir, tc.entry, out, tc.want)
		}
	}
}

func TestResolveWaitsForExitPrice(t *testing.T) {
	b := newBroker(t)
	_, err := b.Resolve(context.Background(), models.Trade{ID: "x", Direction: models.DirectionUp, ExpiresAt: t0.Add(time.Hour)})
	if !errors.Is(err, errNoExitPrice) {
		t.Fatalf("expected errNoExitPrice, got %v", err)
	}
}

func TestSubscriptions(t *testing.T) {
	b := newBroker(t)
	prices, err := b.SubscribePrice(context.Background(), "R_50")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	b.Record(models.PriceSample{Value: 50, Timestamp: t0.Add(time.Minute)})
	deadline := time.After(2 * time.Second)
	for got := false; !got; {
		select {
		case s := <-prices:
			got = s.Value == 50
		case <-deadline:
			t.Fatalf("recorded sample not delivered")
		}
	}

	bal, _ := b.SubscribeBalance(context.Background())
	if v := <-bal; v != 1000 {
		t.Fatalf("balance %v", v)
	}

	_ = b.Close()
	if _, ok := <-prices; ok {
		t.Fatalf("price stream must close")
	}
}

func TestRecordDropsOutOfOrderSamples(t *testing.T) {
	b := New(Config{}, 0, nil, zaptest.NewLogger(t))
	b.Record(models.PriceSample{Value: 1, Timestamp: t0.Add(time.Minute)})
	b.Record(models.PriceSample{Value: 2, Timestamp: t0})
	out, err := b.Resolve(context.Background(), models.Trade{ID: "x", Direction: models.DirectionUp, ExpiresAt: t0})
	if err != nil || out.ExitPrice != 1 {
		t.Fatalf("got %+v, %v", out, err)
	}
}

func TestHistoryRetention(t *testing.T) {
	b := New(Config{Retention: time.Minute}, 0, nil, zaptest.NewLogger(t))
	for i := 0; i < 10; i++ {
		b.Record(models.PriceSample{Value: float64(i), Timestamp: t0.Add(time.Duration(i) * 30 * time.Second)})
	}
	b.mu.RLock()
	n := len(b.history)
	b.mu.RUnlock()
	if n != 3 {
		t.Fatalf("history %d, want 3", n)
	}
}

func TestHistoryReturnsLatestSamples(t *testing.T) {
	b := New(Config{}, 0, nil, zaptest.NewLogger(t))
	for i := 0; i < 5; i++ {
		b.Record(models.PriceSample{Value: float64(i), Timestamp: t0.Add(time.Duration(i) * time.Second)})
	}

	got, err := b.History(context.Background(), "R_50", 3)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(got) != 3 || got[0].Value != 2 || got[2].Value != 4 {
		t.Fatalf("unexpected history %+v", got)
	}

	all, _ := b.History(context.Background(), "R_50", 100)
	if len(all) != 5 {
		t.Fatalf("history %d, want 5", len(all))
	}
}
