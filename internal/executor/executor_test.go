package executor

import (
	"context"
	"testing"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/pkg/errors"
	"go.uber.org/zap/zaptest"

	"binary_bot/internal/broker"
	"binary_bot/internal/ledger"
	"binary_bot/internal/models"
)

var t0 = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

type fakeBroker struct {
	fill  broker.Fill
	err   error
	calls []broker.OrderRequest
}

func (f *fakeBroker) Connect(context.Context) error { return nil }
func (f *fakeBroker) SubscribeBalance(context.Context) (<-chan float64, error) {
	return nil, nil
}
func (f *fakeBroker) SubscribePrice(context.Context, string) (<-chan models.PriceSample, error) {
	return nil, nil
}
func (f *fakeBroker) PlaceOrder(_ context.Context, req broker.OrderRequest) (broker.Fill, error) {
	f.calls = append(f.calls, req)
	return f.fill, f.err
}
func (f *fakeBroker) Close() error { return nil }

type noResolver struct{}

func (noResolver) Resolve(context.Context, models.Trade) (models.Outcome, error) {
	return models.Outcome{}, errors.New("unused")
}

func setup(t *testing.T, b *fakeBroker) (*Executor, *ledger.Ledger) {
	clock := func() time.Time { return t0 }
	l := ledger.New(100, noResolver{}, zaptest.NewLogger(t)).WithClock(clock)
	return New(b, l, zaptest.NewLogger(t), 0).WithClock(clock), l
}

func TestOpenRecordsTrade(t *testing.T) {
	b := &fakeBroker{fill: broker.Fill{ID: "c1", EntryPrice: 101.2, PayoutRate: 0.9}}
	e, l := setup(t, b)

	p := models.Prediction{Direction: models.DirectionDown, Confidence: 0.75}
	tr, err := e.Open(context.Background(), "R_50", p, 10, 5*time.Minute)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if tr.ID != "c1" || tr.EntryPrice != 101.2 || tr.PayoutRate != 0.9 || tr.Confidence != 0.75 {
		t.Fatalf("unexpected trade %+v", tr)
	}
	if !tr.ExpiresAt.Equal(t0.Add(5*time.Minute)) || !tr.IsOpen() {
		t.Fatalf("bad expiry or state %+v", tr)
	}
	acc := l.Snapshot()
	if acc.Balance != 90 || acc.DailyTradeCount != 1 || l.OpenCount() != 1 {
		t.Fatalf("ledger not updated: %+v", acc)
	}
	if len(b.calls) != 1 || b.calls[0].Direction != models.DirectionDown || b.calls[0].Duration != 5*time.Minute {
		t.Fatalf("unexpected order %+v", b.calls)
	}
}

func TestOpenDefaultsPayout(t *testing.T) {
	e, _ := setup(t, &fakeBroker{fill: broker.Fill{ID: "c2", EntryPrice: 1}})
	tr, err := e.Open(context.Background(), "R_50", models.Prediction{Direction: models.DirectionUp, Confidence: 0.7}, 10, time.Minute)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if tr.PayoutRate != DefaultPayoutRate {
		t.Fatalf("payout %v", tr.PayoutRate)
	}
}

func TestOpenFailureLeavesLedgerUntouched(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"rejected", errors.Wrap(models.ErrOrderRejected, "market closed"), models.ErrOrderRejected},
		{"connection", errors.Wrap(models.ErrConnection, "socket closed"), models.ErrConnection},
		{"unknown", errors.New("eof"), models.ErrConnection},
		{"canceled", errors.Wrap(context.Canceled, "buy"), context.Canceled},
		{"deadline", errors.Wrap(context.DeadlineExceeded, "buy"), context.DeadlineExceeded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, l := setup(t, &fakeBroker{err: tc.err})
			_, err := e.Open(context.Background(), "R_50", models.Prediction{Direction: models.DirectionUp, Confidence: 0.8}, 10, time.Minute)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if tc.want != models.ErrConnection && errors.Is(err, models.ErrConnection) {
				t.Fatalf("%v must not be reported as a connection failure", err)
			}
			acc := l.Snapshot()
			if acc.Balance != 100 || acc.DailyTradeCount != 0 || acc.TotalTrades != 0 || l.OpenCount() != 0 {
				t.Fatalf("ledger mutated on failure: %+v", acc)
			}
		})
	}
}

func TestOpenRejectsInvalidRequestLocally(t *testing.T) {
	b := &fakeBroker{}
	e, _ := setup(t, b)
	_, err := e.Open(context.Background(), "R_50", models.Prediction{Direction: models.DirectionUp}, -5, time.Minute)
	if !errors.Is(err, models.ErrOrderRejected) || len(b.calls) != 0 {
		t.Fatalf("negative stake must not reach the broker: %v", err)
	}
}

func TestOpenDuplicateContract(t *testing.T) {
	b := &fakeBroker{fill: broker.Fill{ID: "same", EntryPrice: 1}}
	e, l := setup(t, b)
	p := models.Prediction{Direction: models.DirectionUp, Confidence: 0.7}
	if _, err := e.Open(context.Background(), "R_50", p, 10, time.Minute); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := e.Open(context.Background(), "R_50", p, 10, time.Minute); err == nil {
		t.Fatalf("duplicate contract id must fail")
	}
	if l.Snapshot().Balance != 90 {
		t.Fatalf("duplicate debited twice")
	}
}

func TestOpenTraces(t *testing.T) {
	tracer := mocktracer.New()
	prev := opentracing.GlobalTracer()
	opentracing.SetGlobalTracer(tracer)
	t.Cleanup(func() { opentracing.SetGlobalTracer(prev) })

	e, _ := setup(t, &fakeBroker{fill: broker.Fill{ID: "c3", EntryPrice: 1}})
	_, _ = e.Open(context.Background(), "R_50", models.Prediction{Direction: models.DirectionUp, Confidence: 0.7}, 10, time.Minute)

	spans := tracer.FinishedSpans()
	if len(spans) != 1 || spans[0].OperationName != "executor.Open" || spans[0].Tag("trade_id") != "c3" {
		t.Fatalf("unexpected spans %+v", spans)
	}
}
