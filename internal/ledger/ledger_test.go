package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"binary_bot/internal/models"
)

var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type fixedResolver struct {
	mu      sync.Mutex
	results map[string]models.TradeResult
	fail    map[string]bool
	calls   int
}

func (r *fixedResolver) Resolve(_ context.Context, t models.Trade) (models.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.fail[t.ID] {
		return models.Outcome{}, errors.New("broker unavailable")
	}
	res, ok := r.results[t.ID]
	if !ok {
		res = models.ResultLoss
	}
	return models.Outcome{Result: res, ExitPrice: t.EntryPrice + 1}, nil
}

func newResolver() *fixedResolver {
	return &fixedResolver{results: map[string]models.TradeResult{}, fail: map[string]bool{}}
}

func trade(id string, stake float64, expires time.Time) models.Trade {
	return models.Trade{
		ID:         id,
		Instrument: "R_50",
		Direction:  models.DirectionUp,
		Stake:      stake,
		OpenedAt:   expires.Add(-5 * time.Minute),
		ExpiresAt:  expires,
		EntryPrice: 100,
		Confidence: 0.7,
		PayoutRate: 0.85,
	}
}

func newLedger(t *testing.T, balance float64, r Resolver) *Ledger {
	return New(balance, r, zaptest.NewLogger(t)).WithClock(func() time.Time { return t0 })
}

func TestOpenDebitsStake(t *testing.T) {
	l := newLedger(t, 100, newResolver())
	if err := l.Open(trade("a", 10, t0.Add(time.Minute))); err != nil {
		t.Fatalf("open: %v", err)
	}
	acc := l.Snapshot()
	if acc.Balance != 90 || acc.DailyTradeCount != 1 || acc.TotalTrades != 1 {
		t.Fatalf("unexpected account %+v", acc)
	}
	if l.OpenCount() != 1 {
		t.Fatalf("open count %d", l.OpenCount())
	}
}

func TestOpenRejectsInvalidTrades(t *testing.T) {
	l := newLedger(t, 100, newResolver())
	bad := trade("x", 10, t0)
	bad.ExpiresAt = bad.OpenedAt
	if err := l.Open(bad); err == nil {
		t.Fatalf("expected error for expiry == open")
	}
	ok := trade("y", 10, t0.Add(time.Minute))
	if err := l.Open(ok); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := l.Open(ok); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if l.Snapshot().Balance != 90 {
		t.Fatalf("rejected opens must not touch balance")
	}
}

func TestSweepWinScenario(t *testing.T) {
	r := newResolver()
	r.results["w"] = models.ResultWin
	l := newLedger(t, 100, r)

	expiry := t0.Add(5 * time.Minute)
	if err := l.Open(trade("w", 10, expiry)); err != nil {
		t.Fatalf("open: %v", err)
	}
	before := l.Snapshot()

	settled, err := l.Sweep(context.Background(), expiry)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(settled) != 1 {
		t.Fatalf("settled %d, want 1", len(settled))
	}
	got := settled[0]
	if *got.Result != models.ResultWin || *got.Profit != 8.5 {
		t.Fatalf("result=%v profit=%v", *got.Result, *got.Profit)
	}
	after := l.Snapshot()
	if after.Balance-before.Balance != 18.5 {
		t.Fatalf("balance delta %v, want 18.5", after.Balance-before.Balance)
	}
	if after.TotalProfit != 8.5 || after.WinningTrades != 1 {
		t.Fatalf("unexpected account %+v", after)
	}
}

func TestSweepLoss(t *testing.T) {
	l := newLedger(t, 100, newResolver())
	expiry := t0.Add(time.Minute)
	_ = l.Open(trade("l", 10, expiry))

	settled, _ := l.Sweep(context.Background(), expiry.Add(time.Second))
	if len(settled) != 1 || *settled[0].Profit != -10 {
		t.Fatalf("unexpected settlement %+v", settled)
	}
	acc := l.Snapshot()
	if acc.Balance != 90 || acc.LosingTrades != 1 || acc.TotalProfit != -10 {
		t.Fatalf("unexpected account %+v", acc)
	}
}

func TestSweepNeverSettlesEarly(t *testing.T) {
	r := newResolver()
	l := newLedger(t, 100, r)
	expiry := t0.Add(time.Minute)
	_ = l.Open(trade("early", 10, expiry))

	settled, _ := l.Sweep(context.Background(), expiry.Add(-time.Nanosecond))
	if len(settled) != 0 || r.calls != 0 {
		t.Fatalf("settled before expiry")
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	r := newResolver()
	r.results["w"] = models.ResultWin
	l := newLedger(t, 100, r)
	expiry := t0.Add(time.Minute)
	_ = l.Open(trade("w", 10, expiry))

	_, _ = l.Sweep(context.Background(), expiry)
	first := l.Snapshot()
	hist := l.History()

	settled, err := l.Sweep(context.Background(), expiry.Add(time.Hour))
	if err != nil || len(settled) != 0 {
		t.Fatalf("second sweep settled %d trades, err=%v", len(settled), err)
	}
	if l.Snapshot() != first {
		t.Fatalf("second sweep changed account")
	}
	if len(l.History()) != len(hist) || *l.History()[0].Profit != *hist[0].Profit {
		t.Fatalf("second sweep changed history")
	}
}

func TestSweepKeepsUnresolvedTradesOpen(t *testing.T) {
	r := newResolver()
	r.fail["stuck"] = true
	l := newLedger(t, 100, r)
	expiry := t0.Add(time.Minute)
	_ = l.Open(trade("stuck", 10, expiry))
	_ = l.Open(trade("fine", 10, expiry))

	settled, err := l.Sweep(context.Background(), expiry)
	if err == nil {
		t.Fatalf("expected resolve error")
	}
	if len(settled) != 1 || settled[0].ID != "fine" {
		t.Fatalf("unexpected settlement %+v", settled)
	}
	if l.OpenCount() != 1 {
		t.Fatalf("unresolved trade must stay open")
	}

	r.fail["stuck"] = false
	settled, err = l.Sweep(context.Background(), expiry)
	if err != nil || len(settled) != 1 || settled[0].ID != "stuck" {
		t.Fatalf("retry failed: %+v %v", settled, err)
	}
}

func TestBalanceEquation(t *testing.T) {
	r := newResolver()
	l := newLedger(t, 1000, r)

	var stakes, winsBack float64
	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("t%02d", i)
		stake := float64(5 + i%4)
		if i%3 == 0 {
			r.results[id] = models.ResultWin
			winsBack += stake + stake*0.85
		}
		stakes += stake
		if err := l.Open(trade(id, stake, t0.Add(time.Duration(i+1)*time.Second))); err != nil {
			t.Fatalf("open: %v", err)
		}
		if i%5 == 4 {
			_, _ = l.Sweep(context.Background(), t0.Add(time.Duration(i+1)*time.Second))
		}
	}
	_, _ = l.Sweep(context.Background(), t0.Add(time.Hour))

	want := 1000 - stakes + winsBack
	if got := l.Snapshot().Balance; math.Abs(got-want) > 1e-9 {
		t.Fatalf("balance=%v, want %v", got, want)
	}
	if l.OpenCount() != 0 || len(l.History()) != 25 {
		t.Fatalf("open=%d history=%d", l.OpenCount(), len(l.History()))
	}
}

func TestConcurrentOpenAndSweep(t *testing.T) {
	r := newResolver()
	l := newLedger(t, 10000, r)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = l.Open(trade(fmt.Sprintf("c%02d", i), 10, t0.Add(time.Second)))
		}(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Sweep(context.Background(), t0.Add(time.Second))
		}()
	}
	wg.Wait()
	_, _ = l.Sweep(context.Background(), t0.Add(time.Second))

	acc := l.Snapshot()
	if acc.TotalTrades != 50 || acc.LosingTrades != 50 || acc.Balance != 10000-500 {
		t.Fatalf("unexpected account %+v", acc)
	}
}

func TestDailyCounterRollsOver(t *testing.T) {
	now := t0
	l := New(100, newResolver(), zaptest.NewLogger(t)).WithClock(func() time.Time { return now })
	_ = l.Open(trade("d1", 10, now.Add(time.Minute)))
	if l.Snapshot().DailyTradeCount != 1 {
		t.Fatalf("expected 1 trade today")
	}
	now = now.Add(24 * time.Hour)
	acc := l.Snapshot()
	if acc.DailyTradeCount != 0 || acc.DayStartBalance != 90 {
		t.Fatalf("counter not reset: %+v", acc)
	}
}

func TestRestoreRejectsInconsistentState(t *testing.T) {
	l := newLedger(t, 0, newResolver())
	res := models.ResultWin
	closed := trade("c", 10, t0)
	closed.Result = &res
	if err := l.Restore(models.AccountState{}, []models.Trade{closed}, nil); err == nil {
		t.Fatalf("closed trade in open set must fail")
	}
	if err := l.Restore(models.AccountState{}, nil, []models.Trade{trade("o", 10, t0)}); err == nil {
		t.Fatalf("open trade in history must fail")
	}
	if err := l.Restore(models.AccountState{Balance: 50}, []models.Trade{trade("o", 10, t0)}, []models.Trade{closed}); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if l.OpenCount() != 1 || len(l.Recent(5)) != 1 || l.Snapshot().Balance != 50 {
		t.Fatalf("state not restored")
	}
}

func TestSettleTwicePanics(t *testing.T) {
	l := newLedger(t, 100, newResolver())
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.settle("missing", models.Outcome{Result: models.ResultWin}, t0)
}

func TestSyncBalance(t *testing.T) {
	l := newLedger(t, 0, newResolver())
	if err := l.SyncBalance(500); err != nil {
		t.Fatalf("sync: %v", err)
	}
	acc := l.Snapshot()
	if acc.Balance != 500 || acc.DayStartBalance != 500 {
		t.Fatalf("unexpected account %+v", acc)
	}
	_ = l.Open(trade("s", 10, t0.Add(time.Minute)))
	if err := l.SyncBalance(490); err == nil {
		t.Fatalf("sync with open trades must fail")
	}
}
