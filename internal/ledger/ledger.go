package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"binary_bot/internal/models"
)

// Resolver reports how an expired trade ended.
type Resolver interface {
	Resolve(ctx context.Context, t models.Trade) (models.Outcome, error)
}

// Ledger owns the account state, the open-trade set and the closed history.
// Every mutation goes through mu; sweeps are serialised by sweepMu.
type Ledger struct {
	log      *zap.Logger
	resolver Resolver
	now      func() time.Time

	sweepMu sync.Mutex

	mu      sync.RWMutex
	account models.AccountState
	open    map[string]models.Trade
	history []models.Trade
}

func New(initialBalance float64, resolver Resolver, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Ledger{
		log:      log,
		resolver: resolver,
		now:      time.Now,
		open:     make(map[string]models.Trade),
	}
	l.account.Balance = initialBalance
	l.rollDay(l.now())
	return l
}

// WithClock replaces the ledger clock, used by tests and replays.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
	l.account.Day = time.Time{}
	l.rollDay(now())
	return l
}

// rollDay resets the daily counter when a later UTC day starts. Callers hold mu.
func (l *Ledger) rollDay(now time.Time) {
	day := models.DayOf(now)
	if !day.After(l.account.Day) {
		return
	}
	l.account.Day = day
	l.account.DailyTradeCount = 0
	l.account.DayStartBalance = l.account.Balance
}

// Open records a trade the broker accepted: debits the stake and bumps the counters.
func (l *Ledger) Open(t models.Trade) error {
	if !t.IsOpen() {
		return fmt.Errorf("ledger.Open %s: trade already closed", t.ID)
	}
	if t.ID == "" {
		return fmt.Errorf("ledger.Open: empty trade id")
	}
	if !t.ExpiresAt.After(t.OpenedAt) {
		return fmt.Errorf("ledger.Open %s: expiry %s not after open %s", t.ID, t.ExpiresAt, t.OpenedAt)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.open[t.ID]; dup {
		return fmt.Errorf("ledger.Open %s: duplicate trade", t.ID)
	}
	l.rollDay(t.OpenedAt)
	l.open[t.ID] = t
	l.account.Balance -= t.Stake
	l.account.DailyTradeCount++
	l.account.TotalTrades++
	return nil
}

// Sweep settles every open trade with now >= ExpiresAt. Trades whose outcome
// cannot be resolved stay open for the next sweep.
func (l *Ledger) Sweep(ctx context.Context, now time.Time) ([]models.Trade, error) {
	l.sweepMu.Lock()
	defer l.sweepMu.Unlock()

	due := l.due(now)
	if len(due) == 0 {
		return nil, nil
	}

	var errs error
	outcomes := make(map[string]models.Outcome, len(due))
	for _, t := range due {
		out, err := l.resolver.Resolve(ctx, t)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("resolve %s: %w", t.ID, err))
			continue
		}
		outcomes[t.ID] = out
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	settled := make([]models.Trade, 0, len(outcomes))
	for _, t := range due {
		out, ok := outcomes[t.ID]
		if !ok {
			continue
		}
		settled = append(settled, l.settle(t.ID, out, now))
	}
	return settled, errs
}

func (l *Ledger) due(now time.Time) []models.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Trade, 0)
	for _, t := range l.open {
		if t.Due(now) {
			out = append(out, t)
		}
	}
	sortTrades(out)
	return out
}

// settle moves one trade to history. Callers hold mu.
func (l *Ledger) settle(id string, out models.Outcome, now time.Time) models.Trade {
	t, ok := l.open[id]
	if !ok || !t.IsOpen() {
		panic(fmt.Sprintf("ledger: trade %s settled twice", id))
	}

	result := out.Result
	profit := -t.Stake
	if result == models.ResultWin {
		profit = t.Stake * t.PayoutRate
		l.account.Balance += t.Stake + profit
		l.account.WinningTrades++
	} else {
		result = models.ResultLoss
		l.account.LosingTrades++
	}
	l.account.TotalProfit += profit

	exit := out.ExitPrice
	closedAt := now
	t.Result = &result
	t.Profit = &profit
	t.ExitPrice = &exit
	t.ClosedAt = &closedAt

	delete(l.open, id)
	l.history = append(l.history, t)

	l.log.Info("trade settled",
		zap.String("id", t.ID),
		zap.String("result", string(result)),
		zap.Float64("profit", profit),
		zap.Float64("balance", l.account.Balance),
	)
	return t
}

// SyncBalance replaces the balance with the broker's figure. Only valid while no
// trade is open. The day's start balance moves by the same delta so deposits do not
// count as profit.
func (l *Ledger) SyncBalance(balance float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.open) > 0 {
		return fmt.Errorf("ledger.SyncBalance: %d trades open", len(l.open))
	}
	l.rollDay(l.now())
	l.account.DayStartBalance += balance - l.account.Balance
	l.account.Balance = balance
	return nil
}

// Restore loads persisted state. Open trades must be open, history closed.
func (l *Ledger) Restore(account models.AccountState, open, history []models.Trade) error {
	for _, t := range open {
		if !t.IsOpen() {
			return fmt.Errorf("ledger.Restore: %s in open set is closed", t.ID)
		}
	}
	for _, t := range history {
		if t.IsOpen() {
			return fmt.Errorf("ledger.Restore: %s in history is open", t.ID)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.account = account
	l.open = make(map[string]models.Trade, len(open))
	for _, t := range open {
		l.open[t.ID] = t
	}
	l.history = append([]models.Trade(nil), history...)
	l.rollDay(l.now())
	return nil
}

func (l *Ledger) Snapshot() models.AccountState {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollDay(l.now())
	return l.account
}

func (l *Ledger) OpenTrades() []models.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Trade, 0, len(l.open))
	for _, t := range l.open {
		out = append(out, t)
	}
	sortTrades(out)
	return out
}

func (l *Ledger) OpenCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.open)
}

func (l *Ledger) History() []models.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Trade(nil), l.history...)
}

// Recent returns up to n most recent closed trades, oldest first.
func (l *Ledger) Recent(n int) []models.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n > len(l.history) {
		n = len(l.history)
	}
	return append([]models.Trade(nil), l.history[len(l.history)-n:]...)
}

func sortTrades(ts []models.Trade) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].ExpiresAt.Equal(ts[j].ExpiresAt) {
			return ts[i].ExpiresAt.Before(ts[j].ExpiresAt)
		}
		return ts[i].ID < ts[j].ID
	})
}
