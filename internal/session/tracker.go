package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"binary_bot/internal/models"
)

// Tracker brackets demo trades between explicit start and end markers.
// At most one session is open at a time; closed sessions are append-only.
type Tracker struct {
	log    *zap.Logger
	isDemo func() bool
	now    func() time.Time

	mu      sync.Mutex
	current *models.Session
	history []models.Session
}

func New(log *zap.Logger, isDemo func() bool) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	if isDemo == nil {
		isDemo = func() bool { return true }
	}
	return &Tracker{log: log, isDemo: isDemo, now: time.Now}
}

func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

func (t *Tracker) Start(initialBalance float64, tag string) (models.Session, error) {
	if !t.isDemo() {
		return models.Session{}, models.ErrNotDemo
	}
	if initialBalance <= 0 {
		return models.Session{}, errors.Wrapf(models.ErrConfigurationInvalid, "session initial balance %.2f", initialBalance)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current != nil {
		return models.Session{}, errors.Wrapf(models.ErrSessionOpen, "session %s", t.current.ID)
	}
	s := models.Session{
		ID:             uuid.NewString(),
		StrategyTag:    tag,
		StartedAt:      t.now(),
		InitialBalance: initialBalance,
		LowestBalance:  initialBalance,
	}
	t.current = &s
	t.log.Info("session started", zap.String("id", s.ID), zap.String("tag", tag), zap.Float64("balance", initialBalance))
	return s, nil
}

// Observe feeds an equity reading (balance plus stakes held by open trades)
// into the open session's low-water mark. It does not affect MaxDrawdown.
func (t *Tracker) Observe(balance float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil && balance < t.current.LowestBalance {
		t.current.LowestBalance = balance
	}
}

// Record counts a settled trade against the open session. Open trades are ignored.
func (t *Tracker) Record(trade models.Trade) {
	if trade.IsOpen() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil || trade.OpenedAt.Before(t.current.StartedAt) {
		return
	}
	t.current.TotalTrades++
	if trade.Won() {
		t.current.WinningTrades++
	}
}

func (t *Tracker) End(balance float64) (models.Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		return models.Session{}, models.ErrNoSession
	}
	s := *t.current
	t.current = nil

	if balance < s.LowestBalance {
		s.LowestBalance = balance
	}
	ended := t.now()
	final := balance
	s.EndedAt = &ended
	s.FinalBalance = &final
	s.WinRate = winRate(s.WinningTrades, s.TotalTrades)
	s.MaxDrawdown = maxDrawdown(s.InitialBalance, balance)

	t.history = append(t.history, s)
	t.log.Info("session ended",
		zap.String("id", s.ID),
		zap.Int("trades", s.TotalTrades),
		zap.Float64("win_rate", s.WinRate),
		zap.Float64("max_drawdown", s.MaxDrawdown),
	)
	return s, nil
}

func (t *Tracker) Current() (models.Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return models.Session{}, false
	}
	return *t.current, true
}

func (t *Tracker) History() []models.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.Session(nil), t.history...)
}

// Restore loads persisted sessions. At most one may be open; it becomes current.
func (t *Tracker) Restore(sessions []models.Session) error {
	var current *models.Session
	history := make([]models.Session, 0, len(sessions))
	for i := range sessions {
		s := sessions[i]
		if s.Closed() {
			history = append(history, s)
			continue
		}
		if current != nil {
			return errors.Wrapf(models.ErrSessionOpen, "restore: sessions %s and %s both open", current.ID, s.ID)
		}
		current = &s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = current
	t.history = history
	return nil
}

// All returns closed sessions followed by the open one, the persisted form.
func (t *Tracker) All() []models.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := append([]models.Session(nil), t.history...)
	if t.current != nil {
		out = append(out, *t.current)
	}
	return out
}

func winRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) * 100 / float64(total)
}

// maxDrawdown is the loss of the end balance against the initial one, in percent, never negative.
func maxDrawdown(initial, current float64) float64 {
	if initial <= 0 {
		return 0
	}
	low := current
	if initial < low {
		low = initial
	}
	dd := (initial - low) * 100 / initial
	if dd < 0 {
		return 0
	}
	return dd
}
