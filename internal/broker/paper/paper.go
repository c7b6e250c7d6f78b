package paper

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"binary_bot/internal/broker"
	"binary_bot/internal/feed"
	"binary_bot/internal/models"
)

type Config struct {
	PayoutRate   float64       `yaml:"payout_rate"`
	TickInterval time.Duration `yaml:"tick_interval"`
	StartPrice   float64       `yaml:"start_price"`
	Step         float64       `yaml:"step"`
	Seed         int64         `yaml:"seed"`
	// Retention bounds the recorded tick history used to settle contracts.
	Retention time.Duration `yaml:"retention"`
}

func (c Config) withDefaults() Config {
	if c.PayoutRate <= 0 {
		c.PayoutRate = 0.85
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 2 * time.Second
	}
	if c.Retention <= 0 {
		c.Retention = time.Hour
	}
	return c
}

// Broker is the in-process demo market: it generates prices from a Source,
// fills orders at the latest price and settles contracts against the first
// price recorded at or after expiry.
type Broker struct {
	cfg     Config
	log     *zap.Logger
	src     feed.Source
	balance float64

	mu       sync.RWMutex
	history  []models.PriceSample
	prices   []chan models.PriceSample
	balances []chan float64
	cancel   context.CancelFunc
	done     chan struct{}
}

var (
	_ broker.Broker    = (*Broker)(nil)
	_ broker.Historian = (*Broker)(nil)

	errNoExitPrice = errors.New("no price recorded at expiry yet")
)

// New builds a demo broker. A nil src falls back to a seeded random walk.
func New(cfg Config, balance float64, src feed.Source, log *zap.Logger) *Broker {
	cfg = cfg.withDefaults()
	if src == nil {
		src = feed.NewSynthetic(cfg.StartPrice, cfg.Step, cfg.Seed)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Broker{cfg: cfg, log: log.Named("paper"), src: src, balance: balance}
}

// Connect starts the price generator. It runs until Close, independent of ctx.
func (b *Broker) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})
	go b.run(runCtx)
	b.log.Info("market started", zap.Duration("tick_interval", b.cfg.TickInterval))
	return nil
}

func (b *Broker) run(ctx context.Context) {
	defer close(b.done)
	t := time.NewTicker(b.cfg.TickInterval)
	defer t.Stop()

	b.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			b.tick(ctx)
		}
	}
}

// tick records one generated sample and fans it out.
func (b *Broker) tick(ctx context.Context) {
	s, err := b.src.Next(ctx)
	if err != nil {
		if ctx.Err() == nil {
			b.log.Warn("price source failed", zap.Error(err))
		}
		return
	}
	b.Record(s)
}

// Record appends a sample to the market history. Samples older than the
// latest recorded one are dropped so the history stays time-ordered.
func (b *Broker) Record(s models.PriceSample) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n := len(b.history); n > 0 && s.Timestamp.Before(b.history[n-1].Timestamp) {
		return
	}
	b.history = append(b.history, s)
	cutoff := s.Timestamp.Add(-b.cfg.Retention)
	drop := 0
	for drop < len(b.history)-1 && b.history[drop].Timestamp.Before(cutoff) {
		drop++
	}
	b.history = b.history[drop:]

	for _, ch := range b.prices {
		select {
		case ch <- s:
		default:
		}
	}
}

func (b *Broker) SubscribeBalance(ctx context.Context) (<-chan float64, error) {
	ch := make(chan float64, 1)
	ch <- b.balance
	b.mu.Lock()
	b.balances = append(b.balances, ch)
	b.mu.Unlock()
	return ch, nil
}

// SubscribePrice streams generated samples; the demo market has a single instrument.
func (b *Broker) SubscribePrice(ctx context.Context, instrument string) (<-chan models.PriceSample, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel == nil {
		return nil, errors.Wrap(models.ErrConnection, "paper broker not connected")
	}
	ch := make(chan models.PriceSample, 64)
	b.prices = append(b.prices, ch)
	return ch, nil
}

func (b *Broker) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.Fill, error) {
	if req.Stake <= 0 || req.Duration <= 0 || !req.Direction.Valid() {
		return broker.Fill{}, errors.Wrapf(models.ErrOrderRejected, "invalid order %+v", req)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.cancel == nil {
		return broker.Fill{}, errors.Wrap(models.ErrConnection, "paper broker not connected")
	}
	if len(b.history) == 0 {
		return broker.Fill{}, errors.Wrap(models.ErrOrderRejected, "no market price yet")
	}
	return broker.Fill{
		ID:         uuid.NewString(),
		EntryPrice: b.history[len(b.history)-1].Value,
		PayoutRate: b.cfg.PayoutRate,
	}, nil
}

// Resolve compares the first price at or after expiry with the entry price.
// UP wins on a strictly higher exit, DOWN on a strictly lower one; ties lose.
func (b *Broker) Resolve(ctx context.Context, t models.Trade) (models.Outcome, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	i := sort.Search(len(b.history), func(i int) bool {
		return !b.history[i].Timestamp.Before(t.ExpiresAt)
	})
	if i == len(b.history) {
		return models.Outcome{}, fmt.Errorf("trade %s: %w", t.ID, errNoExitPrice)
	}
	exit := b.history[i].Value
	return models.Outcome{Result: judge(t.Direction, t.EntryPrice, exit), ExitPrice: exit}, nil
}

// History returns up to count of the latest recorded samples, oldest first.
func (b *Broker) History(ctx context.Context, instrument string, count int) ([]models.PriceSample, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	start := len(b.history) - count
	if start < 0 {
		start = 0
	}
	return append([]models.PriceSample(nil), b.history[start:]...), nil
}

func judge(d models.Direction, entry, exit float64) models.TradeResult {
	switch {
	case d == models.DirectionUp && exit > entry:
		return models.ResultWin
	case d == models.DirectionDown && exit < entry:
		return models.ResultWin
	default:
		return models.ResultLoss
	}
}

// Close stops the generator and ends every subscription.
func (b *Broker) Close() error {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel = nil
	b.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.prices {
		close(ch)
	}
	for _, ch := range b.balances {
		close(ch)
	}
	b.prices, b.balances = nil, nil
	return nil
}
