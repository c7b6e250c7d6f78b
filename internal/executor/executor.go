package executor

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"binary_bot/internal/broker"
	"binary_bot/internal/models"
)

const DefaultPayoutRate = 0.85

// Ledger records accepted trades.
type Ledger interface {
	Open(t models.Trade) error
}

// Executor turns an admitted prediction into a broker order and an OPEN trade.
// It never retries; a failed order leaves the ledger untouched.
type Executor struct {
	broker broker.Broker
	ledger Ledger
	log    *zap.Logger
	now    func() time.Time
	payout float64
}

func New(b broker.Broker, l Ledger, log *zap.Logger, defaultPayout float64) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	if defaultPayout <= 0 {
		defaultPayout = DefaultPayoutRate
	}
	return &Executor{broker: b, ledger: l, log: log, now: time.Now, payout: defaultPayout}
}

func (e *Executor) WithClock(now func() time.Time) *Executor {
	e.now = now
	return e
}

func (e *Executor) Open(
	ctx context.Context,
	instrument string,
	p models.Prediction,
	stake float64,
	duration time.Duration,
) (trade models.Trade, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "executor.Open")
	span.SetTag("instrument", instrument)
	span.SetTag("direction", string(p.Direction))
	span.SetTag("stake", stake)
	defer func() {
		if err != nil {
			ext.Error.Set(span, true)
			span.LogKV("error", err.Error())
		} else {
			span.SetTag("trade_id", trade.ID)
		}
		span.Finish()
	}()

	if stake <= 0 || duration <= 0 || !p.Direction.Valid() {
		return models.Trade{}, errors.Wrapf(models.ErrOrderRejected, "stake %.2f duration %s direction %q", stake, duration, p.Direction)
	}

	fill, err := e.broker.PlaceOrder(ctx, broker.OrderRequest{
		Instrument: instrument,
		Direction:  p.Direction,
		Stake:      stake,
		Duration:   duration,
	})
	if err != nil {
		return models.Trade{}, classify(err)
	}

	payout := fill.PayoutRate
	if payout <= 0 {
		payout = e.payout
	}
	opened := e.now()
	trade = models.Trade{
		ID:         fill.ID,
		Instrument: instrument,
		Direction:  p.Direction,
		Stake:      stake,
		OpenedAt:   opened,
		ExpiresAt:  opened.Add(duration),
		EntryPrice: fill.EntryPrice,
		Confidence: p.Confidence,
		PayoutRate: payout,
	}
	if err := e.ledger.Open(trade); err != nil {
		// The broker holds a contract the ledger refused: an invariant breach, surfaced loudly.
		e.log.Error("ledger refused accepted trade", zap.String("id", trade.ID), zap.Error(err))
		return models.Trade{}, errors.Wrap(err, "executor.Open")
	}

	e.log.Info("trade opened",
		zap.String("id", trade.ID),
		zap.String("direction", string(trade.Direction)),
		zap.Float64("stake", stake),
		zap.Float64("entry", trade.EntryPrice),
		zap.Float64("confidence", p.Confidence),
		zap.Time("expires_at", trade.ExpiresAt),
	)
	return trade, nil
}

// classify keeps broker sentinels and context errors and treats anything
// else as a transport failure.
func classify(err error) error {
	if errors.Is(err, models.ErrOrderRejected) || errors.Is(err, models.ErrConnection) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.Wrapf(models.ErrConnection, "place order: %v", err)
}
