package runner

import (
	"context"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"binary_bot/internal/broker"
	"binary_bot/internal/feed"
	"binary_bot/internal/models"
	"binary_bot/internal/risk"
)

var (
	ErrNotStarted    = errors.New("bot is not started")
	ErrDisconnected  = errors.New("broker disconnected")
	ErrAlreadyActive = errors.New("trading already running")
	ErrNotRunning    = errors.New("trading is not running")
)

// Start restores persisted state, connects the broker and starts the price and
// settlement loops. A connection failure leaves the bot up in the disconnected state.
func (b *Bot) Start(parent context.Context) error {
	b.runMu.Lock()
	if b.procCancel != nil {
		b.runMu.Unlock()
		return nil
	}
	b.procCtx, b.procCancel = context.WithCancel(parent)
	ctx := b.procCtx
	b.runMu.Unlock()

	if err := b.restore(ctx); err != nil {
		return err
	}

	b.wg.Add(1)
	go b.settleLoop(ctx)
	b.health.SetReady(true)

	if err := b.connect(ctx); err != nil {
		b.disconnect(ctx, err)
		return nil
	}
	if b.cfg.AutoStart {
		if err := b.Run(); err != nil {
			b.log.Warn("auto start failed", zap.Error(err))
		}
	}
	return nil
}

func (b *Bot) connect(ctx context.Context) error {
	if err := b.broker.Connect(ctx); err != nil {
		return err
	}
	ticks, err := b.broker.SubscribePrice(ctx, b.cfg.Instrument)
	if err != nil {
		return err
	}
	b.feed = feed.New(feed.NewStream(ctx, ticks), b.window)
	b.warmup(ctx)

	if !b.IsDemo() {
		balances, err := b.broker.SubscribeBalance(ctx)
		if err != nil {
			return err
		}
		b.wg.Add(1)
		go b.balanceLoop(ctx, balances)
	}

	b.mu.Lock()
	b.connected = true
	b.mu.Unlock()
	b.health.SetWSConnected(true)

	b.wg.Add(1)
	go b.priceLoop(ctx)

	b.log.Info("broker connected", zap.String("instrument", b.cfg.Instrument), zap.Bool("demo", b.IsDemo()))
	return nil
}

// warmup seeds the window with recent history so indicators are ready before
// the first live ticks fill it. A failure only delays readiness.
func (b *Bot) warmup(ctx context.Context) {
	h, ok := b.broker.(broker.Historian)
	if !ok {
		return
	}
	samples, err := h.History(ctx, b.cfg.Instrument, b.window.Cap())
	if err != nil {
		b.log.Warn("history warmup failed", zap.Error(err))
		return
	}
	for _, s := range samples {
		b.window.Push(s)
	}
	snap := b.engine.Compute(b.window.Values())
	b.mu.Lock()
	b.snapshot = snap
	b.mu.Unlock()
	b.log.Info("indicator window warmed up", zap.Int("samples", len(samples)), zap.Bool("ready", snap.Ready))
}

// disconnect moves the bot into the disconnected state. There is no reconnect loop.
func (b *Bot) disconnect(ctx context.Context, err error) {
	b.mu.Lock()
	b.connected = false
	b.mu.Unlock()
	b.health.SetWSConnected(false)
	b.cancelTrading()

	b.log.Error("broker connection failure", zap.Error(err))
	b.notifier.Notify(ctx, "🔌 Broker connection lost: %v", err)
}

// Run starts admitting trades.
func (b *Bot) Run() error {
	b.runMu.Lock()
	defer b.runMu.Unlock()

	if b.procCtx == nil {
		return ErrNotStarted
	}
	if !b.Connected() {
		return ErrDisconnected
	}
	if b.tradeCancel != nil {
		return ErrAlreadyActive
	}
	ctx, cancel := context.WithCancel(b.procCtx)
	b.tradeCancel = cancel

	b.mu.Lock()
	b.stopReason = ""
	b.mu.Unlock()

	b.tradeWG.Add(1)
	go b.decisionLoop(ctx)
	b.log.Info("trading started")
	return nil
}

// Stop prevents further trade admission. Open trades keep settling.
func (b *Bot) Stop() error {
	if !b.cancelTrading() {
		return ErrNotRunning
	}
	b.tradeWG.Wait()
	b.log.Info("trading stopped", zap.Int("open_trades", b.ledger.OpenCount()))
	return nil
}

// cancelTrading ends the decision loop without waiting for it, so it is safe to
// call from inside the loop.
func (b *Bot) cancelTrading() bool {
	b.runMu.Lock()
	cancel := b.tradeCancel
	b.tradeCancel = nil
	b.runMu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// Shutdown stops every loop, persists the state and closes the broker.
func (b *Bot) Shutdown(ctx context.Context) error {
	b.cancelTrading()
	b.tradeWG.Wait()

	b.runMu.Lock()
	cancel := b.procCancel
	b.procCancel = nil
	b.runMu.Unlock()
	if cancel != nil {
		cancel()
	}
	b.wg.Wait()
	b.health.SetReady(false)

	b.persist(ctx)
	return b.broker.Close()
}

func (b *Bot) priceLoop(ctx context.Context) {
	defer b.wg.Done()
	t := time.NewTicker(b.cfg.PriceInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := b.onPrice(ctx); err != nil {
				b.disconnect(ctx, err)
				return
			}
		}
	}
}

// onPrice pulls the newest tick into the window and refreshes the indicators.
func (b *Bot) onPrice(ctx context.Context) error {
	s, err := b.feed.Tick(ctx)
	if errors.Is(err, feed.ErrNoTick) || errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return err
	}
	b.metrics.Tick()
	b.health.TouchTick(s.Timestamp)

	snap := b.engine.Compute(b.window.Values())
	b.mu.Lock()
	b.snapshot = snap
	b.mu.Unlock()
	return nil
}

func (b *Bot) decisionLoop(ctx context.Context) {
	defer b.tradeWG.Done()
	t := time.NewTicker(b.cfg.DecisionInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			b.decide(ctx)
		}
	}
}

// decide runs one decision cycle: stop check, prediction, risk gate, order.
func (b *Bot) decide(ctx context.Context) {
	settings := b.Settings()
	acc := b.ledger.Snapshot()

	if hit, reason := risk.StopReached(acc, settings); hit {
		b.halt(ctx, reason)
		return
	}

	snap := b.engine.Compute(b.window.Values())
	p, ok := b.signals.Predict(snap, b.ledger.Recent(b.cfg.RecentTrades), settings.EnableML)

	b.mu.Lock()
	b.snapshot = snap
	if ok {
		b.prediction = &p
	}
	b.mu.Unlock()
	if !ok {
		return
	}
	b.metrics.Prediction(p)

	if err := risk.Check(p, acc, settings); err != nil {
		kind := "other"
		var rej *risk.Rejection
		if errors.As(err, &rej) {
			kind = rej.Kind
		}
		b.metrics.Rejected(kind)
		b.log.Debug("prediction rejected", zap.Error(err))
		return
	}

	// Once admitted the order runs to completion even if trading is
	// stopped meanwhile; an abandoned buy would leave an untracked contract.
	orderCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.cfg.OrderTimeout)
	defer cancel()

	trade, err := b.exec.Open(orderCtx, b.cfg.Instrument, p, settings.EntryAmount, b.cfg.TradeDuration)
	if err != nil {
		b.metrics.OrderFailed()
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			b.log.Warn("order abandoned", zap.Error(err))
			b.notifier.Notify(orderCtx, "⚠️ Order timed out: %v", err)
		case errors.Is(err, models.ErrConnection):
			b.disconnect(orderCtx, err)
		default:
			b.log.Warn("order failed", zap.Error(err))
			b.notifier.Notify(orderCtx, "⚠️ Order rejected: %v", err)
		}
		return
	}

	b.metrics.Opened(trade)
	b.afterBalanceChange()
	b.persist(orderCtx)
	b.notifier.Notify(orderCtx, "📈 %s %s stake %.2f @ %.5f (confidence %.0f%%, %s)",
		trade.Direction, trade.Instrument, trade.Stake, trade.EntryPrice, trade.Confidence*100,
		joinFactors(p.Factors))
}

// halt stops trading after a stop-loss or stop-win threshold.
func (b *Bot) halt(ctx context.Context, reason string) {
	b.mu.Lock()
	b.stopReason = reason
	b.mu.Unlock()

	b.cancelTrading()
	b.log.Info("trading halted", zap.String("reason", reason))
	b.notifier.Notify(ctx, "🛑 Trading halted: %s", reason)
}

func (b *Bot) settleLoop(ctx context.Context) {
	defer b.wg.Done()
	t := time.NewTicker(b.cfg.SettleInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			b.Settle(ctx)
		}
	}
}

// Settle runs one settlement sweep at the current time.
func (b *Bot) Settle(ctx context.Context) []models.Trade {
	if b.ledger.OpenCount() == 0 {
		return nil
	}
	span, ctx := opentracing.StartSpanFromContext(ctx, "ledger.Sweep")
	defer span.Finish()

	settled, err := b.ledger.Sweep(ctx, b.now())
	if err != nil {
		span.LogKV("error", err.Error())
		b.log.Warn("settlement incomplete", zap.Error(err))
	}
	span.SetTag("settled", len(settled))
	if len(settled) == 0 {
		return nil
	}

	for _, t := range settled {
		b.metrics.Settled(t)
		if b.sessions != nil {
			b.sessions.Record(t)
		}
		b.notifier.Notify(ctx, "%s %s %s profit %.2f", resultIcon(t), t.Direction, *t.Result, *t.Profit)
	}
	b.afterBalanceChange()
	b.persist(ctx)
	return settled
}

func (b *Bot) balanceLoop(ctx context.Context, balances <-chan float64) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-balances:
			if !ok {
				return
			}
			if err := b.ledger.SyncBalance(v); err != nil {
				b.log.Debug("balance sync skipped", zap.Error(err))
				continue
			}
			b.afterBalanceChange()
		}
	}
}

func (b *Bot) afterBalanceChange() {
	acc := b.ledger.Snapshot()
	if b.sessions != nil {
		// stakes held by open trades are not a loss yet
		equity := acc.Balance
		for _, t := range b.ledger.OpenTrades() {
			equity += t.Stake
		}
		b.sessions.Observe(equity)
	}
	b.metrics.Account(acc, b.ledger.OpenCount())
}

func resultIcon(t models.Trade) string {
	if t.Won() {
		return "✅"
	}
	return "❌"
}

func joinFactors(f []string) string {
	if len(f) == 0 {
		return "no factors"
	}
	return strings.Join(f, ", ")
}
