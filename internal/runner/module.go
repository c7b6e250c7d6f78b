package runner

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"binary_bot/internal/broker"
	"binary_bot/internal/indicator"
	"binary_bot/internal/ledger"
	"binary_bot/internal/metrics"
	"binary_bot/internal/models"
	"binary_bot/internal/session"
	"binary_bot/internal/signal"
	"binary_bot/internal/store"
)

type params struct {
	fx.In

	Config   Config
	Settings models.Settings
	Broker   broker.Broker
	Ledger   *ledger.Ledger
	Sessions *session.Tracker
	Engine   indicator.Engine
	Signals  *signal.Generator
	Store    *store.Store
	Metrics  *metrics.Recorder
	Notifier Notifier
	Health   Health
	Log      *zap.Logger
}

func newBot(p params) *Bot {
	return New(p.Config, p.Settings, Deps{
		Broker:   p.Broker,
		Ledger:   p.Ledger,
		Sessions: p.Sessions,
		Engine:   p.Engine,
		Signals:  p.Signals,
		Store:    p.Store,
		Metrics:  p.Metrics,
		Notifier: p.Notifier,
		Health:   p.Health,
		Log:      p.Log,
	})
}

func newLedger(s models.Settings, r ledger.Resolver, log *zap.Logger) *ledger.Ledger {
	initial := 0.0
	if s.IsDemoMode {
		initial = s.DemoBalance
	}
	return ledger.New(initial, r, log.Named("ledger"))
}

func newTracker(s models.Settings, log *zap.Logger) *session.Tracker {
	demo := s.IsDemoMode
	return session.New(log.Named("session"), func() bool { return demo })
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			metrics.New,
			func(cfg indicator.Config) indicator.Engine { return indicator.NewStandard(cfg) },
			func() *signal.Generator { return signal.NewGenerator(nil) },
			newLedger,
			newTracker,
			newBot,
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			b *Bot,
			ctx context.Context,
		) {
			lc.Append(fx.Hook{
				// the start ctx expires after startup; loops run on the app ctx
				OnStart: func(_ context.Context) error {
					return b.Start(ctx)
				},
				OnStop: func(stopCtx context.Context) error {
					return b.Shutdown(stopCtx)
				},
			})
		}),
	)
}
