package broker

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"binary_bot/internal/broker"
	"binary_bot/internal/broker/deriv"
	"binary_bot/internal/broker/paper"
	"binary_bot/internal/ledger"
	"binary_bot/internal/models"
)

// Adapter is what the runner needs from a broker: orders, streams and settlement.
type Adapter interface {
	broker.Broker
	ledger.Resolver
}

// NewAdapter returns the simulated market in demo mode and the Deriv client otherwise.
func NewAdapter(s models.Settings, pc paper.Config, dc deriv.Config, log *zap.Logger) Adapter {
	if s.IsDemoMode {
		log.Info("demo mode: paper broker", zap.Float64("balance", s.DemoBalance))
		return paper.New(pc, s.DemoBalance, nil, log)
	}
	log.Info("live mode: deriv broker")
	return deriv.NewClient(dc, log)
}

func Module() fx.Option {
	return fx.Module("broker",
		fx.Provide(
			NewAdapter,
			func(a Adapter) broker.Broker { return a },
			func(a Adapter) ledger.Resolver { return a },
		),
	)
}
