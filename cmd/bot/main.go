package main

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	brokermodule "binary_bot/internal/modules/broker"
	"binary_bot/internal/modules/config"
	"binary_bot/internal/modules/health"
	storemodule "binary_bot/internal/modules/store"
	telegram "binary_bot/internal/modules/telegram_bot"
	tracingmodule "binary_bot/internal/modules/tracing"
	"binary_bot/internal/runner"
)

func options() fx.Option {
	return fx.Options(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		config.Module(),
		tracingmodule.Module(),
		storemodule.Module(),
		brokermodule.Module(),
		runner.Module(),
		health.Module(),
		telegram.Module(),
	)
}

func main() {
	fx.New(options()).Run()
}
