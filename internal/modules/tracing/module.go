package tracing

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/fx"

	"binary_bot/pkg/tracing"
)

// Module installs the global tracer used by the executor and settlement spans.
func Module() fx.Option {
	return fx.Module("tracing",
		fx.Invoke(func(lc fx.Lifecycle, cfg tracing.Config) error {
			_, closer, err := tracing.InitTracer(cfg)
			if err != nil {
				return err
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					closer()
					opentracing.SetGlobalTracer(opentracing.NoopTracer{})
					return nil
				},
			})
			return nil
		}),
	)
}
