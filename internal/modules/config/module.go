package config

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"binary_bot/internal/broker/deriv"
	"binary_bot/internal/broker/paper"
	"binary_bot/internal/indicator"
	"binary_bot/internal/models"
	"binary_bot/internal/runner"
	"binary_bot/pkg/logger"
	"binary_bot/pkg/tracing"
)

// Module provides the parsed config, its sections and the process logger.
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			NewConfig,
			func(c *Config) models.Settings { return c.Settings },
			func(c *Config) runner.Config { return c.Runner },
			func(c *Config) indicator.Config { return c.Indicator },
			func(c *Config) deriv.Config { return c.Deriv },
			func(c *Config) paper.Config { return c.Paper },
			func(c *Config) tracing.Config { return c.Tracing },
			func(c *Config) (*zap.Logger, error) {
				logger.SetServiceName(c.Service.Name)
				tracing.SetServiceName(c.Service.Name)
				return logger.New(c.Logger)
			},
		),
	)
}
