package telegram

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"binary_bot/internal/modules/config"
	"binary_bot/internal/modules/telegram_bot/service"
	"binary_bot/internal/notify"
	"binary_bot/internal/runner"
)

// newNotifier returns the Telegram service when a token is configured; the
// service is nil otherwise and notifications go to the log.
func newNotifier(cfg *config.Config, log *zap.Logger) (runner.Notifier, *service.Telegram, error) {
	if cfg.Telegram.Token == "" {
		log.Warn("telegram token is empty, notifications go to the log")
		return notify.NewLog(log), nil, nil
	}
	t, err := service.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatIDs, log.Named("telegram"))
	if err != nil {
		return nil, nil, err
	}
	return t, t, nil
}

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(newNotifier),
		// commands are served on the app ctx so polling outlives the start hook
		fx.Invoke(
			func(lc fx.Lifecycle, t *service.Telegram, b *runner.Bot, ctx context.Context) {
				if t == nil {
					return
				}
				lc.Append(fx.Hook{
					OnStart: func(context.Context) error {
						t.Serve(ctx, b)
						return nil
					},
					OnStop: func(context.Context) error {
						t.Stop()
						return nil
					},
				})
			},
		),
	)
}
