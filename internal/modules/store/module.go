package store

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"binary_bot/internal/modules/config"
	"binary_bot/internal/store"
	"binary_bot/pkg/db"
)

// NewBackend picks the persistence backend named by store.driver.
func NewBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Backend, error) {
	switch cfg.Store.Driver {
	case "", "memory":
		log.Warn("state is kept in memory and lost on restart")
		return store.NewMemory(), nil

	case "postgres":
		poolMaster, err := db.NewPool(ctx, db.PoolConfig{
			DSN:      cfg.Store.DSN,
			MaxConns: cfg.Store.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create poolMaster: %w", err)
		}
		if err = poolMaster.Ping(ctx); err != nil {
			poolMaster.Close()
			return nil, err
		}
		pg := store.NewPostgres(db.NewPgTxManager(poolMaster))
		if err = pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		return pg, nil

	case "redis":
		r := store.NewRedis(cfg.Store.Redis)
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return nil, err
		}
		return r, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func Module() fx.Option {
	return fx.Module("store",
		fx.Provide(
			NewBackend,
			store.New,
		),
		fx.Invoke(func(lc fx.Lifecycle, s *store.Store) {
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					return s.Close()
				},
			})
		}),
	)
}
