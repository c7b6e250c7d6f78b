package runner

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"binary_bot/internal/models"
	"binary_bot/internal/store"
)

// restore loads settings, ledger and sessions saved by a previous run.
func (b *Bot) restore(ctx context.Context) error {
	if b.store == nil {
		return nil
	}

	var settings models.Settings
	switch err := b.store.Load(ctx, store.KeySettings, &settings); {
	case err == nil:
		if verr := settings.Validate(); verr != nil {
			b.log.Warn("persisted settings ignored", zap.Error(verr))
			break
		}
		b.mu.Lock()
		settings.IsDemoMode = b.settings.IsDemoMode
		b.settings = settings
		b.mu.Unlock()
	case !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("restore settings: %w", err)
	}

	var acc models.AccountState
	switch err := b.store.Load(ctx, store.KeyStats, &acc); {
	case err == nil:
		var open, history []models.Trade
		if err := b.loadOptional(ctx, store.KeyOpenTrades, &open); err != nil {
			return err
		}
		if err := b.loadOptional(ctx, store.KeyTrades, &history); err != nil {
			return err
		}
		if err := b.ledger.Restore(acc, open, history); err != nil {
			return fmt.Errorf("restore ledger: %w", err)
		}
		b.log.Info("ledger restored",
			zap.Float64("balance", acc.Balance),
			zap.Int("open", len(open)),
			zap.Int("history", len(history)),
		)
	case !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("restore stats: %w", err)
	}

	if b.sessions != nil {
		var sessions []models.Session
		if err := b.loadOptional(ctx, store.KeySessions, &sessions); err != nil {
			return err
		}
		if err := b.sessions.Restore(sessions); err != nil {
			return fmt.Errorf("restore sessions: %w", err)
		}
	}

	b.afterBalanceChange()
	return nil
}

func (b *Bot) loadOptional(ctx context.Context, key string, v any) error {
	err := b.store.Load(ctx, key, v)
	if err == nil || errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("restore %s: %w", key, err)
}

// persist writes every state blob. Failures are logged; trading goes on.
func (b *Bot) persist(ctx context.Context) {
	if b.store == nil {
		return
	}
	b.persistMu.Lock()
	defer b.persistMu.Unlock()

	var err error
	err = multierr.Append(err, b.store.Save(ctx, store.KeyStats, b.ledger.Snapshot()))
	err = multierr.Append(err, b.store.Save(ctx, store.KeyOpenTrades, b.ledger.OpenTrades()))
	err = multierr.Append(err, b.store.Save(ctx, store.KeyTrades, b.ledger.History()))
	err = multierr.Append(err, b.store.Save(ctx, store.KeySettings, b.Settings()))
	if b.sessions != nil {
		err = multierr.Append(err, b.store.Save(ctx, store.KeySessions, b.sessions.All()))
	}
	if err != nil {
		b.log.Error("persist state", zap.Error(err))
	}
}
