package runner

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"binary_bot/internal/models"
)

// UpdateSettings validates and applies new settings. Invalid values are
// rejected with models.ErrConfigurationInvalid, never clamped.
func (b *Bot) UpdateSettings(ctx context.Context, s models.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	if s.IsDemoMode != b.settings.IsDemoMode {
		b.mu.Unlock()
		return errors.Wrap(models.ErrConfigurationInvalid, "switching demo mode requires a restart")
	}
	b.settings = s
	b.mu.Unlock()

	b.log.Info("settings updated",
		zap.Float64("entry_amount", s.EntryAmount),
		zap.Float64("min_confidence", s.MinConfidence),
		zap.Int("max_daily_trades", s.MaxDailyTrades),
		zap.String("risk_level", string(s.RiskLevel)),
	)
	b.persist(ctx)
	return nil
}

func (b *Bot) SetStake(ctx context.Context, amount float64) error {
	s := b.Settings()
	s.EntryAmount = amount
	return b.UpdateSettings(ctx, s)
}

func (b *Bot) SetMinConfidence(ctx context.Context, v float64) error {
	s := b.Settings()
	s.MinConfidence = v
	return b.UpdateSettings(ctx, s)
}

// SetRiskLevel applies the preset limits of level.
func (b *Bot) SetRiskLevel(ctx context.Context, level models.RiskLevel) error {
	s, err := b.Settings().ApplyPreset(level)
	if err != nil {
		return err
	}
	return b.UpdateSettings(ctx, s)
}

func (b *Bot) StartSession(ctx context.Context, tag string) (models.Session, error) {
	if b.sessions == nil {
		return models.Session{}, models.ErrNotDemo
	}
	s, err := b.sessions.Start(b.ledger.Snapshot().Balance, tag)
	if err != nil {
		return models.Session{}, err
	}
	b.persist(ctx)
	return s, nil
}

func (b *Bot) EndSession(ctx context.Context) (models.Session, error) {
	if b.sessions == nil {
		return models.Session{}, models.ErrNoSession
	}
	s, err := b.sessions.End(b.ledger.Snapshot().Balance)
	if err != nil {
		return models.Session{}, err
	}
	b.persist(ctx)
	return s, nil
}
