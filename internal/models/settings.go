package models

import (
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Settings are the trading limits, read-only for the decision loop during a cycle.
type Settings struct {
	// percent of the day's starting balance
	StopLoss float64 `json:"stop_loss" yaml:"stop_loss" default:"80" validate:"gte=0,lte=100"`
	StopWin  float64 `json:"stop_win" yaml:"stop_win" default:"85" validate:"gte=0"`

	EntryAmount    float64   `json:"entry_amount" yaml:"entry_amount" default:"10" validate:"gt=0"`
	MaxDailyTrades int       `json:"max_daily_trades" yaml:"max_daily_trades" default:"20" validate:"gte=1"`
	MinConfidence  float64   `json:"min_confidence" yaml:"min_confidence" default:"0.65" validate:"gte=0,lte=1"`
	RiskLevel      RiskLevel `json:"risk_level" yaml:"risk_level" default:"MEDIUM" validate:"oneof=LOW MEDIUM HIGH"`
	EnableML       bool      `json:"enable_ml" yaml:"enable_ml" default:"true"`
	IsDemoMode     bool      `json:"is_demo_mode" yaml:"is_demo_mode" default:"true"`
	DemoBalance    float64   `json:"demo_balance" yaml:"demo_balance" default:"10000" validate:"gte=0"`
}

var validate = validator.New()

// DefaultSettings returns settings filled from the `default` tags.
func DefaultSettings() Settings {
	var s Settings
	_ = defaults.Set(&s)
	return s
}

// Validate rejects invalid settings; values are never clamped.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return errors.Wrap(ErrConfigurationInvalid,
				fmt.Sprintf("%s=%v fails %s", f.Field(), f.Value(), f.Tag()))
		}
		return errors.Wrap(ErrConfigurationInvalid, err.Error())
	}
	if s.IsDemoMode && s.DemoBalance < s.EntryAmount {
		return errors.Wrap(ErrConfigurationInvalid, "demo balance is below entry amount")
	}
	return nil
}

// Preset is a bundle of limits behind a risk level.
type Preset struct {
	Name        string
	Description string
	Apply       func(s *Settings)
}

var Presets = map[RiskLevel]Preset{
	RiskLow: {
		Name:        "Conservative",
		Description: "few trades, high confidence bar",
		Apply: func(s *Settings) {
			s.RiskLevel = RiskLow
			s.MinConfidence = 0.75
			s.MaxDailyTrades = 10
			s.StopLoss = 10
			s.StopWin = 15
		},
	},
	RiskMedium: {
		Name:        "Balanced",
		Description: "defaults of the original dashboard",
		Apply: func(s *Settings) {
			s.RiskLevel = RiskMedium
			s.MinConfidence = 0.65
			s.MaxDailyTrades = 20
			s.StopLoss = 20
			s.StopWin = 30
		},
	},
	RiskHigh: {
		Name:        "Aggressive",
		Description: "more trades, lower confidence bar",
		Apply: func(s *Settings) {
			s.RiskLevel = RiskHigh
			s.MinConfidence = 0.6
			s.MaxDailyTrades = 40
			s.StopLoss = 40
			s.StopWin = 60
		},
	},
}

// ApplyPreset returns a copy of s with the preset of level applied.
func (s Settings) ApplyPreset(level RiskLevel) (Settings, error) {
	p, ok := Presets[level]
	if !ok {
		return s, errors.Wrapf(ErrConfigurationInvalid, "unknown risk level %q", level)
	}
	p.Apply(&s)
	return s, nil
}
