package indicator

import (
	"math"

	"binary_bot/internal/models"
)

// Engine turns a price window (most recent last) into an indicator snapshot.
type Engine interface {
	Compute(window []float64) models.IndicatorSnapshot
}

type Config struct {
	MinPeriod       int     `yaml:"min_period"`
	RSIPeriod       int     `yaml:"rsi_period"`
	MACDFast        int     `yaml:"macd_fast"`
	MACDSlow        int     `yaml:"macd_slow"`
	MACDSignal      int     `yaml:"macd_signal"`
	SMAPeriod       int     `yaml:"sma_period"`
	EMAPeriod       int     `yaml:"ema_period"`
	BollingerPeriod int     `yaml:"bollinger_period"`
	BollingerK      float64 `yaml:"bollinger_k"`
}

func DefaultConfig() Config {
	return Config{
		MinPeriod:       20,
		RSIPeriod:       14,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		SMAPeriod:       20,
		EMAPeriod:       12,
		BollingerPeriod: 20,
		BollingerK:      2,
	}
}

// Standard computes Wilder RSI, EMA based MACD, SMA/EMA and Bollinger bands.
type Standard struct {
	cfg Config
}

func NewStandard(cfg Config) *Standard {
	def := DefaultConfig()
	if cfg.MinPeriod <= 0 {
		cfg.MinPeriod = def.MinPeriod
	}
	if cfg.RSIPeriod <= 0 {
		cfg.RSIPeriod = def.RSIPeriod
	}
	if cfg.MACDFast <= 0 {
		cfg.MACDFast = def.MACDFast
	}
	if cfg.MACDSlow <= cfg.MACDFast {
		cfg.MACDSlow = def.MACDSlow
	}
	if cfg.MACDSignal <= 0 {
		cfg.MACDSignal = def.MACDSignal
	}
	if cfg.SMAPeriod <= 0 {
		cfg.SMAPeriod = def.SMAPeriod
	}
	if cfg.EMAPeriod <= 0 {
		cfg.EMAPeriod = def.EMAPeriod
	}
	if cfg.BollingerPeriod <= 0 {
		cfg.BollingerPeriod = def.BollingerPeriod
	}
	if cfg.BollingerK <= 0 {
		cfg.BollingerK = def.BollingerK
	}
	return &Standard{cfg: cfg}
}

func (s *Standard) MinPeriod() int { return s.cfg.MinPeriod }

func (s *Standard) Compute(window []float64) models.IndicatorSnapshot {
	if len(window) < s.cfg.MinPeriod {
		return models.NeutralSnapshot()
	}

	rsi := newRSI(s.cfg.RSIPeriod)
	fast := newEMA(s.cfg.MACDFast)
	slow := newEMA(s.cfg.MACDSlow)
	signal := newEMA(s.cfg.MACDSignal)
	for _, p := range window {
		rsi.Update(p)
		fast.Update(p)
		slow.Update(p)
		signal.Update(fast.Value() - slow.Value())
	}
	macd := fast.Value() - slow.Value()

	return models.IndicatorSnapshot{
		RSI:           clamp(rsi.Value(), 0, 100),
		MACD:          macd,
		MACDSignal:    signal.Value(),
		MACDHistogram: macd - signal.Value(),
		SMA:           mean(tail(window, s.cfg.SMAPeriod)),
		EMA:           emaOf(window, s.cfg.EMAPeriod),
		Bollinger:     bollinger(tail(window, s.cfg.BollingerPeriod), s.cfg.BollingerK),
		Ready:         true,
	}
}

func bollinger(xs []float64, k float64) *models.Bollinger {
	if len(xs) == 0 {
		return nil
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	sd := math.Sqrt(ss / float64(len(xs)))
	return &models.Bollinger{Upper: m + k*sd, Middle: m, Lower: m - k*sd}
}

func tail(xs []float64, n int) []float64 {
	if n >= len(xs) {
		return xs
	}
	return xs[len(xs)-n:]
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
