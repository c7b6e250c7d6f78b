package models

import "time"

// PriceSample is one price observation of the traded instrument.
type PriceSample struct {
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

type Bollinger struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// IndicatorSnapshot is recomputed from the whole price window on every tick.
// Ready == false means "insufficient data" (neutral snapshot).
type IndicatorSnapshot struct {
	RSI           float64    `json:"rsi"`
	MACD          float64    `json:"macd"`
	MACDSignal    float64    `json:"macd_signal"`
	MACDHistogram float64    `json:"macd_histogram"`
	SMA           float64    `json:"sma"`
	EMA           float64    `json:"ema"`
	Bollinger     *Bollinger `json:"bollinger,omitempty"`
	Ready         bool       `json:"ready"`
}

// NeutralSnapshot is returned while the window is shorter than the indicator warmup.
func NeutralSnapshot() IndicatorSnapshot {
	return IndicatorSnapshot{RSI: 50}
}

type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

func (d Direction) Opposite() Direction {
	if d == DirectionUp {
		return DirectionDown
	}
	return DirectionUp
}

func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}

// Prediction is the output of the signal generator.
type Prediction struct {
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"`
	Factors    []string  `json:"factors"`
	At         time.Time `json:"at"`
}
