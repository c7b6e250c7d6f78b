package signal

import "binary_bot/internal/models"

// Override is what a matched rule does to the running direction.
type Override int

const (
	Keep Override = iota
	SetUp
	SetDown
	Invert
)

func (o Override) apply(d models.Direction) models.Direction {
	switch o {
	case SetUp:
		return models.DirectionUp
	case SetDown:
		return models.DirectionDown
	case Invert:
		return d.Opposite()
	default:
		return d
	}
}

// Input is everything a rule may look at.
type Input struct {
	Snapshot models.IndicatorSnapshot
	Recent   []models.Trade // closed trades, oldest first
	EnableML bool
}

// Rule is one step of the ordered fold. Later rules may flip the direction set by earlier ones.
type Rule struct {
	Name     string
	Match    func(in Input) bool
	Adjust   float64
	Override Override
}

// DefaultRecentTrades is how many closed trades the history rules look at.
const DefaultRecentTrades = 10

const (
	rsiOversold    = 30
	rsiOverbought  = 70
	minHistory     = 3
	hotWinRate     = 0.6
	coldWinRate    = 0.4
	historyAdjust  = 0.05
	indicatorBoost = 0.15
	macdBoost      = 0.10
)

// DefaultRules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "RSI Oversold",
			Match:    func(in Input) bool { return in.Snapshot.RSI < rsiOversold },
			Adjust:   indicatorBoost,
			Override: SetUp,
		},
		{
			Name:     "RSI Overbought",
			Match:    func(in Input) bool { return in.Snapshot.RSI > rsiOverbought },
			Adjust:   indicatorBoost,
			Override: SetDown,
		},
		{
			Name:   "MACD Bullish",
			Match:  func(in Input) bool { return in.Snapshot.MACDHistogram > 0 },
			Adjust: macdBoost,
		},
		{
			Name:     "MACD Bearish",
			Match:    func(in Input) bool { return in.Snapshot.MACDHistogram <= 0 },
			Adjust:   macdBoost,
			Override: Invert,
		},
		{
			Name: "Recent Win Streak",
			Match: func(in Input) bool {
				r, ok := winRate(in.Recent)
				return in.EnableML && ok && r >= hotWinRate
			},
			Adjust: historyAdjust,
		},
		{
			Name: "Recent Losing Streak",
			Match: func(in Input) bool {
				r, ok := winRate(in.Recent)
				return in.EnableML && ok && r <= coldWinRate
			},
			Adjust: -historyAdjust,
		},
	}
}

func winRate(trades []models.Trade) (float64, bool) {
	closed, wins := 0, 0
	for _, t := range trades {
		if t.IsOpen() {
			continue
		}
		closed++
		if t.Won() {
			wins++
		}
	}
	if closed < minHistory {
		return 0, false
	}
	return float64(wins) / float64(closed), true
}
