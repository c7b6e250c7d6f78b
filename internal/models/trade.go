package models

import "time"

type TradeResult string

const (
	ResultWin  TradeResult = "WIN"
	ResultLoss TradeResult = "LOSS"
)

// Trade is OPEN while Result is nil and CLOSED once the ledger settles it.
type Trade struct {
	ID         string    `json:"id"`
	Instrument string    `json:"instrument"`
	Direction  Direction `json:"direction"`
	Stake      float64   `json:"stake"`
	OpenedAt   time.Time `json:"opened_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	EntryPrice float64   `json:"entry_price"`
	Confidence float64   `json:"confidence"`
	PayoutRate float64   `json:"payout_rate"`

	Result    *TradeResult `json:"result,omitempty"`
	Profit    *float64     `json:"profit,omitempty"`
	ExitPrice *float64     `json:"exit_price,omitempty"`
	ClosedAt  *time.Time   `json:"closed_at,omitempty"`
}

func (t Trade) IsOpen() bool { return t.Result == nil }

// Due reports whether the trade may be settled at now.
func (t Trade) Due(now time.Time) bool {
	return t.IsOpen() && !now.Before(t.ExpiresAt)
}

func (t Trade) Won() bool {
	return t.Result != nil && *t.Result == ResultWin
}

// Outcome is the settlement result reported by a resolver.
type Outcome struct {
	Result    TradeResult
	ExitPrice float64
}

// AccountState holds balance and trade statistics of the single traded account.
type AccountState struct {
	Balance         float64   `json:"balance"`
	DailyTradeCount int       `json:"daily_trade_count"`
	Day             time.Time `json:"day"`
	DayStartBalance float64   `json:"day_start_balance"`
	TotalTrades     int       `json:"total_trades"`
	WinningTrades   int       `json:"winning_trades"`
	LosingTrades    int       `json:"losing_trades"`
	TotalProfit     float64   `json:"total_profit"`
}

// WinRate in percent, 0 without closed trades.
func (a AccountState) WinRate() float64 {
	closed := a.WinningTrades + a.LosingTrades
	if closed == 0 {
		return 0
	}
	return float64(a.WinningTrades) / float64(closed) * 100
}

// DayOf truncates t to the UTC calendar day used for the daily trade counter.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
