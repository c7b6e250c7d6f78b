package models

import "time"

// Session brackets a sequence of demo trades for strategy comparison.
type Session struct {
	ID             string     `json:"id"`
	StrategyTag    string     `json:"strategy_tag"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	InitialBalance float64    `json:"initial_balance"`
	FinalBalance   *float64   `json:"final_balance,omitempty"`
	LowestBalance  float64    `json:"lowest_balance"`
	TotalTrades    int        `json:"total_trades"`
	WinningTrades  int        `json:"winning_trades"`
	WinRate        float64    `json:"win_rate"`
	MaxDrawdown    float64    `json:"max_drawdown"`
}

func (s Session) Closed() bool { return s.EndedAt != nil }
