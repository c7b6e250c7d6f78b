package risk

import (
	"fmt"

	"binary_bot/internal/models"
)

// Rejection kinds, stable enough to be used as metric labels.
const (
	KindConfidence = "confidence"
	KindDailyLimit = "daily_limit"
	KindBalance    = "balance"
)

// Rejection explains why a trade was not admitted.
type Rejection struct {
	Kind   string
	Reason string
}

func (r *Rejection) Error() string { return "trade rejected: " + r.Reason }

// Admit is true iff confidence, daily count and balance limits all hold.
func Admit(p models.Prediction, account models.AccountState, s models.Settings) bool {
	return Check(p, account, s) == nil
}

// Check returns the first failing limit, nil when the trade is admitted.
func Check(p models.Prediction, account models.AccountState, s models.Settings) error {
	if p.Confidence < s.MinConfidence {
		return &Rejection{Kind: KindConfidence, Reason: fmt.Sprintf("confidence %.2f < %.2f", p.Confidence, s.MinConfidence)}
	}
	if account.DailyTradeCount >= s.MaxDailyTrades {
		return &Rejection{Kind: KindDailyLimit, Reason: fmt.Sprintf("daily trades %d/%d", account.DailyTradeCount, s.MaxDailyTrades)}
	}
	if account.Balance < s.EntryAmount {
		return &Rejection{Kind: KindBalance, Reason: fmt.Sprintf("balance %.2f < stake %.2f", account.Balance, s.EntryAmount)}
	}
	return nil
}

// StopReached reports whether the day's stop-loss or stop-win threshold was hit,
// relative to the balance the day started with. A zero threshold disables it.
func StopReached(account models.AccountState, s models.Settings) (bool, string) {
	start := account.DayStartBalance
	if start <= 0 {
		return false, ""
	}
	change := (account.Balance - start) * 100 / start
	if s.StopLoss > 0 && -change >= s.StopLoss {
		return true, fmt.Sprintf("stop loss %.1f%% reached (%.1f%%)", s.StopLoss, change)
	}
	if s.StopWin > 0 && change >= s.StopWin {
		return true, fmt.Sprintf("stop win %.1f%% reached (%.1f%%)", s.StopWin, change)
	}
	return false, ""
}
