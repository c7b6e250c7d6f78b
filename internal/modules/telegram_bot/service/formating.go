package service

import (
	"fmt"
	"strings"

	"binary_bot/internal/models"
	"binary_bot/internal/runner"
)

func formatStatus(st runner.Status) string {
	var b strings.Builder
	state := "⏸ idle"
	if st.Running {
		state = "▶️ trading"
	}
	if !st.Connected {
		state = "🔌 disconnected"
	}
	fmt.Fprintf(&b, "*📊 Status*: %s\n", state)
	if st.StopReason != "" {
		fmt.Fprintf(&b, "Stopped: %s\n", st.StopReason)
	}
	fmt.Fprintf(&b, "\n%s `%s`\n", st.Instrument, f2(st.LastPrice))

	a := st.Account
	fmt.Fprintf(&b,
		"Balance: `%s` (day start `%s`)\n"+
			"Trades today: `%d/%d`\n"+
			"Total: `%d` won `%d` lost `%d` (win rate `%s%%`)\n"+
			"Profit: `%s`\n"+
			"Open trades: `%d`\n",
		f2(a.Balance), f2(a.DayStartBalance),
		a.DailyTradeCount, st.Settings.MaxDailyTrades,
		a.TotalTrades, a.WinningTrades, a.LosingTrades, f2(st.WinRate),
		f2(a.TotalProfit),
		len(st.OpenTrades),
	)

	ind := st.Indicators
	if ind.Ready {
		fmt.Fprintf(&b, "\nRSI `%s` MACD hist `%s` SMA `%s` EMA `%s`\n",
			f2(ind.RSI), f2(ind.MACDHistogram), f2(ind.SMA), f2(ind.EMA))
	} else {
		b.WriteString("\nIndicators warming up\n")
	}
	if p := st.Prediction; p != nil {
		fmt.Fprintf(&b, "Signal: *%s* `%s`\n", p.Direction, f2(p.Confidence))
		if len(p.Factors) > 0 {
			fmt.Fprintf(&b, "Factors: %s\n", strings.Join(p.Factors, ", "))
		}
	}
	if st.Session != nil {
		fmt.Fprintf(&b, "\nSession `%s` running since %s\n",
			st.Session.StrategyTag, st.Session.StartedAt.Format("2006-01-02 15:04"))
	}
	return b.String()
}

func formatSettings(s models.Settings) string {
	mode := "LIVE"
	if s.IsDemoMode {
		mode = "DEMO"
	}
	return fmt.Sprintf(
		"*⚙️ Settings* (%s)\n\n"+
			"Risk level: `%s`\n"+
			"Entry amount: `%s`\n"+
			"Min confidence: `%s`\n"+
			"Max trades per day: `%d`\n"+
			"Stop loss: `%s%%`\n"+
			"Stop win: `%s%%`\n"+
			"History rules: *%s*\n",
		mode,
		s.RiskLevel,
		f2(s.EntryAmount),
		f2(s.MinConfidence),
		s.MaxDailyTrades,
		f2(s.StopLoss),
		f2(s.StopWin),
		onOff(s.EnableML),
	)
}

func formatTrade(t models.Trade) string {
	line := fmt.Sprintf("%s %s stake `%s` @ `%s`",
		t.OpenedAt.Format("15:04:05"), t.Direction, f2(t.Stake), f2(t.EntryPrice))
	if t.IsOpen() {
		return line + fmt.Sprintf(" expires %s", t.ExpiresAt.Format("15:04:05"))
	}
	mark := "❌"
	if t.Won() {
		mark = "✅"
	}
	profit := 0.0
	if t.Profit != nil {
		profit = *t.Profit
	}
	return fmt.Sprintf("%s %s `%+.2f`", mark, line, profit)
}

func formatTrades(open, recent []models.Trade) string {
	var b strings.Builder
	if len(open) == 0 && len(recent) == 0 {
		return "📭 No trades yet"
	}
	if len(open) > 0 {
		b.WriteString("*⏳ Open*\n")
		for _, t := range open {
			b.WriteString(formatTrade(t) + "\n")
		}
	}
	if len(recent) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("*📜 Recent*\n")
		for _, t := range recent {
			b.WriteString(formatTrade(t) + "\n")
		}
	}
	return b.String()
}

func formatSession(s models.Session) string {
	var b strings.Builder
	tag := s.StrategyTag
	if tag == "" {
		tag = "untagged"
	}
	fmt.Fprintf(&b, "`%s` started %s\n", tag, s.StartedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Initial balance: `%s`\n", f2(s.InitialBalance))
	if s.Closed() {
		final := 0.0
		if s.FinalBalance != nil {
			final = *s.FinalBalance
		}
		fmt.Fprintf(&b,
			"Final balance: `%s`\n"+
				"Trades: `%d` won `%d` (win rate `%s%%`)\n"+
				"Max drawdown: `%s%%`\n",
			f2(final), s.TotalTrades, s.WinningTrades, f2(s.WinRate), f2(s.MaxDrawdown))
	}
	return b.String()
}

func formatSessions(ss []models.Session) string {
	if len(ss) == 0 {
		return "📭 No sessions yet"
	}
	var b strings.Builder
	b.WriteString("*🧪 Sessions*\n\n")
	for _, s := range ss {
		b.WriteString(formatSession(s) + "\n")
	}
	return b.String()
}
