package service

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"binary_bot/internal/models"
	"binary_bot/internal/runner"
)

const helpText = "Commands:\n" +
	"/run - start trading\n" +
	"/stop - stop opening trades\n" +
	"/status - account and market state\n" +
	"/trades - open and recent trades\n" +
	"/settings - current limits\n" +
	"/stake <amount> - entry amount\n" +
	"/minconf <0..1> - confidence threshold\n" +
	"/risk <LOW|MEDIUM|HIGH> - apply a preset\n" +
	"/session_start [tag] - start a demo session\n" +
	"/session_end - close the demo session\n" +
	"/sessions - session history"

func (t *Telegram) handleUpdate(ctx context.Context, ctl Controller, update tgbotapi.Update) {
	if cb := update.CallbackQuery; cb != nil {
		if cb.Message == nil || cb.Message.Chat == nil || !t.allowed(cb.Message.Chat.ID) {
			return
		}
		t.handleCallback(cb)
		return
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID
	if !t.allowed(chatID) {
		t.log.Warn("message from unknown chat", zap.Int64("chat_id", chatID))
		return
	}

	var reply string
	if msg.IsCommand() {
		t.clearAwait(chatID)
		reply = t.handleCommand(ctx, ctl, chatID, msg.Command(), strings.TrimSpace(msg.CommandArguments()))
	} else if key, ok := t.popAwait(chatID); ok {
		reply = t.handleAwaitValue(ctx, ctl, key, msg.Text)
	}
	if reply == "" {
		return
	}
	if _, err := t.Send(ctx, chatID, reply); err != nil {
		t.log.Warn("telegram reply failed", zap.Error(err))
	}
}

// handleCallback resolves a pending Confirm. Data is CONF::token or REJ::token.
func (t *Telegram) handleCallback(cb *tgbotapi.CallbackQuery) {
	_, _ = t.bot.Request(tgbotapi.NewCallback(cb.ID, ""))

	verb, token, ok := strings.Cut(cb.Data, "::")
	if !ok || token == "" {
		return
	}

	t.mu.Lock()
	p, found := t.pendings[token]
	delete(t.pendings, token)
	t.mu.Unlock()
	if !found {
		return
	}

	accepted := verb == "CONF"
	p.ch <- accepted

	status := "❌ Rejected"
	if accepted {
		status = "✅ Confirmed"
	}
	chatID := cb.Message.Chat.ID
	_ = t.editReplyMarkupRemove(chatID, cb.Message.MessageID)
	_ = t.editText(chatID, cb.Message.MessageID, fmt.Sprintf("%s\n\n%s", p.prompt, status))
}

// handleCommand executes one chat command and returns the reply text.
func (t *Telegram) handleCommand(ctx context.Context, ctl Controller, chatID int64, cmd, args string) string {
	switch cmd {
	case "start", "help":
		return helpText

	case "run":
		if ctl.IsDemo() {
			return replyErr(ctl.Run(), "▶️ Trading started (demo)")
		}
		// live money needs an explicit yes; the answer arrives through this same update loop
		go func() {
			if !t.Confirm(ctx, chatID, "Start trading with REAL funds?", t.confirmTimeout) {
				return
			}
			_, _ = t.Send(ctx, chatID, replyErr(ctl.Run(), "▶️ Trading started (live)"))
		}()
		return ""

	case "stop":
		return replyErr(ctl.Stop(), "⏹ Trading stopped, open trades keep settling")

	case "status":
		return formatStatus(ctl.Status())

	case "trades":
		st := ctl.Status()
		return formatTrades(st.OpenTrades, st.RecentTrades)

	case "settings":
		return formatSettings(ctl.Status().Settings)

	case "stake", "minconf":
		if args == "" {
			t.setAwait(chatID, cmd)
			return askHint(cmd)
		}
		return t.handleAwaitValue(ctx, ctl, cmd, args)

	case "risk":
		level := models.RiskLevel(strings.ToUpper(args))
		if err := ctl.SetRiskLevel(ctx, level); err != nil {
			return replyErr(err, "")
		}
		return "✅ Risk preset applied\n\n" + formatSettings(ctl.Status().Settings)

	case "session_start":
		s, err := ctl.StartSession(ctx, args)
		if err != nil {
			return replyErr(err, "")
		}
		return "🧪 Session started\n\n" + formatSession(s)

	case "session_end":
		s, err := ctl.EndSession(ctx)
		if err != nil {
			return replyErr(err, "")
		}
		return "🏁 Session finished\n\n" + formatSession(s)

	case "sessions":
		return formatSessions(ctl.Status().Sessions)

	default:
		return "Unknown command\n\n" + helpText
	}
}

func askHint(key string) string {
	switch key {
	case "stake":
		return "✍️ Send the entry amount, e.g. `10`"
	case "minconf":
		return "✍️ Send the confidence threshold 0..1, e.g. `0.7`"
	default:
		return "✍️ Send a value"
	}
}

func (t *Telegram) handleAwaitValue(ctx context.Context, ctl Controller, key, text string) string {
	v, err := parseFloat(text)
	if err != nil {
		return "❗️ A number is expected, e.g. `10`"
	}
	switch key {
	case "stake":
		return replyErr(ctl.SetStake(ctx, v), "✅ Entry amount: "+f2(v))
	case "minconf":
		return replyErr(ctl.SetMinConfidence(ctx, v), "✅ Min confidence: "+f2(v))
	default:
		return ""
	}
}

// replyErr maps bot errors to operator-facing text, ok is returned on success.
func replyErr(err error, ok string) string {
	switch {
	case err == nil:
		return ok
	case errors.Is(err, runner.ErrAlreadyActive):
		return "ℹ️ Trading is already running"
	case errors.Is(err, runner.ErrNotRunning):
		return "ℹ️ Trading is not running"
	case errors.Is(err, runner.ErrDisconnected):
		return "🔌 Broker is disconnected, restart the bot"
	case errors.Is(err, models.ErrNotDemo):
		return "❗️ Sessions are available in demo mode only"
	case errors.Is(err, models.ErrSessionOpen):
		return "❗️ A session is already open"
	case errors.Is(err, models.ErrNoSession):
		return "❗️ No open session"
	case errors.Is(err, models.ErrConfigurationInvalid):
		return "❗️ Rejected: " + err.Error()
	default:
		return "❌ " + err.Error()
	}
}
