package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"binary_bot/internal/models"
	"binary_bot/internal/runner"
)

// botAPI is the subset of *tgbot.BotAPI the service uses.
type botAPI interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
	Request(c tgbot.Chattable) (*tgbot.APIResponse, error)
	GetUpdatesChan(config tgbot.UpdateConfig) tgbot.UpdatesChannel
	StopReceivingUpdates()
}

// Controller is the part of the bot the chat commands drive.
type Controller interface {
	Run() error
	Stop() error
	Status() runner.Status
	IsDemo() bool
	SetStake(ctx context.Context, amount float64) error
	SetMinConfidence(ctx context.Context, v float64) error
	SetRiskLevel(ctx context.Context, level models.RiskLevel) error
	StartSession(ctx context.Context, tag string) (models.Session, error)
	EndSession(ctx context.Context) (models.Session, error)
}

type pending struct {
	ch     chan bool
	msgID  int
	prompt string
}

// Telegram sends bot notifications to the operator chats and serves their commands.
type Telegram struct {
	bot            botAPI
	chatIDs        []int64
	log            *zap.Logger
	confirmTimeout time.Duration

	mu       sync.Mutex
	pendings map[string]*pending
	await    *awaitStore
	wg       sync.WaitGroup
}

func NewTelegram(token string, chatIDs []int64, log *zap.Logger) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return newTelegram(b, chatIDs, log), nil
}

func newTelegram(api botAPI, chatIDs []int64, log *zap.Logger) *Telegram {
	return &Telegram{
		bot:            api,
		chatIDs:        chatIDs,
		log:            log,
		confirmTimeout: time.Minute,
		pendings:       make(map[string]*pending),
		await:          newAwaitStore(),
	}
}

func (t *Telegram) Send(ctx context.Context, chatID int64, msg string) (tgbot.Message, error) {
	return t.SendMessage(ctx, tgbot.NewMessage(chatID, msg))
}

func (t *Telegram) SendF(ctx context.Context, chatID int64, format string, args ...any) (tgbot.Message, error) {
	return t.Send(ctx, chatID, fmt.Sprintf(format, args...))
}

func (t *Telegram) SendMessage(_ context.Context, message tgbot.MessageConfig) (tgbot.Message, error) {
	return t.bot.Send(message)
}

// Notify broadcasts to every operator chat. Delivery errors are only logged.
func (t *Telegram) Notify(ctx context.Context, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	for _, id := range t.chatIDs {
		if _, err := t.Send(ctx, id, text); err != nil {
			t.log.Warn("telegram notify failed", zap.Int64("chat_id", id), zap.Error(err))
		}
	}
}

func (t *Telegram) allowed(chatID int64) bool {
	for _, id := range t.chatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

func (t *Telegram) editReplyMarkupRemove(chatID int64, msgID int) error {
	rm := tgbot.InlineKeyboardMarkup{InlineKeyboard: [][]tgbot.InlineKeyboardButton{}}
	edit := tgbot.NewEditMessageReplyMarkup(chatID, msgID, rm)
	_, err := t.bot.Request(edit)
	return err
}

func (t *Telegram) editText(chatID int64, msgID int, text string) error {
	edit := tgbot.NewEditMessageText(chatID, msgID, text)
	_, err := t.bot.Request(edit)
	return err
}

// Confirm sends prompt with yes/no buttons and waits for the answer. Timeout
// and cancellation count as "no".
func (t *Telegram) Confirm(ctx context.Context, chatID int64, prompt string, timeout time.Duration) bool {
	token := fmt.Sprintf("%d", time.Now().UnixNano())
	p := &pending{
		ch:     make(chan bool, 1),
		prompt: prompt,
	}

	t.mu.Lock()
	t.pendings[token] = p
	t.mu.Unlock()

	btnYes := tgbot.NewInlineKeyboardButtonData("✅ Yes", "CONF::"+token)
	btnNo := tgbot.NewInlineKeyboardButtonData("❌ No", "REJ::"+token)
	kb := tgbot.NewInlineKeyboardMarkup(tgbot.NewInlineKeyboardRow(btnYes, btnNo))

	msg := tgbot.NewMessage(chatID, prompt)
	msg.ReplyMarkup = kb

	sent, _ := t.bot.Send(msg)
	t.mu.Lock()
	p.msgID = sent.MessageID
	t.mu.Unlock()

	tmr := time.NewTimer(timeout)
	defer tmr.Stop()

	var note string
	select {
	case ok := <-p.ch:
		return ok
	case <-tmr.C:
		note = "⏳ Timeout"
	case <-ctx.Done():
		note = "⛔️ Cancelled"
	}
	t.mu.Lock()
	delete(t.pendings, token)
	t.mu.Unlock()
	_ = t.editReplyMarkupRemove(chatID, p.msgID)
	_ = t.editText(chatID, p.msgID, fmt.Sprintf("%s\n\n%s", prompt, note))
	return false
}

// Serve long-polls updates until ctx is done or Stop is called.
func (t *Telegram) Serve(ctx context.Context, ctl Controller) {
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message", "callback_query"}
	updates := t.bot.GetUpdatesChan(u)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				t.handleUpdate(ctx, ctl, update)
			}
		}
	}()
}

func (t *Telegram) Stop() {
	t.bot.StopReceivingUpdates()
	t.wg.Wait()
}
