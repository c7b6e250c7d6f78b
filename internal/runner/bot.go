package runner

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"binary_bot/internal/broker"
	"binary_bot/internal/executor"
	"binary_bot/internal/feed"
	"binary_bot/internal/indicator"
	"binary_bot/internal/ledger"
	"binary_bot/internal/metrics"
	"binary_bot/internal/models"
	"binary_bot/internal/session"
	"binary_bot/internal/signal"
)

type Config struct {
	Instrument       string        `yaml:"instrument"`
	TradeDuration    time.Duration `yaml:"trade_duration"`
	PriceInterval    time.Duration `yaml:"price_interval"`
	DecisionInterval time.Duration `yaml:"decision_interval"`
	SettleInterval   time.Duration `yaml:"settle_interval"`
	WindowSize       int           `yaml:"window_size"`
	// RecentTrades is how many closed trades feed the history rules.
	RecentTrades int  `yaml:"recent_trades"`
	AutoStart    bool `yaml:"auto_start"`
	// OrderTimeout bounds an admitted order. It outlives Stop so the
	// broker's contract is always recorded.
	OrderTimeout time.Duration `yaml:"order_timeout"`
}

func (c Config) withDefaults() Config {
	if c.Instrument == "" {
		c.Instrument = "R_50"
	}
	if c.TradeDuration <= 0 {
		c.TradeDuration = 5 * time.Minute
	}
	if c.PriceInterval <= 0 {
		c.PriceInterval = 2 * time.Second
	}
	if c.DecisionInterval <= 0 {
		c.DecisionInterval = 10 * time.Second
	}
	if c.SettleInterval <= 0 {
		c.SettleInterval = time.Second
	}
	if c.WindowSize <= 0 {
		c.WindowSize = feed.DefaultCapacity
	}
	if c.RecentTrades <= 0 {
		c.RecentTrades = signal.DefaultRecentTrades
	}
	if c.OrderTimeout <= 0 {
		c.OrderTimeout = 30 * time.Second
	}
	return c
}

// Notifier delivers operator messages (Telegram or stdout).
type Notifier interface {
	Notify(ctx context.Context, format string, args ...any)
}

// Health receives liveness signals for the /healthz endpoint.
type Health interface {
	SetReady(v bool)
	SetWSConnected(v bool)
	TouchTick(t time.Time)
}

// Store persists JSON blobs by logical key.
type Store interface {
	Load(ctx context.Context, key string, v any) error
	Save(ctx context.Context, key string, v any) error
}

// Status is the read-only view the presentation layer renders.
type Status struct {
	Running      bool                     `json:"running"`
	Connected    bool                     `json:"connected"`
	StopReason   string                   `json:"stop_reason,omitempty"`
	Instrument   string                   `json:"instrument"`
	LastPrice    float64                  `json:"last_price"`
	Account      models.AccountState      `json:"account"`
	WinRate      float64                  `json:"win_rate"`
	Settings     models.Settings          `json:"settings"`
	Indicators   models.IndicatorSnapshot `json:"indicators"`
	Prediction   *models.Prediction       `json:"prediction,omitempty"`
	OpenTrades   []models.Trade           `json:"open_trades"`
	RecentTrades []models.Trade           `json:"recent_trades"`
	Session      *models.Session          `json:"session,omitempty"`
	Sessions     []models.Session         `json:"sessions"`
}

// Deps are the collaborators of a Bot.
type Deps struct {
	Broker   broker.Broker
	Ledger   *ledger.Ledger
	Sessions *session.Tracker
	Engine   indicator.Engine
	Signals  *signal.Generator
	Store    Store
	Metrics  *metrics.Recorder
	Notifier Notifier
	Health   Health
	Log      *zap.Logger
}

// Bot drives one account: price, decision and settlement loops over a single ledger.
type Bot struct {
	cfg      Config
	log      *zap.Logger
	broker   broker.Broker
	ledger   *ledger.Ledger
	sessions *session.Tracker
	engine   indicator.Engine
	signals  *signal.Generator
	exec     *executor.Executor
	store    Store
	metrics  *metrics.Recorder
	notifier Notifier
	health   Health
	window   *feed.Window
	now      func() time.Time

	mu         sync.RWMutex
	settings   models.Settings
	snapshot   models.IndicatorSnapshot
	prediction *models.Prediction
	connected  bool
	stopReason string

	// lifecycle
	runMu       sync.Mutex
	procCtx     context.Context
	procCancel  context.CancelFunc
	tradeCancel context.CancelFunc
	feed        *feed.Feed
	wg          sync.WaitGroup
	tradeWG     sync.WaitGroup
	persistMu   sync.Mutex
}

func New(cfg Config, settings models.Settings, d Deps) *Bot {
	cfg = cfg.withDefaults()
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Engine == nil {
		d.Engine = indicator.NewStandard(indicator.DefaultConfig())
	}
	if d.Signals == nil {
		d.Signals = signal.NewGenerator(nil)
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Health == nil {
		d.Health = nopHealth{}
	}
	b := &Bot{
		cfg:      cfg,
		log:      d.Log.Named("bot"),
		broker:   d.Broker,
		ledger:   d.Ledger,
		sessions: d.Sessions,
		engine:   d.Engine,
		signals:  d.Signals,
		store:    d.Store,
		metrics:  d.Metrics,
		notifier: d.Notifier,
		health:   d.Health,
		window:   feed.NewWindow(cfg.WindowSize),
		now:      time.Now,
		settings: settings,
		snapshot: models.NeutralSnapshot(),
	}
	b.exec = executor.New(d.Broker, d.Ledger, d.Log.Named("executor"), 0)
	return b
}

// WithClock replaces the clock used for trade timestamps and settlement.
func (b *Bot) WithClock(now func() time.Time) *Bot {
	b.now = now
	b.exec.WithClock(now)
	return b
}

func (b *Bot) Settings() models.Settings {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.settings
}

func (b *Bot) IsDemo() bool { return b.Settings().IsDemoMode }

func (b *Bot) Running() bool {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	return b.tradeCancel != nil
}

func (b *Bot) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

func (b *Bot) Status() Status {
	acc := b.ledger.Snapshot()

	b.mu.RLock()
	st := Status{
		Connected:  b.connected,
		StopReason: b.stopReason,
		Instrument: b.cfg.Instrument,
		Settings:   b.settings,
		Indicators: b.snapshot,
	}
	if b.prediction != nil {
		p := *b.prediction
		st.Prediction = &p
	}
	b.mu.RUnlock()

	st.Running = b.Running()
	st.Account = acc
	st.WinRate = acc.WinRate()
	st.OpenTrades = b.ledger.OpenTrades()
	st.RecentTrades = b.ledger.Recent(20)
	if last, ok := b.window.Last(); ok {
		st.LastPrice = last.Value
	}
	if b.sessions != nil {
		if cur, ok := b.sessions.Current(); ok {
			st.Session = &cur
		}
		st.Sessions = b.sessions.History()
	}
	return st
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, ...any) {}

type nopHealth struct{}

func (nopHealth) SetReady(bool)         {}
func (nopHealth) SetWSConnected(bool)   {}
func (nopHealth) TouchTick(_ time.Time) {}
