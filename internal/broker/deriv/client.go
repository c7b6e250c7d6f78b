package deriv

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"binary_bot/internal/broker"
	"binary_bot/internal/models"
)

const DefaultURL = "wss://ws.derivws.com/websockets/v3"

type Config struct {
	URL            string        `yaml:"url"`
	AppID          string        `yaml:"app_id"`
	Token          string        `yaml:"token"`
	Currency       string        `yaml:"currency"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	PingInterval   time.Duration `yaml:"ping_interval"`
}

func (c Config) withDefaults() Config {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.Currency == "" {
		c.Currency = "USD"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 15 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	return c
}

func (c Config) endpoint() string {
	if c.AppID == "" {
		return c.URL
	}
	return c.URL + "?app_id=" + c.AppID
}

// Client speaks the Deriv websocket API over one connection. Requests are
// correlated with responses by req_id; tick and balance updates fan out to subscribers.
type Client struct {
	cfg    Config
	log    *zap.Logger
	dialer *websocket.Dialer

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu        sync.Mutex
	nextID    int64
	pending   map[int64]chan envelope
	ticks     map[string][]chan models.PriceSample
	balances  []chan float64
	lastQuote map[string]float64
	done      chan struct{}
	closeErr  error
	closeOnce sync.Once
}

var (
	_ broker.Broker    = (*Client)(nil)
	_ broker.Historian = (*Client)(nil)
)

func NewClient(cfg Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		cfg:       cfg.withDefaults(),
		log:       log.Named("deriv"),
		dialer:    &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		pending:   make(map[int64]chan envelope),
		ticks:     make(map[string][]chan models.PriceSample),
		lastQuote: make(map[string]float64),
		done:      make(chan struct{}),
	}
}

// Connect dials the API and authorizes the token. The connection outlives ctx.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.endpoint(), nil)
	if err != nil {
		return errors.Wrapf(models.ErrConnection, "dial %s: %v", c.cfg.URL, err)
	}

	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return errors.New("deriv: already connected")
	}
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)
	go c.pingLoop()

	env, err := c.call(ctx, msgAuthorize, map[string]any{"authorize": c.cfg.Token})
	if err != nil {
		_ = c.Close()
		return errors.Wrapf(models.ErrConnection, "authorize: %v", err)
	}
	if env.Auth == nil {
		_ = c.Close()
		return errors.Wrap(models.ErrConnection, "authorize: empty response")
	}
	c.log.Info("authorized",
		zap.String("login_id", env.Auth.LoginID),
		zap.Float64("balance", env.Auth.Balance),
		zap.Bool("virtual", env.Auth.IsVirtual == 1),
	)
	return nil
}

func (c *Client) SubscribeBalance(ctx context.Context) (<-chan float64, error) {
	ch := make(chan float64, 16)
	c.mu.Lock()
	c.balances = append(c.balances, ch)
	c.mu.Unlock()

	if _, err := c.call(ctx, msgBalance, map[string]any{"balance": 1, "subscribe": 1}); err != nil {
		c.mu.Lock()
		c.balances = removeChan(c.balances, ch)
		c.mu.Unlock()
		return nil, errors.Wrapf(models.ErrConnection, "subscribe balance: %v", err)
	}
	return ch, nil
}

func (c *Client) SubscribePrice(ctx context.Context, instrument string) (<-chan models.PriceSample, error) {
	ch := make(chan models.PriceSample, 64)
	c.mu.Lock()
	c.ticks[instrument] = append(c.ticks[instrument], ch)
	c.mu.Unlock()

	if _, err := c.call(ctx, msgTick, map[string]any{"ticks": instrument, "subscribe": 1}); err != nil {
		c.mu.Lock()
		c.ticks[instrument] = removeChan(c.ticks[instrument], ch)
		c.mu.Unlock()
		return nil, errors.Wrapf(models.ErrConnection, "subscribe ticks %s: %v", instrument, err)
	}
	return ch, nil
}

// PlaceOrder buys a CALL/PUT contract with the stake as basis.
func (c *Client) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.Fill, error) {
	secs := int64(req.Duration / time.Second)
	if req.Stake <= 0 || secs <= 0 || !req.Direction.Valid() {
		return broker.Fill{}, errors.Wrapf(models.ErrOrderRejected, "invalid order %+v", req)
	}
	env, err := c.call(ctx, msgBuy, map[string]any{
		"buy":   1,
		"price": req.Stake,
		"parameters": map[string]any{
			"amount":        req.Stake,
			"basis":         "stake",
			"contract_type": contractType(req.Direction),
			"currency":      c.cfg.Currency,
			"duration":      secs,
			"duration_unit": "s",
			"symbol":        req.Instrument,
		},
	})
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) {
			return broker.Fill{}, errors.Wrapf(models.ErrOrderRejected, "%s", apiErr.Error())
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return broker.Fill{}, errors.Wrap(err, "buy")
		}
		return broker.Fill{}, errors.Wrapf(models.ErrConnection, "buy: %v", err)
	}
	if env.Buy == nil {
		return broker.Fill{}, errors.Wrapf(models.ErrOrderRejected, "empty buy response")
	}

	return broker.Fill{
		ID:         strconv.FormatInt(env.Buy.ContractID, 10),
		EntryPrice: c.entryPrice(ctx, env.Buy.ContractID, req.Instrument),
		PayoutRate: env.Buy.payoutRate(),
	}, nil
}

// entryPrice prefers the contract's entry spot and falls back to the last
// streamed quote. The contract is already bought, so lookup errors are only logged.
func (c *Client) entryPrice(ctx context.Context, id int64, instrument string) float64 {
	env, err := c.call(ctx, msgContract, map[string]any{"proposal_open_contract": 1, "contract_id": id})
	if err != nil {
		c.log.Debug("entry spot lookup failed", zap.Int64("contract_id", id), zap.Error(err))
	} else if env.Contract != nil && env.Contract.EntrySpot > 0 {
		return env.Contract.EntrySpot
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastQuote[instrument]
}

// Resolve asks for the contract status; unsold contracts are reported as an error
// so the ledger keeps the trade open.
func (c *Client) Resolve(ctx context.Context, t models.Trade) (models.Outcome, error) {
	id, err := parseContractID(t.ID)
	if err != nil {
		return models.Outcome{}, err
	}
	env, err := c.call(ctx, msgContract, map[string]any{"proposal_open_contract": 1, "contract_id": id})
	if err != nil {
		return models.Outcome{}, errors.Wrapf(err, "contract %d", id)
	}
	if env.Contract == nil {
		return models.Outcome{}, fmt.Errorf("contract %d: empty response", id)
	}
	out, sold := env.Contract.outcome()
	if !sold {
		return models.Outcome{}, fmt.Errorf("contract %d: not settled yet", id)
	}
	return out, nil
}

// History returns up to count recent ticks of instrument, oldest first.
func (c *Client) History(ctx context.Context, instrument string, count int) ([]models.PriceSample, error) {
	env, err := c.call(ctx, msgHistory, map[string]any{
		"ticks_history": instrument,
		"count":         count,
		"end":           "latest",
		"style":         "ticks",
	})
	if err != nil {
		return nil, errors.Wrapf(err, "history %s", instrument)
	}
	if env.History == nil {
		return nil, fmt.Errorf("history %s: empty response", instrument)
	}
	return env.History.samples(), nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	err := conn.Close()
	c.fail(errors.New("client closed"))
	return err
}

// call sends req and waits for the reply carrying its req_id, which must be of type want.
func (c *Client) call(ctx context.Context, want string, req map[string]any) (envelope, error) {
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return envelope{}, errors.New("not connected")
	}
	c.nextID++
	id := c.nextID
	ch := make(chan envelope, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	req["req_id"] = id
	if err := c.write(req); err != nil {
		return envelope{}, err
	}

	timer := time.NewTimer(c.cfg.RequestTimeout)
	defer timer.Stop()

	select {
	case env := <-ch:
		if env.Error != nil {
			return env, env.Error
		}
		if env.MsgType != want {
			return env, fmt.Errorf("req %d: got %q reply, want %q", id, env.MsgType, want)
		}
		return env, nil
	case <-c.done:
		return envelope{}, c.err()
	case <-timer.C:
		return envelope{}, fmt.Errorf("req %d: timeout after %s", id, c.cfg.RequestTimeout)
	case <-ctx.Done():
		return envelope{}, ctx.Err()
	}
}

func (c *Client) write(v any) error {
	b, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.log.Warn("read failed", zap.Error(err))
			c.fail(err)
			return
		}
		var env envelope
		if err := sonic.Unmarshal(msg, &env); err != nil {
			c.log.Debug("bad frame", zap.Error(err))
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ch, ok := c.pending[env.ReqID]; ok && env.ReqID != 0 {
		delete(c.pending, env.ReqID)
		ch <- env
	}
	if env.Error != nil {
		return
	}

	switch env.MsgType {
	case msgTick:
		if env.Tick == nil {
			return
		}
		c.lastQuote[env.Tick.Symbol] = env.Tick.Quote
		s := models.PriceSample{Value: env.Tick.Quote, Timestamp: time.Unix(env.Tick.Epoch, 0).UTC()}
		for _, ch := range c.ticks[env.Tick.Symbol] {
			select {
			case ch <- s:
			default:
			}
		}
	case msgBalance:
		if env.Balance == nil {
			return
		}
		for _, ch := range c.balances {
			select {
			case ch <- env.Balance.Balance:
			default:
			}
		}
	}
}

// pingLoop keeps the connection alive; Deriv drops idle sockets after two minutes.
func (c *Client) pingLoop() {
	t := time.NewTicker(c.cfg.PingInterval)
	defer t.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-t.C:
			if err := c.write(map[string]any{"ping": 1}); err != nil {
				c.log.Warn("ping failed", zap.Error(err))
			}
		}
	}
}

// fail closes every subscriber stream once; pending calls observe done.
func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeOnce.Do(func() {
		c.closeErr = err
		close(c.done)
		for sym, subs := range c.ticks {
			for _, ch := range subs {
				close(ch)
			}
			delete(c.ticks, sym)
		}
		for _, ch := range c.balances {
			close(ch)
		}
		c.balances = nil
	})
}

func (c *Client) err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeErr == nil {
		return errors.New("connection closed")
	}
	return c.closeErr
}

func removeChan[T any](chans []chan T, ch chan T) []chan T {
	out := chans[:0]
	for _, c := range chans {
		if c != ch {
			out = append(out, c)
		}
	}
	return out
}
