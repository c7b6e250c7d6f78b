package broker

import (
	"context"
	"time"

	"binary_bot/internal/models"
)

// OrderRequest describes one binary contract: a fixed stake on the direction
// of the instrument over Duration.
type OrderRequest struct {
	Instrument string
	Direction  models.Direction
	Stake      float64
	Duration   time.Duration
}

// Fill is the broker's acceptance of an order.
type Fill struct {
	ID         string
	EntryPrice float64
	// PayoutRate is the profit share paid on a win, 0.85 means stake*0.85 on top of the stake.
	PayoutRate float64
}

// Historian is implemented by brokers that can replay recent ticks, used to
// warm up the indicator window on connect.
type Historian interface {
	History(ctx context.Context, instrument string, count int) ([]models.PriceSample, error)
}

// Broker is the trading connection of the single account the bot drives.
// Connect failures and broken streams wrap models.ErrConnection; refused orders wrap
// models.ErrOrderRejected.
type Broker interface {
	Connect(ctx context.Context) error
	SubscribeBalance(ctx context.Context) (<-chan float64, error)
	SubscribePrice(ctx context.Context, instrument string) (<-chan models.PriceSample, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (Fill, error)
	Close() error
}
