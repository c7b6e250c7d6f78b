package feed

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"binary_bot/internal/models"
)

// Source produces the next price sample of the traded instrument.
type Source interface {
	Next(ctx context.Context) (models.PriceSample, error)
}

// Synthetic is a seeded random walk, used in demo mode without a live stream.
type Synthetic struct {
	mu    sync.Mutex
	rnd   *rand.Rand
	price float64
	step  float64
	now   func() time.Time
}

func NewSynthetic(start, step float64, seed int64) *Synthetic {
	if start <= 0 {
		start = 1000
	}
	if step <= 0 {
		step = start * 0.001
	}
	return &Synthetic{
		rnd:   rand.New(rand.NewSource(seed)),
		price: start,
		step:  step,
		now:   time.Now,
	}
}

// WithClock replaces the timestamp source of generated samples.
func (s *Synthetic) WithClock(now func() time.Time) *Synthetic {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Synthetic) Next(ctx context.Context) (models.PriceSample, error) {
	if err := ctx.Err(); err != nil {
		return models.PriceSample{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.price += (s.rnd.Float64()*2 - 1) * s.step
	if s.price <= s.step {
		s.price = s.step
	}
	return models.PriceSample{Value: s.price, Timestamp: s.now()}, nil
}

// Stream adapts a broker tick channel: Next returns the newest tick received
// since the previous call and ErrNoTick when nothing new arrived.
type Stream struct {
	mu     sync.Mutex
	last   models.PriceSample
	fresh  bool
	closed bool
}

func NewStream(ctx context.Context, ticks <-chan models.PriceSample) *Stream {
	s := &Stream{}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case t, ok := <-ticks:
				s.mu.Lock()
				if !ok {
					s.closed = true
					s.mu.Unlock()
					return
				}
				s.last, s.fresh = t, true
				s.mu.Unlock()
			}
		}
	}()
	return s
}

func (s *Stream) Next(ctx context.Context) (models.PriceSample, error) {
	if err := ctx.Err(); err != nil {
		return models.PriceSample{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return models.PriceSample{}, fmt.Errorf("price stream closed: %w", models.ErrConnection)
	}
	if !s.fresh {
		return models.PriceSample{}, ErrNoTick
	}
	s.fresh = false
	return s.last, nil
}
