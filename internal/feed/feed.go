package feed

import (
	"context"
	"errors"

	"binary_bot/internal/models"
)

// ErrNoTick means the stream has not delivered its first tick yet.
var ErrNoTick = errors.New("no tick received yet")

// Feed pulls samples from a Source into a bounded Window.
type Feed struct {
	src    Source
	window *Window
}

func New(src Source, window *Window) *Feed {
	return &Feed{src: src, window: window}
}

// Tick appends the next sample to the window.
func (f *Feed) Tick(ctx context.Context) (models.PriceSample, error) {
	s, err := f.src.Next(ctx)
	if err != nil {
		return models.PriceSample{}, err
	}
	f.window.Push(s)
	return s, nil
}

func (f *Feed) Window() *Window { return f.window }
