package feed

import (
	"sync"

	"binary_bot/internal/models"
)

const DefaultCapacity = 100

// Window is a bounded FIFO of price samples, oldest evicted on overflow.
type Window struct {
	mu      sync.RWMutex
	cap     int
	samples []models.PriceSample
}

func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{
		cap:     capacity,
		samples: make([]models.PriceSample, 0, capacity),
	}
}

func (w *Window) Push(s models.PriceSample) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.samples) == w.cap {
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:w.cap-1]
	}
	w.samples = append(w.samples, s)
}

// Values returns the prices, most recent last.
func (w *Window) Values() []float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]float64, len(w.samples))
	for i, s := range w.samples {
		out[i] = s.Value
	}
	return out
}

func (w *Window) Last() (models.PriceSample, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.samples) == 0 {
		return models.PriceSample{}, false
	}
	return w.samples[len(w.samples)-1], true
}

func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.samples)
}

func (w *Window) Cap() int { return w.cap }
