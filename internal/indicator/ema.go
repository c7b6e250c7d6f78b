package indicator

// emaState is seeded with the first price.
type emaState struct {
	alpha  float64
	value  float64
	seeded bool
}

func newEMA(period int) emaState {
	if period <= 1 {
		period = 1
	}
	return emaState{alpha: 2.0 / (float64(period) + 1)}
}

func (e *emaState) Update(price float64) {
	if !e.seeded {
		e.value = price
		e.seeded = true
		return
	}
	e.value += e.alpha * (price - e.value)
}

func (e *emaState) Value() float64 { return e.value }

// emaOf runs an EMA over xs and returns its final value.
func emaOf(xs []float64, period int) float64 {
	e := newEMA(period)
	for _, x := range xs {
		e.Update(x)
	}
	return e.Value()
}
