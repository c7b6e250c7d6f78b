package indicator

// rsiState applies Wilder smoothing of average gain/loss.
type rsiState struct {
	period      int
	prev        float64
	avgGain     float64
	avgLoss     float64
	seen        int
	initialized bool
}

func newRSI(period int) *rsiState {
	if period <= 0 {
		period = 14
	}
	return &rsiState{period: period}
}

func (r *rsiState) Update(price float64) {
	if !r.initialized {
		r.prev = price
		r.initialized = true
		return
	}
	change := price - r.prev
	r.prev = price

	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	r.seen++
	if r.seen <= r.period {
		// simple mean until the first full period
		n := float64(r.seen)
		r.avgGain += (gain - r.avgGain) / n
		r.avgLoss += (loss - r.avgLoss) / n
		return
	}
	p := float64(r.period)
	r.avgGain = (r.avgGain*(p-1) + gain) / p
	r.avgLoss = (r.avgLoss*(p-1) + loss) / p
}

func (r *rsiState) Value() float64 {
	switch {
	case r.avgGain == 0 && r.avgLoss == 0:
		return 50
	case r.avgLoss == 0:
		return 100
	}
	rs := r.avgGain / r.avgLoss
	return 100 - 100/(1+rs)
}
