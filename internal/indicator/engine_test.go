package indicator

import (
	"math"
	"testing"

	"binary_bot/internal/models"
)

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestComputeShortWindowIsNeutral(t *testing.T) {
	e := NewStandard(DefaultConfig())
	for n := 0; n < e.MinPeriod(); n++ {
		got := e.Compute(ramp(n, 100, 1))
		want := models.NeutralSnapshot()
		if got.RSI != want.RSI || got.MACD != 0 || got.MACDSignal != 0 || got.MACDHistogram != 0 ||
			got.SMA != 0 || got.EMA != 0 || got.Bollinger != nil || got.Ready {
			t.Fatalf("n=%d: got %+v, want neutral", n, got)
		}
	}
}

func TestComputeConstantWindow(t *testing.T) {
	got := NewStandard(DefaultConfig()).Compute(constant(20, 100))
	if !got.Ready {
		t.Fatalf("expected ready snapshot")
	}
	if got.SMA != 100 || got.EMA != 100 {
		t.Fatalf("sma=%v ema=%v, want 100", got.SMA, got.EMA)
	}
	if got.RSI != 50 {
		t.Fatalf("rsi=%v, want 50 without movement", got.RSI)
	}
	if got.MACD != 0 || got.MACDHistogram != 0 {
		t.Fatalf("macd=%v hist=%v, want 0", got.MACD, got.MACDHistogram)
	}
	if got.Bollinger == nil || got.Bollinger.Upper != 100 || got.Bollinger.Lower != 100 {
		t.Fatalf("bollinger=%+v", got.Bollinger)
	}
}

func TestComputeRespondsToTrend(t *testing.T) {
	e := NewStandard(DefaultConfig())
	up := e.Compute(ramp(60, 100, 0.5))
	down := e.Compute(ramp(60, 130, -0.5))

	if up.RSI <= 70 || down.RSI >= 30 {
		t.Fatalf("rsi up=%v down=%v", up.RSI, down.RSI)
	}
	if up.MACD <= 0 || down.MACD >= 0 {
		t.Fatalf("macd up=%v down=%v", up.MACD, down.MACD)
	}
	if up.MACDHistogram <= 0 || down.MACDHistogram >= 0 {
		t.Fatalf("histogram up=%v down=%v", up.MACDHistogram, down.MACDHistogram)
	}
}

func TestComputeRSIBounded(t *testing.T) {
	e := NewStandard(DefaultConfig())
	zigzag := make([]float64, 50)
	for i := range zigzag {
		zigzag[i] = 100 + math.Pow(-1, float64(i))*float64(i)
	}
	for _, w := range [][]float64{ramp(40, 1, 1), ramp(40, 100, -2), zigzag} {
		got := e.Compute(w)
		if got.RSI < 0 || got.RSI > 100 {
			t.Fatalf("rsi=%v out of range", got.RSI)
		}
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	e := NewStandard(DefaultConfig())
	w := ramp(45, 10, 0.3)
	a, b := e.Compute(w), e.Compute(w)
	if a.RSI != b.RSI || a.MACD != b.MACD || a.EMA != b.EMA || a.SMA != b.SMA {
		t.Fatalf("snapshots differ: %+v vs %+v", a, b)
	}
}

func TestSMAUsesLastPeriod(t *testing.T) {
	w := append(constant(30, 10), constant(20, 20)...)
	got := NewStandard(DefaultConfig()).Compute(w)
	if got.SMA != 20 {
		t.Fatalf("sma=%v, want 20", got.SMA)
	}
}
