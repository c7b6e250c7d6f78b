package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"binary_bot/internal/models"
)

const namespace = "binary_bot"

// Recorder holds the bot's prometheus collectors.
type Recorder struct {
	registry *prometheus.Registry

	tradesOpened  *prometheus.CounterVec
	tradesSettled *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	orderErrors   prometheus.Counter
	balance       prometheus.Gauge
	openTrades    prometheus.Gauge
	profit        prometheus.Gauge
	confidence    prometheus.Histogram
	ticks         prometheus.Counter
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		tradesOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trades",
			Name:      "opened_total",
			Help:      "Trades accepted by the broker",
		}, []string{"direction"}),
		tradesSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trades",
			Name:      "settled_total",
			Help:      "Trades settled by the ledger",
		}, []string{"result"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "rejections_total",
			Help:      "Predictions the risk gate did not admit",
		}, []string{"reason"}),
		orderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "order_errors_total",
			Help:      "Orders that failed at the broker",
		}),
		balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "account",
			Name:      "balance",
			Help:      "Current account balance",
		}),
		openTrades: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "account",
			Name:      "open_trades",
			Help:      "Trades waiting for expiry",
		}),
		profit: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "account",
			Name:      "total_profit",
			Help:      "Profit over all settled trades",
		}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "confidence",
			Help:      "Confidence of produced predictions",
			Buckets:   prometheus.LinearBuckets(0.5, 0.05, 10),
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "ticks_total",
			Help:      "Price samples pushed into the window",
		}),
	}
	r.registry.MustRegister(
		r.tradesOpened, r.tradesSettled, r.rejections, r.orderErrors,
		r.balance, r.openTrades, r.profit, r.confidence, r.ticks,
		collectors.NewGoCollector(),
	)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) Tick() { r.ticks.Inc() }

func (r *Recorder) Prediction(p models.Prediction) { r.confidence.Observe(p.Confidence) }

func (r *Recorder) Rejected(reason string) { r.rejections.WithLabelValues(reason).Inc() }

func (r *Recorder) OrderFailed() { r.orderErrors.Inc() }

func (r *Recorder) Opened(t models.Trade) { r.tradesOpened.WithLabelValues(string(t.Direction)).Inc() }

func (r *Recorder) Settled(t models.Trade) {
	if t.Result != nil {
		r.tradesSettled.WithLabelValues(string(*t.Result)).Inc()
	}
}

// Account mirrors the ledger snapshot into the gauges.
func (r *Recorder) Account(a models.AccountState, open int) {
	r.balance.Set(a.Balance)
	r.profit.Set(a.TotalProfit)
	r.openTrades.Set(float64(open))
}
