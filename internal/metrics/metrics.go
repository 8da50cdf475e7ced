package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"futures-testnet-bot/internal/model"
)

const namespace = "futures_bot"

// Tracker exposes order and health metrics. A nil *Tracker is a no-op.
type Tracker struct {
	registry *prometheus.Registry

	orders        *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	orderDuration prometheus.Histogram
	attempts      prometheus.Histogram
	clockDrift    prometheus.Gauge
	reachable     prometheus.Gauge
	permission    prometheus.Gauge
}

func NewTracker() *Tracker {
	t := &Tracker{
		registry: prometheus.NewRegistry(),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Order submissions by type and outcome.",
		}, []string{"type", "outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_rejections_total",
			Help:      "Rejected submissions by error kind.",
		}, []string{"kind"}),
		orderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_duration_seconds",
			Help:      "Wall time of a submission including retries.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 10},
		}),
		attempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_attempts",
			Help:      "Exchange attempts per submission.",
			Buckets:   []float64{0, 1, 2, 3, 5},
		}),
		clockDrift: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clock_drift_milliseconds",
			Help:      "Absolute local/exchange clock difference at the last health check.",
		}),
		reachable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exchange_reachable",
			Help:      "1 when the last health check reached the exchange.",
		}),
		permission: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "futures_permission",
			Help:      "1 when the last health check confirmed futures permission.",
		}),
	}

	t.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		t.orders,
		t.rejections,
		t.orderDuration,
		t.attempts,
		t.clockDrift,
		t.reachable,
		t.permission,
	)
	return t
}

// Record counts one submission.
func (t *Tracker) Record(_ context.Context, entry model.AuditEntry) error {
	if t == nil {
		return nil
	}

	outcome := "accepted"
	if !entry.Result.Accepted {
		outcome = "rejected"
		kind := model.KindInternal
		if entry.Result.Rejection != nil {
			kind = entry.Result.Rejection.Kind
		}
		t.rejections.WithLabelValues(string(kind)).Inc()
	}

	t.orders.WithLabelValues(string(entry.Request.Type), outcome).Inc()
	t.orderDuration.Observe(entry.Duration.Seconds())
	t.attempts.Observe(float64(entry.Attempts))
	return nil
}

func (t *Tracker) ObserveHealth(status model.HealthStatus) {
	if t == nil {
		return
	}
	t.reachable.Set(boolToFloat(status.Reachable))
	t.permission.Set(boolToFloat(status.HasFuturesPermission))
	if status.Reachable {
		t.clockDrift.Set(float64(status.ClockDriftMs))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (t *Tracker) Handler() http.Handler {
	if t == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{Registry: t.registry})
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
