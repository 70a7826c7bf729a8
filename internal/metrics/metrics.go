// Package metrics exposes selector graph and engine activity as Prometheus
// metrics.
//
// A Collector owns its registry so that several engines, or several tests,
// never collide on the default one.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/selgraph/internal/engine"
	"github.com/roach88/selgraph/internal/selector"
)

const namespace = "selgraph"

// Collector holds the metric vectors.
type Collector struct {
	registry *prometheus.Registry

	ticks          prometheus.Counter
	currentTick    prometheus.Gauge
	recomputations *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	reclaimed      prometheus.Counter
	observerPanics *prometheus.CounterVec
	actions        *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	engineErrors   *prometheus.CounterVec
	liveNodes      prometheus.GaugeFunc
}

// New creates a Collector registered on a fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Number of distinct snapshots observed by the graph",
		}),
		currentTick: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_tick",
			Help:      "Current logical time of the graph",
		}),
		recomputations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recomputations_total",
			Help:      "Producer runs by node and whether the value changed",
		}, []string{"node", "outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Values delivered to observers by node",
		}, []string{"node"}),
		reclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reclaimed_nodes_total",
			Help:      "Released nodes whose registry slot was freed",
		}),
		observerPanics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observer_panics_total",
			Help:      "Observer callbacks that panicked, by node",
		}, []string{"node"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Actions processed by the engine, by kind and outcome",
		}, []string{"kind", "outcome"}),
		actionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Time to apply an action and propagate it through the graph",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"kind"}),
		engineErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_errors_total",
			Help:      "Failed actions by error code",
		}, []string{"code"}),
	}

	c.registry.MustRegister(
		c.ticks,
		c.currentTick,
		c.recomputations,
		c.notifications,
		c.reclaimed,
		c.observerPanics,
		c.actions,
		c.actionDuration,
		c.engineErrors,
	)
	return c
}

// Registry returns the registry the metrics are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// TrackLiveNodes exports fn as the live node gauge. fn runs on the
// scraping goroutine and must be safe to call from there.
func (c *Collector) TrackLiveNodes(fn func() int) error {
	if c.liveNodes != nil {
		return errors.New("metrics: live node gauge already registered")
	}
	c.liveNodes = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_nodes",
		Help:      "Nodes currently held in the registry",
	}, func() float64 {
		return float64(fn())
	})
	return c.registry.Register(c.liveNodes)
}

// Hooks returns graph hooks that feed the collector.
func (c *Collector) Hooks() selector.Hooks {
	return selector.Hooks{
		OnTick: func(now selector.Tick) {
			c.ticks.Inc()
			c.currentTick.Set(float64(now))
		},
		OnRecompute: func(node string, changed bool) {
			outcome := "unchanged"
			if changed {
				outcome = "changed"
			}
			c.recomputations.WithLabelValues(node, outcome).Inc()
		},
		OnNotify: func(node string, delivered int) {
			c.notifications.WithLabelValues(node).Add(float64(delivered))
		},
		OnReclaim: func(string) {
			c.reclaimed.Inc()
		},
		OnObserverPanic: func(node string, _ any) {
			c.observerPanics.WithLabelValues(node).Inc()
		},
	}
}

// EngineOptions returns engine options that wire the graph hooks and the
// action hook to the collector.
func (c *Collector) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithGraphOptions(selector.WithHooks(c.Hooks())),
		engine.WithActionHook(c.ObserveAction),
	}
}

// ObserveAction records one processed action.
func (c *Collector) ObserveAction(kind string, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		c.engineErrors.WithLabelValues(ErrorCode(err)).Inc()
	}
	c.actions.WithLabelValues(kind, outcome).Inc()
	c.actionDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ErrorCode maps an engine error to a low-cardinality label.
func ErrorCode(err error) string {
	var re *engine.RuntimeError
	switch {
	case errors.As(err, &re):
		return string(re.Code)
	case engine.IsStepsExceededError(err):
		return "STEPS_EXCEEDED"
	default:
		return "ACTION_REJECTED"
	}
}
