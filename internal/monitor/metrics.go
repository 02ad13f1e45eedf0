package monitor

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cwbudde/hypersmac/internal/smbo"
)

// MetricsCallback exports trial counts, costs and the incumbent cost to Prometheus.
type MetricsCallback struct {
	smbo.BaseCallback

	trials        *prometheus.CounterVec
	asks          prometheus.Counter
	cost          *prometheus.HistogramVec
	incumbentCost *prometheus.GaugeVec
	running       *prometheus.GaugeVec
}

// NewMetricsCallback registers the collectors with reg. Collectors already
// registered by another callback are reused, so several engines can share
// one registry.
func NewMetricsCallback(reg prometheus.Registerer) (*MetricsCallback, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	trials, err := register(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hypersmac_trials_total",
			Help: "Total number of finished trials",
		},
		[]string{"scenario", "status"},
	))
	if err != nil {
		return nil, err
	}
	asks, err := register(reg, prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hypersmac_asks_total",
			Help: "Total number of trials handed out",
		},
	))
	if err != nil {
		return nil, err
	}
	cost, err := register(reg, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hypersmac_trial_cost",
			Help:    "Cost reported for successful trials",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"scenario"},
	))
	if err != nil {
		return nil, err
	}
	incumbent, err := register(reg, prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hypersmac_incumbent_cost",
			Help: "Cost of the current incumbent",
		},
		[]string{"scenario"},
	))
	if err != nil {
		return nil, err
	}
	running, err := register(reg, prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hypersmac_trials_running",
			Help: "Trials handed out and not yet told",
		},
		[]string{"scenario"},
	))
	if err != nil {
		return nil, err
	}

	return &MetricsCallback{
		trials:        trials,
		asks:          asks,
		cost:          cost,
		incumbentCost: incumbent,
		running:       running,
	}, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return c, nil
}

func (m *MetricsCallback) OnAskEnd(e *smbo.Engine, _ smbo.TrialInfo) {
	m.asks.Inc()
	m.running.WithLabelValues(e.Scenario().Name).Set(float64(e.RunHistory().Running()))
}

func (m *MetricsCallback) OnTellEnd(e *smbo.Engine, _ smbo.TrialInfo, value smbo.TrialValue) bool {
	name := e.Scenario().Name
	m.trials.WithLabelValues(name, value.Status.String()).Inc()
	if value.Status == smbo.StatusSuccess {
		m.cost.WithLabelValues(name).Observe(value.Cost)
	}
	if _, cost, ok := e.Incumbent(); ok {
		m.incumbentCost.WithLabelValues(name).Set(cost)
	}
	m.running.WithLabelValues(name).Set(float64(e.RunHistory().Running()))
	return true
}
