package monitor

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/hypersmac/internal/registry"
	"github.com/cwbudde/hypersmac/internal/smbo"
	"github.com/cwbudde/hypersmac/internal/space"
)

func runEngine(t *testing.T, nTrials int, cbs ...smbo.Callback) *smbo.Engine {
	t.Helper()
	cs, err := space.New(space.Hyperparameter{Name: "x", Type: space.KindFloat, Lower: -1, Upper: 1})
	require.NoError(t, err)
	scenario, err := smbo.NewScenario(cs, map[string]any{"name": "mon", "n_trials": nTrials})
	require.NoError(t, err)

	e, err := smbo.RandomFacade{}.New(scenario,
		smbo.WithCallbacks(cbs...),
		smbo.WithTarget(func(c space.Configuration, _ int, _ *float64) (float64, error) {
			x := c["x"].(float64)
			return x * x, nil
		}),
	)
	require.NoError(t, err)
	_, err = e.Optimize(context.Background())
	require.NoError(t, err)
	return e
}

func TestMetricsCallback(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetricsCallback(reg)
	require.NoError(t, err)

	e := runEngine(t, 5, m)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.trials.WithLabelValues("mon", "success")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.asks))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.running.WithLabelValues("mon")))
	_, best, _ := e.Incumbent()
	assert.Equal(t, best, testutil.ToFloat64(m.incumbentCost.WithLabelValues("mon")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.cost))
}

func TestMetricsCallbackSharesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetricsCallback(reg)
	require.NoError(t, err)
	second, err := NewMetricsCallback(reg)
	require.NoError(t, err)
	assert.Same(t, first.trials, second.trials)
}

func TestLoggingCallback(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	runEngine(t, 3, NewLoggingCallback(logger))

	out := buf.String()
	assert.Contains(t, out, `"msg":"Starting optimization"`)
	assert.Contains(t, out, `"msg":"New incumbent"`)
	assert.Equal(t, 3, strings.Count(out, `"msg":"Trial finished"`))
	assert.Contains(t, out, `"msg":"Optimization complete"`)
}

func TestConvergenceTracker(t *testing.T) {
	c := NewConvergenceCallback(ConvergenceConfig{Patience: 3, Threshold: 0.01})

	assert.False(t, c.Update(100))
	assert.False(t, c.Update(50))
	assert.Equal(t, 0, c.StaleCount())

	assert.False(t, c.Update(49.9))
	assert.False(t, c.Update(49.9))
	assert.True(t, c.Update(49.9))
	assert.Len(t, c.History(), 5)
}

func TestConvergenceCallbackStopsEngine(t *testing.T) {
	c := NewConvergenceCallback(ConvergenceConfig{Patience: 2, Threshold: 10})
	e := runEngine(t, 50, c)
	assert.True(t, e.Stopped())
	assert.Less(t, e.RunHistory().Len(), 50)
}

func TestRegisterClasses(t *testing.T) {
	reg := registry.New()
	RegisterClasses(reg, prometheus.NewRegistry())

	for _, path := range []string{"monitor.MetricsCallback", "monitor.LoggingCallback", "monitor.ConvergenceCallback"} {
		c, err := reg.Lookup(path)
		require.NoError(t, err)
		v, err := c.Call(nil)
		require.NoError(t, err)
		_, ok := v.(smbo.Callback)
		assert.True(t, ok, path)
	}

	c, _ := reg.Lookup("monitor.ConvergenceCallback")
	_, err := c.Call(registry.Kwargs{"patience": 0})
	assert.Error(t, err)
	_, err = c.Call(registry.Kwargs{"bogus": 1})
	assert.Error(t, err)
}
