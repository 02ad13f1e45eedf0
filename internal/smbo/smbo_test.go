package smbo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cwbudde/hypersmac/internal/space"
)

func testSpace(t *testing.T) *space.Space {
	t.Helper()
	cs, err := space.New(
		space.Hyperparameter{Name: "x0", Type: space.KindFloat, Lower: -5, Upper: 10},
		space.Hyperparameter{Name: "x1", Type: space.KindFloat, Lower: 0, Upper: 15},
	)
	require.NoError(t, err)
	return cs
}

func testScenario(t *testing.T, kw map[string]any) *Scenario {
	t.Helper()
	s, err := NewScenario(testSpace(t), kw)
	require.NoError(t, err)
	return s
}

func quadratic(cfg space.Configuration, _ int, _ *float64) (float64, error) {
	x0 := cfg["x0"].(float64) - 2
	x1 := cfg["x1"].(float64) - 7
	return x0*x0 + x1*x1, nil
}

func TestNewScenarioDefaults(t *testing.T) {
	s := testScenario(t, nil)
	require.Equal(t, 100, s.NTrials)
	require.Equal(t, 1, s.NWorkers)
	require.NotEmpty(t, s.Name)
	require.Empty(t, s.RunDirectory())
}

func TestNewScenarioValidation(t *testing.T) {
	cs := testSpace(t)
	cases := []struct {
		name string
		kw   map[string]any
	}{
		{"zero trials", map[string]any{"n_trials": 0}},
		{"negative seed", map[string]any{"seed": -1}},
		{"unknown field", map[string]any{"n_trails": 10}},
		{"min budget only", map[string]any{"min_budget": 1.0}},
		{"inverted budgets", map[string]any{"min_budget": 9.0, "max_budget": 1.0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewScenario(cs, tc.kw)
			require.Error(t, err)
		})
	}

	_, err := NewScenario(nil, nil)
	var serr *ScenarioError
	require.ErrorAs(t, err, &serr)
}

func TestScenarioRunDirectory(t *testing.T) {
	s := testScenario(t, map[string]any{"name": "branin", "output_directory": "/tmp/out", "seed": 3})
	require.Equal(t, "/tmp/out/branin/3", s.RunDirectory())
	require.Equal(t, "branin", s.Info().Name)
}
