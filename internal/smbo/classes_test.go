package smbo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/hypersmac/internal/registry"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	RegisterClasses(reg)
	return reg
}

func call(t *testing.T, reg *registry.Registry, path string, kw registry.Kwargs) any {
	t.Helper()
	c, err := reg.Lookup(path)
	require.NoError(t, err)
	v, err := c.Call(kw)
	require.NoError(t, err)
	return v
}

func TestRegisteredFacades(t *testing.T) {
	reg := testRegistry(t)
	for _, path := range []string{"smbo.HyperparameterOptimizationFacade", "smbo.MultiFidelityFacade", "smbo.RandomFacade"} {
		f, ok := call(t, reg, path, nil).(Facade)
		require.True(t, ok, path)
		assert.Equal(t, path, "smbo."+f.Name())
	}
}

func TestRegisteredPolicies(t *testing.T) {
	reg := testRegistry(t)
	scenario := testScenario(t, map[string]any{"min_budget": 1, "max_budget": 27})

	acq := call(t, reg, "smbo.LCB", registry.Kwargs{"beta": "2"}).(*LCB)
	assert.Equal(t, 2.0, acq.Beta)
	assert.IsType(t, &EI{}, call(t, reg, "smbo.EI", nil))
	assert.IsType(t, &PI{}, call(t, reg, "smbo.PI", registry.Kwargs{"xi": 0.01}))

	mkw := registry.Kwargs{"configspace": scenario.ConfigSpace, "acquisition_function": acq}
	assert.IsType(t, &RandomSearch{}, call(t, reg, "smbo.RandomSearch", mkw))
	assert.IsType(t, &LocalAndSortedRandomSearch{}, call(t, reg, "smbo.LocalAndSortedRandomSearch", mkw))
	mf := call(t, reg, "smbo.MayflySearch", registry.Kwargs{
		"configspace": scenario.ConfigSpace, "acquisition_function": acq, "pop_size": 5,
	}).(*MayflySearch)
	assert.Equal(t, 20, mf.PopSize)

	sel := call(t, reg, "smbo.ExplorationSelector", registry.Kwargs{"probability": 0.3}).(*ExplorationSelector)
	sw := call(t, reg, "smbo.SwitchingSearch", registry.Kwargs{
		"configspace": scenario.ConfigSpace, "acquisition_function": acq, "selector": sel,
	}).(*SwitchingSearch)
	assert.Same(t, sel, sw.Selector())

	cs := call(t, reg, "smbo.ConfigSelector", registry.Kwargs{"scenario": scenario, "retrain_after": 4}).(*ConfigSelector)
	assert.Equal(t, 4, cs.RetrainAfter)
	assert.Equal(t, 16, cs.Retries)

	d := call(t, reg, "smbo.LatinHypercubeInitialDesign", registry.Kwargs{
		"scenario":           scenario,
		"n_configs":          3,
		"warmstart_file":     "ignored.csv",
		"additional_configs": []any{map[string]any{"x0": 1.0, "x1": 1.0}},
	}).(*SampledDesign)
	assert.Equal(t, 3, d.NConfigs)
	assert.Len(t, d.Additional, 1)

	sh := call(t, reg, "smbo.SuccessiveHalving", registry.Kwargs{"scenario": scenario}).(*SuccessiveHalving)
	assert.Equal(t, []float64{1, 3, 9, 27}, sh.Budgets())
	assert.IsType(t, &SimpleIntensifier{}, call(t, reg, "smbo.Intensifier", registry.Kwargs{"scenario": scenario}))

	pd := call(t, reg, "smbo.ProbabilityRandomDesign", registry.Kwargs{"probability": 0.1}).(*ProbabilityRandomDesign)
	assert.Equal(t, 0.1, pd.Probability)
	md := call(t, reg, "smbo.ModulusRandomDesign", nil).(*ModulusRandomDesign)
	assert.Equal(t, 2, md.Modulus)
}

func TestRegisteredPoliciesRejectBadArguments(t *testing.T) {
	reg := testRegistry(t)
	cases := []struct {
		path string
		kw   registry.Kwargs
	}{
		{"smbo.ProbabilityRandomDesign", registry.Kwargs{"probability": 2}},
		{"smbo.ModulusRandomDesign", registry.Kwargs{"modulus": 0}},
		{"smbo.EI", registry.Kwargs{"unknown": 1}},
		{"smbo.RandomSearch", registry.Kwargs{}},
		{"smbo.Intensifier", registry.Kwargs{"scenario": "not a scenario"}},
		{"smbo.RandomInitialDesign", registry.Kwargs{"scenario": testScenario(t, nil), "additional_configs": 3}},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			c, err := reg.Lookup(tc.path)
			require.NoError(t, err)
			_, err = c.Call(tc.kw)
			assert.Error(t, err)
		})
	}
}
