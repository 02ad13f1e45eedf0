package smbo

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/hypersmac/internal/space"
)

func toConfigs(raw []map[string]any) []space.Configuration {
	out := make([]space.Configuration, len(raw))
	for i, r := range raw {
		out[i] = space.Configuration(r)
	}
	return out
}

func TestSampledDesignCounts(t *testing.T) {
	scenario := testScenario(t, map[string]any{"n_trials": 100})
	rng := rand.New(rand.NewSource(0))

	d, err := NewSampledDesign(DesignRandom, scenario, DesignOptions{})
	require.NoError(t, err)
	assert.Equal(t, 20, d.NConfigs)

	d, err = NewSampledDesign(DesignLatinHypercube, scenario, DesignOptions{MaxRatio: 0.1})
	require.NoError(t, err)
	assert.Equal(t, 10, d.NConfigs)
	assert.Len(t, d.Select(rng), 10)

	d, err = NewSampledDesign(DesignDefault, scenario, DesignOptions{})
	require.NoError(t, err)
	got := d.Select(rng)
	require.Len(t, got, 1)
	assert.Equal(t, scenario.ConfigSpace.Default(), got[0])

	_, err = NewSampledDesign("sobol", scenario, DesignOptions{})
	assert.Error(t, err)
}

func TestSampledDesignAdditionalFirst(t *testing.T) {
	scenario := testScenario(t, nil)
	zero := 0
	extra := []map[string]any{{"x0": 1.0, "x1": 2.0}, {"x0": 3.0, "x1": 4.0}, {"x0": 1.0, "x1": 2.0}}

	d, err := NewSampledDesign(DesignRandom, scenario, DesignOptions{
		NConfigs:          &zero,
		AdditionalConfigs: toConfigs(extra),
	})
	require.NoError(t, err)

	got := d.Select(rand.New(rand.NewSource(0)))
	require.Len(t, got, 2)
	assert.Equal(t, 1.0, got[0]["x0"])
	assert.Equal(t, 3.0, got[1]["x0"])
}

func TestSampledDesignRejectsInvalidAdditional(t *testing.T) {
	scenario := testScenario(t, nil)
	_, err := NewSampledDesign(DesignRandom, scenario, DesignOptions{
		AdditionalConfigs: toConfigs([]map[string]any{{"x0": 100.0, "x1": 2.0}}),
	})
	assert.Error(t, err)
}

func TestLatinHypercubeStratifies(t *testing.T) {
	cs := testSpace(t)
	got := latinHypercube(cs, 5, rand.New(rand.NewSource(3)))
	require.Len(t, got, 5)

	strata := map[int]bool{}
	for _, c := range got {
		v := cs.ToVector(c)
		strata[int(v[0]*5)] = true
	}
	assert.Len(t, strata, 5)
}

func TestRandomDesigns(t *testing.T) {
	rng := rand.New(rand.NewSource(0))
	assert.True(t, (&ProbabilityRandomDesign{Probability: 1}).Check(1, rng))
	assert.False(t, (&ProbabilityRandomDesign{Probability: 0}).Check(1, rng))

	mod := &ModulusRandomDesign{Modulus: 3}
	assert.False(t, mod.Check(1, rng))
	assert.True(t, mod.Check(3, rng))
	assert.False(t, (&ModulusRandomDesign{}).Check(3, rng))
}
