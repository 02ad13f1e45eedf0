package smbo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/hypersmac/internal/space"
)

func cfg(x0, x1 float64) space.Configuration {
	return space.Configuration{"x0": x0, "x1": x1}
}

func TestRunHistoryConfigIDs(t *testing.T) {
	rh := NewRunHistory()
	a := TrialInfo{Config: cfg(1, 1)}
	b := TrialInfo{Config: cfg(2, 2)}

	rh.MarkRunning(a)
	rh.MarkRunning(b)
	assert.True(t, rh.IsRunning(a))
	assert.Equal(t, 2, rh.Running())

	recB := rh.Add(b, TrialValue{Cost: 3})
	recA := rh.Add(a, TrialValue{Cost: 5})
	assert.Equal(t, 2, recB.ConfigID)
	assert.Equal(t, 1, recA.ConfigID)
	assert.Equal(t, 0, rh.Running())
	assert.True(t, rh.Contains(cfg(1, 1)))
	assert.False(t, rh.Contains(cfg(3, 3)))
}

func TestRunHistoryIncumbentPrefersHighestBudget(t *testing.T) {
	rh := NewRunHistory()
	low, high := 1.0, 9.0

	rh.Add(TrialInfo{Config: cfg(1, 1), Budget: &low}, TrialValue{Cost: 0.1})
	rh.Add(TrialInfo{Config: cfg(2, 2), Budget: &high}, TrialValue{Cost: 4})
	rh.Add(TrialInfo{Config: cfg(3, 3), Budget: &high}, TrialValue{Cost: 2})
	rh.Add(TrialInfo{Config: cfg(4, 4), Budget: &high}, TrialValue{Cost: 0.5, Status: StatusCrashed})

	inc, cost, ok := rh.Incumbent()
	require.True(t, ok)
	assert.Equal(t, cfg(3, 3), inc)
	assert.Equal(t, 2.0, cost)
}

func TestRunHistoryAveragesSeeds(t *testing.T) {
	rh := NewRunHistory()
	rh.Add(TrialInfo{Config: cfg(1, 1), Seed: 1}, TrialValue{Cost: 2})
	rh.Add(TrialInfo{Config: cfg(1, 1), Seed: 2}, TrialValue{Cost: 4})

	cost, ok := rh.Cost(cfg(1, 1))
	require.True(t, ok)
	assert.Equal(t, 3.0, cost)

	X, y := rh.TrainingData(testSpace(t))
	assert.Len(t, X, 1)
	assert.Equal(t, []float64{3}, y)
}

func TestRunHistorySnapshotRestore(t *testing.T) {
	scenario := testScenario(t, map[string]any{"name": "snap", "seed": 2})
	rh := NewRunHistory()
	rh.Add(TrialInfo{Config: cfg(1, 1), Seed: 2}, TrialValue{Cost: 7, Time: 0.3,
		AdditionalInfo: map[string]any{"resource_cost": 0.3}})
	rh.Add(TrialInfo{Config: cfg(2, 2), Seed: 2}, TrialValue{Cost: 1})

	snap := rh.Snapshot("2", scenario)
	require.NoError(t, snap.Validate())
	assert.Equal(t, 2, snap.IncumbentID)
	assert.Equal(t, 1.0, snap.IncumbentCost)
	assert.Equal(t, "success", snap.Trials[0].Status)

	restored := NewRunHistory()
	require.NoError(t, restored.Restore(snap))
	assert.Equal(t, 2, restored.Len())
	inc, _, _ := restored.Incumbent()
	assert.Equal(t, cfg(2, 2), inc)

	assert.Error(t, restored.Restore(snap))
}
