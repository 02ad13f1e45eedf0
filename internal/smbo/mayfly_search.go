package smbo

import (
	"math/rand"

	"github.com/cwbudde/mayfly"

	"github.com/cwbudde/hypersmac/internal/space"
)

// MayflySearch maximizes the acquisition function with the Mayfly
// metaheuristic over the unit cube.
type MayflySearch struct {
	ConfigSpace   *space.Space
	Acquisition   AcquisitionFunction
	MaxIterations int
	PopSize       int
}

// NewMayflySearch returns a mayfly maximizer. The population is raised to
// 20, the library minimum.
func NewMayflySearch(cs *space.Space, acq AcquisitionFunction, maxIters, popSize int) *MayflySearch {
	if maxIters <= 0 {
		maxIters = 100
	}
	if popSize < 20 {
		popSize = 20
	}
	return &MayflySearch{ConfigSpace: cs, Acquisition: acq, MaxIterations: maxIters, PopSize: popSize}
}

func (m *MayflySearch) AcquisitionFunction() AcquisitionFunction { return m.Acquisition }

// Maximize runs one mayfly search and pads the result with random points
// when more than one configuration is requested. It falls back to random
// search if the library fails.
func (m *MayflySearch) Maximize(previous []space.Configuration, n int, rng *rand.Rand) ([]space.Configuration, error) {
	fallback := NewRandomSearch(m.ConfigSpace, m.Acquisition, 500)
	dim := m.ConfigSpace.Dim()
	if dim == 0 {
		return fallback.Maximize(previous, n, rng)
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = func(x []float64) float64 {
		return -m.Acquisition.Evaluate(clampVector(x))
	}
	config.ProblemSize = dim
	config.MaxIterations = m.MaxIterations
	config.NPop = m.PopSize
	config.LowerBound = 0
	config.UpperBound = 1
	config.Rand = rand.New(rand.NewSource(rng.Int63()))

	result, err := mayfly.Optimize(config)
	if err != nil {
		return fallback.Maximize(previous, n, rng)
	}

	best := clampVector(result.GlobalBest.Position)
	points := append([]scored{{vec: best, score: -result.GlobalBest.Cost}}, fallback.sample(rng)...)
	return decodeAll(m.ConfigSpace, rank(points, n)), nil
}

func clampVector(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = min(1, max(0, v))
	}
	return out
}
