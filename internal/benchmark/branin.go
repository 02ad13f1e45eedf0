package benchmark

import (
	"fmt"
	"math"

	"github.com/cwbudde/hypersmac/internal/space"
)

// Branin evaluates the Branin function at (x0, x1) together with a
// synthetic resource cost. The cost has a cheap valley near the minimum at
// (pi, 2.275), a moderate peak near (9.42, 2.475) and an expensive peak near
// (-pi, 12.275), and stays roughly within [0.1, 1.1].
func Branin(x0, x1 float64) (performance, cost float64) {
	const (
		a = 1.0
		r = 6.0
		s = 10.0
	)
	b := 5.1 / (4.0 * math.Pi * math.Pi)
	c := 5.0 / math.Pi
	t := 1.0 / (8.0 * math.Pi)

	y := x1 - b*x0*x0 + c*x0 - r
	performance = a*y*y + s*(1-t)*math.Cos(x0) + s

	valley := -1.0 * bump(x0-math.Pi, x1-2.275)
	moderate := 0.7 * bump(x0-9.42, x1-2.475)
	expensive := 1.0 * bump(x0+math.Pi, x1-12.275)
	cost = 0.5*(valley+moderate+expensive) + 0.6
	return performance, cost
}

func bump(dx, dy float64) float64 {
	return math.Exp(-0.5 * (dx*dx + dy*dy))
}

// BraninMinimum is the global minimum value of the Branin function.
const BraninMinimum = 0.397887

// BraninSpace returns the usual Branin domain x0 in [-5, 10], x1 in [0, 15].
func BraninSpace() *space.Space {
	cs, err := space.New(
		space.Hyperparameter{Name: "x0", Type: space.KindFloat, Lower: -5, Upper: 10, Default: 0.0},
		space.Hyperparameter{Name: "x1", Type: space.KindFloat, Lower: 0, Upper: 15, Default: 7.5},
	)
	if err != nil {
		panic(err)
	}
	return cs
}

// BraninObjective evaluates a configuration holding x0 and x1.
func BraninObjective(cfg space.Configuration, _ *float64, _ int) (float64, *float64, error) {
	x0, ok0 := cfg["x0"].(float64)
	x1, ok1 := cfg["x1"].(float64)
	if !ok0 || !ok1 {
		return 0, nil, fmt.Errorf("branin needs float x0 and x1, got %v", cfg)
	}
	perf, cost := Branin(x0, x1)
	return perf, &cost, nil
}
