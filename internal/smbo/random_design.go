package smbo

import "math/rand"

// RandomDesign decides whether the next configuration is drawn at random
// instead of from the model.
type RandomDesign interface {
	Check(iteration int, rng *rand.Rand) bool
}

// ProbabilityRandomDesign interleaves random configurations with a fixed probability.
type ProbabilityRandomDesign struct {
	Probability float64
}

func (d *ProbabilityRandomDesign) Check(_ int, rng *rand.Rand) bool {
	return rng.Float64() < d.Probability
}

// ModulusRandomDesign picks a random configuration every Modulus iterations.
type ModulusRandomDesign struct {
	Modulus int
}

func (d *ModulusRandomDesign) Check(iteration int, _ *rand.Rand) bool {
	if d.Modulus <= 0 {
		return false
	}
	return iteration%d.Modulus == 0
}
