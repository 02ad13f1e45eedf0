package smbo

import "math"

// AcquisitionFunction scores unit-cube points; higher is better.
type AcquisitionFunction interface {
	Name() string
	// Update sets the model and the best cost observed so far.
	Update(model Model, eta float64)
	Evaluate(x []float64) float64
}

type acquisitionBase struct {
	model Model
	eta   float64
}

func (a *acquisitionBase) Update(model Model, eta float64) {
	a.model = model
	a.eta = eta
}

func (a *acquisitionBase) predict(x []float64) (float64, float64, bool) {
	if a.model == nil {
		return 0, 0, false
	}
	mu, variance := a.model.Predict(x)
	return mu, math.Sqrt(math.Max(variance, 0)), true
}

// EI is expected improvement over the incumbent cost.
type EI struct {
	acquisitionBase
	Xi float64
}

// NewEI returns expected improvement with exploration offset xi.
func NewEI(xi float64) *EI { return &EI{Xi: xi} }

func (a *EI) Name() string { return "EI" }

func (a *EI) Evaluate(x []float64) float64 {
	mu, sigma, ok := a.predict(x)
	if !ok {
		return 0
	}
	improvement := a.eta - mu - a.Xi
	if sigma < 1e-12 {
		return math.Max(improvement, 0)
	}
	z := improvement / sigma
	return improvement*normCDF(z) + sigma*normPDF(z)
}

// PI is probability of improvement.
type PI struct {
	acquisitionBase
	Xi float64
}

func NewPI(xi float64) *PI { return &PI{Xi: xi} }

func (a *PI) Name() string { return "PI" }

func (a *PI) Evaluate(x []float64) float64 {
	mu, sigma, ok := a.predict(x)
	if !ok {
		return 0
	}
	improvement := a.eta - mu - a.Xi
	if sigma < 1e-12 {
		if improvement > 0 {
			return 1
		}
		return 0
	}
	return normCDF(improvement / sigma)
}

// LCB is the negated lower confidence bound, so that higher stays better.
type LCB struct {
	acquisitionBase
	Beta float64
}

func NewLCB(beta float64) *LCB { return &LCB{Beta: beta} }

func (a *LCB) Name() string { return "LCB" }

func (a *LCB) Evaluate(x []float64) float64 {
	mu, sigma, ok := a.predict(x)
	if !ok {
		return 0
	}
	return -(mu - a.Beta*sigma)
}

func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
