package smbo

import (
	"errors"
	"math"
)

// Model is a surrogate of the cost landscape over the unit cube.
type Model interface {
	Train(X [][]float64, y []float64) error
	Predict(x []float64) (mean, variance float64)
}

// KernelModel is a Nadaraya-Watson regressor with an RBF kernel. Its
// variance grows with the distance to the closest observation, which is
// enough for the acquisition functions to trade off exploration.
type KernelModel struct {
	// LengthScale of the RBF kernel in unit-cube coordinates.
	LengthScale float64

	X     [][]float64
	y     []float64
	mean  float64
	prior float64
}

// NewKernelModel returns a model with the given length scale, or 0.2 if
// lengthScale is not positive.
func NewKernelModel(lengthScale float64) *KernelModel {
	if lengthScale <= 0 {
		lengthScale = 0.2
	}
	return &KernelModel{LengthScale: lengthScale}
}

// Train replaces the observations.
func (m *KernelModel) Train(X [][]float64, y []float64) error {
	if len(X) != len(y) {
		return errors.New("model: X and y length mismatch")
	}
	if len(y) == 0 {
		return errors.New("model: no observations")
	}
	m.X = X
	m.y = y

	sum := 0.0
	for _, v := range y {
		sum += v
	}
	m.mean = sum / float64(len(y))

	ss := 0.0
	for _, v := range y {
		ss += (v - m.mean) * (v - m.mean)
	}
	m.prior = ss / float64(len(y))
	if m.prior == 0 {
		m.prior = 1
	}
	return nil
}

// Predict returns the kernel-weighted mean and an uncertainty that is near
// zero on observed points and approaches the prior variance far from them.
func (m *KernelModel) Predict(x []float64) (float64, float64) {
	if len(m.y) == 0 {
		return 0, 1
	}
	wsum, ysum, maxK := 0.0, 0.0, 0.0
	for i, xi := range m.X {
		k := m.kernel(x, xi)
		wsum += k
		ysum += k * m.y[i]
		maxK = math.Max(maxK, k)
	}
	mean := m.mean
	if wsum > 1e-12 {
		mean = ysum / wsum
	}
	return mean, m.prior * (1 - maxK)
}

func (m *KernelModel) kernel(a, b []float64) float64 {
	d := 0.0
	for i := range a {
		if i >= len(b) {
			break
		}
		diff := a[i] - b[i]
		d += diff * diff
	}
	return math.Exp(-d / (2 * m.LengthScale * m.LengthScale))
}
