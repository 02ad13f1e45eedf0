package monitor

import (
	"log/slog"
	"math"

	"github.com/cwbudde/hypersmac/internal/smbo"
)

// ConvergenceConfig defines when a run counts as converged
type ConvergenceConfig struct {
	// Patience is the number of trials with no significant incumbent
	// improvement before stopping
	Patience int `mapstructure:"patience" validate:"gte=1"`

	// Threshold is the minimum relative improvement required to count as progress
	// Example: 0.001 = 0.1% improvement required
	// Relative improvement = (oldCost - newCost) / |oldCost|
	Threshold float64 `mapstructure:"threshold" validate:"gte=0"`
}

// DefaultConvergenceConfig returns sensible defaults for convergence detection
func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Patience:  20,
		Threshold: 0.001, // 0.1% improvement
	}
}

// ConvergenceCallback stops the engine once the incumbent cost has not
// improved significantly for Patience consecutive trials.
type ConvergenceCallback struct {
	smbo.BaseCallback

	config          ConvergenceConfig
	history         []float64
	lastSignificant float64 // Last incumbent cost that was a significant improvement
	staleCount      int     // Trials without significant improvement
}

// NewConvergenceCallback creates a callback with the given config
func NewConvergenceCallback(config ConvergenceConfig) *ConvergenceCallback {
	return &ConvergenceCallback{
		config:          config,
		lastSignificant: math.Inf(1),
	}
}

func (c *ConvergenceCallback) OnTellEnd(e *smbo.Engine, _ smbo.TrialInfo, _ smbo.TrialValue) bool {
	_, cost, ok := e.Incumbent()
	if !ok {
		return true
	}
	return !c.Update(cost)
}

// Update records the incumbent cost after a trial and returns true if
// convergence is detected
func (c *ConvergenceCallback) Update(cost float64) bool {
	c.history = append(c.history, cost)

	// First cost - initialize lastSignificant
	if len(c.history) == 1 {
		c.lastSignificant = cost
		return false
	}

	relativeImprovement := (c.lastSignificant - cost) / math.Max(math.Abs(c.lastSignificant), 1e-12)
	if relativeImprovement >= c.config.Threshold && cost < c.lastSignificant {
		c.lastSignificant = cost
		c.staleCount = 0
		slog.Debug("Incumbent improvement detected",
			"cost", cost,
			"relative_improvement", relativeImprovement,
		)
		return false
	}

	c.staleCount++
	if c.staleCount >= c.config.Patience {
		slog.Info("Convergence detected - stopping early",
			"stale_count", c.staleCount,
			"patience", c.config.Patience,
			"best_cost", c.lastSignificant,
		)
		return true
	}
	return false
}

// StaleCount returns the current number of trials without improvement
func (c *ConvergenceCallback) StaleCount() int {
	return c.staleCount
}

// History returns the incumbent cost after every trial
func (c *ConvergenceCallback) History() []float64 {
	return append([]float64{}, c.history...) // Return copy
}
