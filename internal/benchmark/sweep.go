package benchmark

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/cwbudde/hypersmac/internal/opt"
	"github.com/cwbudde/hypersmac/internal/space"
)

// Objective evaluates one trial and returns its performance and an
// optional resource cost.
type Objective func(cfg space.Configuration, budget *float64, seed int) (performance float64, cost *float64, err error)

// SweepResult holds the output of a sweep
type SweepResult struct {
	BestConfig      space.Configuration
	BestPerformance float64
	TotalCost       float64
	Trials          int
	Failed          int
}

// SweepOption configures a sweep.
type SweepOption func(*sweepConfig)

type sweepConfig struct {
	stopped func() bool
}

// WithStopCheck ends the sweep after a tell once stopped reports true. It
// lets a caller holding the engine honour stops the ask flags do not carry,
// such as callbacks or scenario limits.
func WithStopCheck(stopped func() bool) SweepOption {
	return func(c *sweepConfig) { c.stopped = stopped }
}

// Sweep drives optimizer through up to nTrials ask/tell rounds. Failed
// evaluations are logged and skipped; the loop also ends when the optimizer
// asks to terminate or stop, or when the stop check fires.
func Sweep(ctx context.Context, optimizer opt.Optimizer, objective Objective, nTrials int, outputPath string, opts ...SweepOption) (*SweepResult, error) {
	var cfg sweepConfig
	for _, o := range opts {
		o(&cfg)
	}
	slog.Info("Starting sweep", "trials", nTrials)

	result := &SweepResult{BestPerformance: math.Inf(1)}
	for i := 0; i < nTrials; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		info, terminate, stop, err := optimizer.Ask()
		if err != nil {
			return result, fmt.Errorf("ask: %w", err)
		}

		perf, cost, err := objective(info.Config, info.Budget, info.Seed)
		if err != nil {
			slog.Warn("Trial failed", "trial", i+1, "error", err)
			result.Failed++
		} else {
			if err := optimizer.Tell(info, opt.Result{Performance: perf, Cost: cost}); err != nil {
				return result, fmt.Errorf("tell: %w", err)
			}
			result.Trials++
			if cost != nil {
				result.TotalCost += *cost
			}
			if perf < result.BestPerformance {
				result.BestPerformance = perf
				result.BestConfig = info.Config
				slog.Info("New best", "trial", i+1, "performance", perf)
			}
		}

		if terminate || stop {
			slog.Info("Optimizer requested stop", "trial", i+1)
			break
		}
		if cfg.stopped != nil && cfg.stopped() {
			slog.Info("Engine stopped", "trial", i+1)
			break
		}
	}

	if err := optimizer.FinishRun(outputPath); err != nil {
		return result, fmt.Errorf("finish run: %w", err)
	}
	slog.Info("Sweep complete", "trials", result.Trials, "failed", result.Failed, "best_performance", result.BestPerformance)
	return result, nil
}
