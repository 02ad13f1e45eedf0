package monitor

import (
	"log/slog"
	"time"

	"github.com/cwbudde/hypersmac/internal/smbo"
)

// LoggingCallback logs the run lifecycle and every finished trial.
type LoggingCallback struct {
	smbo.BaseCallback

	logger *slog.Logger
	best   float64
	seen   bool
	start  time.Time
}

// NewLoggingCallback logs to logger, or slog.Default() if nil.
func NewLoggingCallback(logger *slog.Logger) *LoggingCallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingCallback{logger: logger}
}

func (l *LoggingCallback) OnStart(e *smbo.Engine) {
	l.start = time.Now()
	l.logger.Info("Starting optimization",
		"scenario", e.Scenario().Name,
		"facade", e.Facade(),
		"n_trials", e.Scenario().NTrials,
		"seed", e.Scenario().Seed,
	)
}

func (l *LoggingCallback) OnTellEnd(e *smbo.Engine, info smbo.TrialInfo, value smbo.TrialValue) bool {
	args := []any{
		"trial", e.RunHistory().Len(),
		"cost", value.Cost,
		"status", value.Status.String(),
		"seed", info.Seed,
	}
	if info.Budget != nil {
		args = append(args, "budget", *info.Budget)
	}
	l.logger.Debug("Trial finished", args...)

	if _, cost, ok := e.Incumbent(); ok && (!l.seen || cost < l.best) {
		l.seen = true
		l.best = cost
		l.logger.Info("New incumbent", "trial", e.RunHistory().Len(), "cost", cost)
	}
	return true
}

func (l *LoggingCallback) OnEnd(e *smbo.Engine) {
	args := []any{
		"scenario", e.Scenario().Name,
		"trials", e.RunHistory().Len(),
		"elapsed", time.Since(l.start).String(),
	}
	if _, cost, ok := e.Incumbent(); ok {
		args = append(args, "incumbent_cost", cost)
	}
	l.logger.Info("Optimization complete", args...)
}
