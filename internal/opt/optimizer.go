package opt

import (
	"errors"

	"github.com/cwbudde/hypersmac/internal/space"
)

// ErrInvalidConfig marks a malformed configuration tree.
var ErrInvalidConfig = errors.New("invalid optimizer configuration")

// Info is a trial proposed to the search driver.
type Info struct {
	Config space.Configuration
	// Budget is nil when the engine does not use budgets.
	Budget *float64
	Seed   int
	// LoadPath points at a checkpoint to resume from. Empty means none.
	LoadPath string
}

// Result is what the search driver reports back for a trial.
type Result struct {
	// Performance is minimized.
	Performance float64
	// Cost is the resource consumption of the trial, or nil if unknown.
	Cost *float64
}

// Optimizer defines the ask/tell interface a search driver uses
type Optimizer interface {
	// Ask returns the next trial to evaluate
	// terminate: the driver should stop after this trial
	// optimizerStop: the optimizer has nothing more to propose
	Ask() (info Info, terminate, optimizerStop bool, err error)

	// Tell reports the result of a trial returned by Ask
	Tell(info Info, value Result) error

	// FinishRun is called once after the last trial
	FinishRun(outputPath string) error
}
