package smbo

import (
	"fmt"
	"time"

	"github.com/cwbudde/hypersmac/internal/space"
)

// StatusType is the outcome of a trial.
type StatusType int

const (
	StatusSuccess StatusType = iota
	StatusCrashed
	StatusTimeout
	StatusMemout
	StatusRunning
)

func (s StatusType) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusCrashed:
		return "crashed"
	case StatusTimeout:
		return "timeout"
	case StatusMemout:
		return "memout"
	case StatusRunning:
		return "running"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// TrialInfo is a trial request: what to evaluate, with which seed and budget.
type TrialInfo struct {
	Config   space.Configuration
	Instance string
	Seed     int
	Budget   *float64
}

type trialKey struct {
	config   string
	instance string
	seed     int
	budget   string
}

func (t TrialInfo) key() trialKey {
	budget := ""
	if t.Budget != nil {
		budget = fmt.Sprint(*t.Budget)
	}
	return trialKey{config: t.Config.Key(), instance: t.Instance, seed: t.Seed, budget: budget}
}

// TrialValue is the result of a trial. Cost is minimized.
type TrialValue struct {
	Cost           float64
	Time           float64
	Status         StatusType
	StartTime      time.Time
	EndTime        time.Time
	AdditionalInfo map[string]any
}
