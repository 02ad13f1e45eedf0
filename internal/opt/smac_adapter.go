package opt

import (
	"github.com/cwbudde/hypersmac/internal/smbo"
)

// Engine is the part of *smbo.Engine the adapter drives.
type Engine interface {
	Ask() (smbo.TrialInfo, error)
	Tell(info smbo.TrialInfo, value smbo.TrialValue) error
}

// SMACAdapter wraps an SMBO engine to conform to our Optimizer interface.
// It is not safe for concurrent use.
type SMACAdapter struct {
	engine Engine
}

// NewSMACAdapter wraps engine.
func NewSMACAdapter(engine Engine) *SMACAdapter {
	return &SMACAdapter{engine: engine}
}

// Engine returns the wrapped engine.
func (a *SMACAdapter) Engine() Engine {
	return a.engine
}

// Ask fetches the next trial from the engine. The adapter never signals
// termination; the driver's own budget decides when to stop.
func (a *SMACAdapter) Ask() (Info, bool, bool, error) {
	trial, err := a.engine.Ask()
	if err != nil {
		return Info{}, false, false, err
	}
	return Info{
		Config: trial.Config,
		Budget: trial.Budget,
		Seed:   trial.Seed,
	}, false, false, nil
}

// Tell reports a result to the engine. Performance becomes the engine
// cost; the resource cost becomes the trial time and is kept under
// "resource_cost" when present.
func (a *SMACAdapter) Tell(info Info, value Result) error {
	trial := smbo.TrialInfo{
		Config: info.Config,
		Seed:   info.Seed,
		Budget: info.Budget,
	}
	result := smbo.TrialValue{
		Cost: value.Performance,
	}
	if value.Cost != nil {
		result.Time = *value.Cost
		result.AdditionalInfo = map[string]any{"resource_cost": *value.Cost}
	}
	return a.engine.Tell(trial, result)
}

// FinishRun does nothing; the engine persists its run history on every tell.
func (a *SMACAdapter) FinishRun(string) error {
	return nil
}
