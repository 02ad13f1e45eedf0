package smbo

// Callback observes the engine. OnTellStart and OnTellEnd return false to
// stop the optimization.
type Callback interface {
	OnStart(e *Engine)
	OnEnd(e *Engine)
	OnAskStart(e *Engine)
	OnAskEnd(e *Engine, info TrialInfo)
	OnTellStart(e *Engine, info TrialInfo, value TrialValue) bool
	OnTellEnd(e *Engine, info TrialInfo, value TrialValue) bool
}

// BaseCallback implements every hook as a no-op. Embed it to override only
// the hooks you need.
type BaseCallback struct{}

func (BaseCallback) OnStart(*Engine) {}
func (BaseCallback) OnEnd(*Engine) {}
func (BaseCallback) OnAskStart(*Engine) {}
func (BaseCallback) OnAskEnd(*Engine, TrialInfo) {}
func (BaseCallback) OnTellStart(*Engine, TrialInfo, TrialValue) bool { return true }
func (BaseCallback) OnTellEnd(*Engine, TrialInfo, TrialValue) bool { return true }
