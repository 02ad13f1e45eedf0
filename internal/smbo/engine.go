package smbo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cwbudde/hypersmac/internal/space"
	"github.com/cwbudde/hypersmac/internal/store"
)

var (
	// ErrUnknownTrial is returned by Tell for a trial the engine did not hand out.
	ErrUnknownTrial = errors.New("trial was not asked for or is already finished")
	// ErrBridgeDriven is returned by Optimize when the engine is driven externally.
	ErrBridgeDriven = errors.New("engine is driven through ask/tell")
)

// CrashCost is recorded for trials whose target function failed.
const CrashCost = math.MaxFloat32

// Mode tells who drives the ask/tell loop.
type Mode int

const (
	// SelfDriven engines run their target function in Optimize.
	SelfDriven Mode = iota
	// Bridged engines are driven by an external ask/tell caller.
	Bridged
)

func (m Mode) String() string {
	if m == Bridged {
		return "bridged"
	}
	return "self-driven"
}

// TargetFunction evaluates a configuration and returns its cost.
type TargetFunction func(cfg space.Configuration, seed int, budget *float64) (float64, error)

// NoopTarget always reports a cost of 0. Bridged engines carry it since
// trials are evaluated by the caller.
func NoopTarget(space.Configuration, int, *float64) (float64, error) {
	return 0, nil
}

type components struct {
	callbacks     []Callback
	maximizer     AcquisitionMaximizer
	selector      *ConfigSelector
	initialDesign InitialDesign
	intensifier   Intensifier
	randomDesign  RandomDesign
	model         Model
	logger        *slog.Logger
	store         store.Store
	target        TargetFunction
	mode          Mode
}

// Option configures an Engine built by a Facade.
type Option func(*components)

func WithCallbacks(cbs ...Callback) Option {
	return func(c *components) { c.callbacks = append(c.callbacks, cbs...) }
}

func WithAcquisitionMaximizer(m AcquisitionMaximizer) Option {
	return func(c *components) { c.maximizer = m }
}

func WithConfigSelector(s *ConfigSelector) Option {
	return func(c *components) { c.selector = s }
}

func WithInitialDesign(d InitialDesign) Option {
	return func(c *components) { c.initialDesign = d }
}

func WithIntensifier(in Intensifier) Option {
	return func(c *components) { c.intensifier = in }
}

func WithRandomDesign(d RandomDesign) Option {
	return func(c *components) { c.randomDesign = d }
}

func WithModel(m Model) Option {
	return func(c *components) { c.model = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *components) { c.logger = l }
}

// WithStore persists the run history to s instead of the scenario's
// output directory.
func WithStore(s store.Store) Option {
	return func(c *components) { c.store = s }
}

// WithTarget sets the function Optimize evaluates.
func WithTarget(fn TargetFunction) Option {
	return func(c *components) { c.target = fn }
}

// BridgeDriven installs NoopTarget and disables Optimize.
func BridgeDriven() Option {
	return func(c *components) {
		c.mode = Bridged
		c.target = NoopTarget
	}
}

// Engine runs sequential model-based optimization through Ask and Tell.
// It is not safe for concurrent use.
type Engine struct {
	facade   string
	scenario *Scenario
	rh       *RunHistory
	rng      *rand.Rand
	logger   *slog.Logger

	callbacks     []Callback
	maximizer     AcquisitionMaximizer
	selector      *ConfigSelector
	initialDesign InitialDesign
	intensifier   Intensifier
	randomDesign  RandomDesign
	model         Model
	target        TargetFunction
	mode          Mode

	store    store.Store
	traceDir string
	runID    string

	started bool
	stopped bool
	start   time.Time
}

func newEngine(facade string, scenario *Scenario, c *components) (*Engine, error) {
	if c.target == nil {
		return nil, errors.New("engine needs a target function")
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	e := &Engine{
		facade:        facade,
		scenario:      scenario,
		rh:            NewRunHistory(),
		rng:           rand.New(rand.NewSource(int64(scenario.Seed))),
		logger:        c.logger,
		callbacks:     c.callbacks,
		maximizer:     c.maximizer,
		selector:      c.selector,
		initialDesign: c.initialDesign,
		intensifier:   c.intensifier,
		randomDesign:  c.randomDesign,
		model:         c.model,
		target:        c.target,
		mode:          c.mode,
		store:         c.store,
		runID:         strconv.Itoa(scenario.Seed),
	}
	e.selector.bind(e.initialDesign, e.model, e.maximizer, e.randomDesign, e.rng)

	if e.store == nil && scenario.OutputDirectory != "" {
		fs, err := store.NewFSStore(filepath.Join(scenario.OutputDirectory, scenario.Name))
		if err != nil {
			return nil, fmt.Errorf("open run directory: %w", err)
		}
		e.store = fs
	}
	if fs, ok := e.store.(*store.FSStore); ok {
		e.traceDir = fs.BaseDir()
	}

	e.logger.Debug("Engine created",
		"facade", facade,
		"scenario", scenario.Name,
		"seed", scenario.Seed,
		"mode", e.mode.String(),
		"callbacks", len(e.callbacks),
	)
	return e, nil
}

// Ask returns the next trial to evaluate.
func (e *Engine) Ask() (TrialInfo, error) {
	e.begin()
	for _, cb := range e.callbacks {
		cb.OnAskStart(e)
	}
	info, err := e.intensifier.Next(e.rh, func() (space.Configuration, error) {
		return e.selector.Next(e.rh)
	})
	if err != nil {
		return TrialInfo{}, fmt.Errorf("ask: %w", err)
	}
	e.rh.MarkRunning(info)
	for _, cb := range e.callbacks {
		cb.OnAskEnd(e, info)
	}
	return info, nil
}

// Tell records the result of a trial handed out by Ask. If the run history
// cannot be persisted, Tell returns the error and leaves the engine as it
// was before the call.
func (e *Engine) Tell(info TrialInfo, value TrialValue) error {
	if !e.rh.IsRunning(info) {
		return ErrUnknownTrial
	}
	for _, cb := range e.callbacks {
		if !cb.OnTellStart(e, info, value) {
			e.stop("callback")
		}
	}

	// A trial that fails to persist stays running so the caller can tell it again.
	rec := e.rh.Add(info, value)
	if err := e.persist(rec); err != nil {
		e.rh.revert(info)
		return err
	}
	e.intensifier.Tell(info, value)

	for _, cb := range e.callbacks {
		if !cb.OnTellEnd(e, info, value) {
			e.stop("callback")
		}
	}

	if e.rh.Len() >= e.scenario.NTrials {
		e.stop("n_trials")
	}
	if e.scenario.WalltimeLimit > 0 && time.Since(e.start).Seconds() >= e.scenario.WalltimeLimit {
		e.stop("walltime_limit")
	}
	return nil
}

// Optimize runs the ask/evaluate/tell loop until the scenario limits are
// reached and returns the incumbent.
func (e *Engine) Optimize(ctx context.Context) (space.Configuration, error) {
	if e.mode == Bridged {
		return nil, ErrBridgeDriven
	}
	for !e.stopped {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := e.Ask()
		if err != nil {
			return nil, err
		}

		value := TrialValue{StartTime: time.Now()}
		cost, err := e.target(info.Config, info.Seed, info.Budget)
		value.EndTime = time.Now()
		value.Time = value.EndTime.Sub(value.StartTime).Seconds()
		if err != nil {
			e.logger.Warn("Target function failed", "error", err)
			value.Cost = CrashCost
			value.Status = StatusCrashed
			value.AdditionalInfo = map[string]any{"error": err.Error()}
		} else {
			value.Cost = cost
		}
		if err := e.Tell(info, value); err != nil {
			return nil, err
		}
	}
	cfg, _, _ := e.Incumbent()
	return cfg, nil
}

// Incumbent returns the best configuration found so far.
func (e *Engine) Incumbent() (space.Configuration, float64, bool) {
	return e.rh.Incumbent()
}

// Stopped reports whether a scenario limit or a callback ended the run.
func (e *Engine) Stopped() bool { return e.stopped }

func (e *Engine) Facade() string { return e.facade }
func (e *Engine) Scenario() *Scenario { return e.scenario }
func (e *Engine) RunHistory() *RunHistory { return e.rh }
func (e *Engine) Callbacks() []Callback { return e.callbacks }
func (e *Engine) Intensifier() Intensifier { return e.intensifier }
func (e *Engine) InitialDesign() InitialDesign { return e.initialDesign }
func (e *Engine) RandomDesign() RandomDesign { return e.randomDesign }
func (e *Engine) ConfigSelector() *ConfigSelector { return e.selector }
func (e *Engine) Maximizer() AcquisitionMaximizer { return e.maximizer }
func (e *Engine) Model() Model { return e.model }
func (e *Engine) Mode() Mode { return e.mode }
func (e *Engine) Target() TargetFunction { return e.target }
func (e *Engine) Store() store.Store { return e.store }

func (e *Engine) begin() {
	if e.started {
		return
	}
	e.started = true
	e.start = time.Now()
	for _, cb := range e.callbacks {
		cb.OnStart(e)
	}
}

func (e *Engine) stop(reason string) {
	if e.stopped {
		return
	}
	e.stopped = true
	e.logger.Info("Optimization stopped", "reason", reason, "trials", e.rh.Len())
	for _, cb := range e.callbacks {
		cb.OnEnd(e)
	}
}

func (e *Engine) persist(rec TrialRecord) error {
	if e.store == nil {
		return nil
	}
	if err := e.store.SaveSnapshot(e.runID, e.rh.Snapshot(e.runID, e.scenario)); err != nil {
		return fmt.Errorf("save run history: %w", err)
	}
	if e.traceDir == "" {
		return nil
	}

	incumbent := false
	if cfg, _, ok := e.rh.Incumbent(); ok {
		id, _ := e.rh.ConfigID(cfg)
		incumbent = id == rec.ConfigID
	}
	tw, err := store.NewTraceWriter(e.traceDir, e.runID, true)
	if err != nil {
		return fmt.Errorf("open trace: %w", err)
	}
	defer tw.Close()
	return tw.Write(store.TraceEntry{
		Trial:     e.rh.Len(),
		ConfigID:  rec.ConfigID,
		Config:    map[string]any(rec.Info.Config),
		Seed:      rec.Info.Seed,
		Budget:    rec.Info.Budget,
		Cost:      rec.Value.Cost,
		Time:      rec.Value.Time,
		Status:    rec.Value.Status.String(),
		Incumbent: incumbent,
		Timestamp: time.Now(),
	})
}
