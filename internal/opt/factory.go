package opt

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/cwbudde/hypersmac/internal/config"
	"github.com/cwbudde/hypersmac/internal/registry"
	"github.com/cwbudde/hypersmac/internal/smbo"
	"github.com/cwbudde/hypersmac/internal/space"
	"github.com/cwbudde/hypersmac/internal/store"
)

// Keys understood in a configuration tree.
const (
	KeyScenario            = "scenario"
	KeyCallbacks           = "callbacks"
	KeyAcquisitionFunction = "acquisition_function"
	KeyAcquisitionMax      = "acquisition_maximizer"
	KeyConfigSelector      = "config_selector"
	KeyInitialDesign       = "initial_design"
	KeyIntensifier         = "intensifier"
	KeyRandomDesign        = "random_design"
	KeyFacade              = "smac_facade"
	KeyRunHistoryStore     = "run_history_store"

	warmstartKey       = "warmstart_file"
	outputDirectoryKey = "output_directory"
)

// Factory builds bridge-driven engines from instantiated configuration trees.
type Factory struct {
	// Registry resolves smac_facade given as a class path.
	Registry *registry.Registry
	// ConvertRow turns warm-start rows into configurations. Nil uses space.FromRow.
	ConvertRow space.RowConverter
	// Logger is handed to the engine. Nil uses slog.Default().
	Logger *slog.Logger
	// Options are appended to the engine options the tree resolves to.
	Options []smbo.Option
	// WarmStartFacade builds the initial design for warm starts, whatever
	// smac_facade is. Nil uses HyperparameterOptimizationFacade.
	WarmStartFacade smbo.Facade
}

// NewFactory returns a factory resolving class paths through reg.
func NewFactory(reg *registry.Registry) *Factory {
	return &Factory{Registry: reg}
}

// Build assembles an engine from tree and wraps it in an adapter. tree
// must hold a "scenario" mapping; every other key is optional and falls
// back to the facade's default when absent. tree is not modified.
//
// Sub-policies are passed as callables: *registry.Partial or
// *registry.Class values, as produced by config.Instantiate for mappings
// with `_target_` (and `_partial_: true`).
//
// scenario.output_directory and warmstart_file are cleaned with
// filepath.Clean, and a leading "~" or "~/" is expanded to the user's home
// directory. A literal directory named "~" cannot be addressed this way;
// write "./~" instead.
func (f *Factory) Build(cs *space.Space, tree *config.Map) (*SMACAdapter, error) {
	if cs == nil {
		return nil, fmt.Errorf("%w: search space is required", ErrInvalidConfig)
	}
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// 1-2. Scenario
	rawScenario, ok := tree.Get(KeyScenario)
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrInvalidConfig, KeyScenario)
	}
	scenarioArgs, err := scenarioKwargs(rawScenario)
	if err != nil {
		return nil, err
	}
	scenario, err := smbo.NewScenario(cs, scenarioArgs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	// 3. Callbacks
	callbacks, err := resolveCallbacks(tree)
	if err != nil {
		return nil, err
	}
	opts := []smbo.Option{smbo.BridgeDriven(), smbo.WithLogger(logger)}

	// 4. Acquisition function and maximizer, only as a pair
	acq, hasAcq := tree.Get(KeyAcquisitionFunction)
	maxFn, hasMax := tree.Get(KeyAcquisitionMax)
	switch {
	case hasAcq && hasMax:
		mx, err := callAs[smbo.AcquisitionMaximizer](KeyAcquisitionMax, maxFn, registry.Kwargs{
			"configspace":          cs,
			"acquisition_function": acq,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, smbo.WithAcquisitionMaximizer(mx))
		if sp, ok := mx.(smbo.SelectorProvider); ok {
			if ec, ok := sp.Selector().(smbo.ExposesExploreCallback); ok {
				callbacks = append(callbacks, ec.ExploreCallback())
			}
		}
	case hasAcq || hasMax:
		logger.Warn("Ignoring acquisition policy: acquisition_function and acquisition_maximizer must be set together")
	}
	opts = append(opts, smbo.WithCallbacks(callbacks...))

	// 5. Config selector
	if v, ok := tree.Get(KeyConfigSelector); ok {
		sel, err := callAs[*smbo.ConfigSelector](KeyConfigSelector, v, registry.Kwargs{"scenario": scenario})
		if err != nil {
			return nil, err
		}
		opts = append(opts, smbo.WithConfigSelector(sel))
	}

	facade, err := f.resolveFacade(tree)
	if err != nil {
		return nil, err
	}

	// 6. Initial design, optionally warm started
	if v, ok := tree.Get(KeyInitialDesign); ok {
		design, err := f.initialDesign(v, cs, scenario, logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, smbo.WithInitialDesign(design))
	}

	// 7. Intensifier
	if v, ok := tree.Get(KeyIntensifier); ok {
		in, err := callAs[smbo.Intensifier](KeyIntensifier, v, registry.Kwargs{"scenario": scenario})
		if err != nil {
			return nil, err
		}
		opts = append(opts, smbo.WithIntensifier(in))
	}

	// 8. Random design
	if v, ok := tree.Get(KeyRandomDesign); ok {
		rd, err := callAs[smbo.RandomDesign](KeyRandomDesign, v, nil)
		if err != nil {
			return nil, err
		}
		opts = append(opts, smbo.WithRandomDesign(rd))
	}

	if v, ok := tree.Get(KeyRunHistoryStore); ok {
		st, err := resolveStore(v)
		if err != nil {
			return nil, err
		}
		opts = append(opts, smbo.WithStore(st))
	}

	// 9. Engine in bridge-driven mode
	engine, err := facade.New(scenario, append(opts, f.Options...)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	logger.Info("Engine ready",
		"facade", facade.Name(),
		"scenario", scenario.Name,
		"run_dir", scenario.RunDirectory(),
		"callbacks", len(engine.Callbacks()),
	)

	// 10.
	return NewSMACAdapter(engine), nil
}

// scenarioKwargs copies the scenario mapping and normalizes output_directory.
func scenarioKwargs(v any) (map[string]any, error) {
	var kw map[string]any
	switch t := v.(type) {
	case *config.Map:
		kw = t.ToStringMap()
	case map[string]any:
		kw = make(map[string]any, len(t))
		for k, v := range t {
			kw[k] = v
		}
	default:
		return nil, fmt.Errorf("%w: %s must be a mapping, got %T", ErrInvalidConfig, KeyScenario, v)
	}

	if raw, ok := kw[outputDirectoryKey]; ok {
		dir, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s must be a string, got %T", ErrInvalidConfig, KeyScenario, outputDirectoryKey, raw)
		}
		kw[outputDirectoryKey] = expandPath(dir)
	}
	return kw, nil
}

func expandPath(p string) string {
	if p == "" {
		return p
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return filepath.Clean(p)
}

// resolveCallbacks returns the callbacks of a mapping in insertion order, or
// a sequence as is. Plain Go maps have no order and are read in key order.
func resolveCallbacks(tree *config.Map) ([]smbo.Callback, error) {
	raw, ok := tree.Get(KeyCallbacks)
	if !ok || raw == nil {
		return []smbo.Callback{}, nil
	}

	var values []any
	switch t := raw.(type) {
	case *config.Map:
		values = t.Values()
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			values = append(values, t[k])
		}
	case []any:
		values = t
	case []smbo.Callback:
		return append([]smbo.Callback{}, t...), nil
	default:
		return nil, fmt.Errorf("%w: %s must be a mapping or a sequence, got %T", ErrInvalidConfig, KeyCallbacks, raw)
	}

	callbacks := make([]smbo.Callback, 0, len(values))
	for i, v := range values {
		cb, ok := v.(smbo.Callback)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] is not a callback, got %T", ErrInvalidConfig, KeyCallbacks, i, v)
		}
		callbacks = append(callbacks, cb)
	}
	return callbacks, nil
}

func (f *Factory) resolveFacade(tree *config.Map) (smbo.Facade, error) {
	raw, ok := tree.Get(KeyFacade)
	if !ok || raw == nil {
		return smbo.HyperparameterOptimizationFacade{}, nil
	}
	if facade, ok := raw.(smbo.Facade); ok {
		return facade, nil
	}
	if path, ok := raw.(string); ok {
		if f.Registry == nil {
			return nil, fmt.Errorf("%w: %s %q given as a path but the factory has no registry", ErrInvalidConfig, KeyFacade, path)
		}
		class, err := f.Registry.Lookup(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, KeyFacade, err)
		}
		raw = class
	}
	return callAs[smbo.Facade](KeyFacade, raw, nil)
}

func (f *Factory) initialDesign(v any, cs *space.Space, scenario *smbo.Scenario, logger *slog.Logger) (smbo.InitialDesign, error) {
	file, err := warmstartFile(v)
	if err != nil {
		return nil, err
	}
	if file == "" {
		return callAs[smbo.InitialDesign](KeyInitialDesign, v, registry.Kwargs{"scenario": scenario})
	}

	configs, err := ReadAdditionalConfigs(expandPath(file), cs, f.ConvertRow)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	logger.Info("Warm starting from previous trials", "file", file, "configs", len(configs))

	var facade smbo.Facade = smbo.HyperparameterOptimizationFacade{}
	if f.WarmStartFacade != nil {
		facade = f.WarmStartFacade
	}
	design, err := facade.InitialDesign(scenario, 0, configs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, KeyInitialDesign, err)
	}
	return design, nil
}

// warmstartFile looks for warmstart_file in a partial's bound keywords or
// in a raw mapping.
func warmstartFile(v any) (string, error) {
	var raw any
	switch t := v.(type) {
	case *registry.Partial:
		raw, _ = t.Keyword(warmstartKey)
	case *config.Map:
		raw, _ = t.Get(warmstartKey)
	case map[string]any:
		raw = t[warmstartKey]
	}
	if raw == nil {
		return "", nil
	}
	file, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s.%s must be a string, got %T", ErrInvalidConfig, KeyInitialDesign, warmstartKey, raw)
	}
	return file, nil
}

func resolveStore(v any) (store.Store, error) {
	st, ok := v.(store.Store)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a store, got %T", ErrInvalidConfig, KeyRunHistoryStore, v)
	}
	return st, nil
}

// callAs calls a partial or class with kw and checks the result type.
func callAs[T any](key string, v any, kw registry.Kwargs) (T, error) {
	var zero T
	var (
		out any
		err error
	)
	switch fn := v.(type) {
	case *registry.Partial:
		out, err = fn.Call(kw)
	case *registry.Class:
		out, err = fn.Call(kw)
	default:
		return zero, fmt.Errorf("%w: %s must be a class or partial, got %T", ErrInvalidConfig, key, v)
	}
	if err != nil {
		return zero, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
	}
	t, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s built %T, want %v", ErrInvalidConfig, key, out, reflect.TypeFor[T]())
	}
	return t, nil
}
