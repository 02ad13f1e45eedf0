package smbo

import (
	"fmt"

	"github.com/cwbudde/hypersmac/internal/registry"
	"github.com/cwbudde/hypersmac/internal/space"
)

// RegisterClasses registers the engine's facades and sub-policies under
// "smbo.<Name>" so configuration trees can reference them by path.
func RegisterClasses(reg *registry.Registry) {
	reg.Register("smbo.HyperparameterOptimizationFacade", func(registry.Kwargs) (any, error) {
		return HyperparameterOptimizationFacade{}, nil
	})
	reg.Register("smbo.MultiFidelityFacade", func(registry.Kwargs) (any, error) {
		return MultiFidelityFacade{}, nil
	})
	reg.Register("smbo.RandomFacade", func(registry.Kwargs) (any, error) {
		return RandomFacade{}, nil
	})

	reg.Register("smbo.EI", func(kw registry.Kwargs) (any, error) {
		var args struct {
			Xi float64 `mapstructure:"xi"`
		}
		if err := registry.Decode(kw, &args); err != nil {
			return nil, err
		}
		return NewEI(args.Xi), nil
	})
	reg.Register("smbo.PI", func(kw registry.Kwargs) (any, error) {
		var args struct {
			Xi float64 `mapstructure:"xi"`
		}
		if err := registry.Decode(kw, &args); err != nil {
			return nil, err
		}
		return NewPI(args.Xi), nil
	})
	reg.Register("smbo.LCB", func(kw registry.Kwargs) (any, error) {
		args := struct {
			Beta float64 `mapstructure:"beta"`
		}{Beta: 1}
		if err := registry.Decode(kw, &args); err != nil {
			return nil, err
		}
		return NewLCB(args.Beta), nil
	})

	reg.Register("smbo.RandomSearch", func(kw registry.Kwargs) (any, error) {
		cs, acq, err := maximizerArgs(kw)
		if err != nil {
			return nil, err
		}
		var args struct {
			Challengers int `mapstructure:"challengers"`
		}
		if err := registry.Decode(kw.Without("configspace", "acquisition_function"), &args); err != nil {
			return nil, err
		}
		return NewRandomSearch(cs, acq, args.Challengers), nil
	})
	reg.Register("smbo.LocalAndSortedRandomSearch", func(kw registry.Kwargs) (any, error) {
		cs, acq, err := maximizerArgs(kw)
		if err != nil {
			return nil, err
		}
		var args struct {
			Challengers int `mapstructure:"challengers"`
		}
		if err := registry.Decode(kw.Without("configspace", "acquisition_function"), &args); err != nil {
			return nil, err
		}
		return NewLocalAndSortedRandomSearch(cs, acq, args.Challengers), nil
	})
	reg.Register("smbo.MayflySearch", func(kw registry.Kwargs) (any, error) {
		cs, acq, err := maximizerArgs(kw)
		if err != nil {
			return nil, err
		}
		var args struct {
			MaxIterations int `mapstructure:"max_iterations"`
			PopSize       int `mapstructure:"pop_size"`
		}
		if err := registry.Decode(kw.Without("configspace", "acquisition_function"), &args); err != nil {
			return nil, err
		}
		return NewMayflySearch(cs, acq, args.MaxIterations, args.PopSize), nil
	})
	reg.Register("smbo.SwitchingSearch", func(kw registry.Kwargs) (any, error) {
		cs, acq, err := maximizerArgs(kw)
		if err != nil {
			return nil, err
		}
		var selector Selector
		if raw, ok := kw["selector"]; ok {
			s, ok := raw.(Selector)
			if !ok {
				return nil, fmt.Errorf("argument %q: expected a selector, got %T", "selector", raw)
			}
			selector = s
		}
		return NewSwitchingSearch(cs, acq, selector), nil
	})
	reg.Register("smbo.ExplorationSelector", func(kw registry.Kwargs) (any, error) {
		args := struct {
			Probability float64 `mapstructure:"probability"`
			Step        float64 `mapstructure:"step"`
			Min         float64 `mapstructure:"min"`
			Max         float64 `mapstructure:"max"`
		}{Probability: 0.5, Step: 0.05, Min: 0.1, Max: 0.9}
		if err := registry.Decode(kw, &args); err != nil {
			return nil, err
		}
		return NewExplorationSelector(args.Probability, args.Step, args.Min, args.Max), nil
	})

	reg.Register("smbo.ConfigSelector", func(kw registry.Kwargs) (any, error) {
		scenario, err := registry.Arg[*Scenario](kw, "scenario")
		if err != nil {
			return nil, err
		}
		var args struct {
			RetrainAfter int `mapstructure:"retrain_after"`
			Retries      int `mapstructure:"retries"`
			MinTrials    int `mapstructure:"min_trials"`
		}
		if err := registry.Decode(kw.Without("scenario"), &args); err != nil {
			return nil, err
		}
		return NewConfigSelector(scenario, args.RetrainAfter, args.Retries, args.MinTrials), nil
	})

	for path, kind := range map[string]DesignKind{
		"smbo.RandomInitialDesign":         DesignRandom,
		"smbo.LatinHypercubeInitialDesign": DesignLatinHypercube,
		"smbo.DefaultInitialDesign":        DesignDefault,
	} {
		reg.Register(path, initialDesignClass(kind))
	}

	reg.Register("smbo.Intensifier", func(kw registry.Kwargs) (any, error) {
		scenario, err := registry.Arg[*Scenario](kw, "scenario")
		if err != nil {
			return nil, err
		}
		var args struct {
			MaxConfigCalls int `mapstructure:"max_config_calls"`
		}
		if err := registry.Decode(kw.Without("scenario"), &args); err != nil {
			return nil, err
		}
		return NewIntensifier(scenario, args.MaxConfigCalls), nil
	})
	reg.Register("smbo.SuccessiveHalving", func(kw registry.Kwargs) (any, error) {
		scenario, err := registry.Arg[*Scenario](kw, "scenario")
		if err != nil {
			return nil, err
		}
		var args struct {
			Eta int `mapstructure:"eta"`
		}
		if err := registry.Decode(kw.Without("scenario"), &args); err != nil {
			return nil, err
		}
		return NewSuccessiveHalving(scenario, args.Eta)
	})

	reg.Register("smbo.ProbabilityRandomDesign", func(kw registry.Kwargs) (any, error) {
		args := struct {
			Probability float64 `mapstructure:"probability" validate:"gte=0,lte=1"`
		}{Probability: 0.2}
		if err := registry.Decode(kw, &args); err != nil {
			return nil, err
		}
		if err := validate.Struct(args); err != nil {
			return nil, err
		}
		return &ProbabilityRandomDesign{Probability: args.Probability}, nil
	})
	reg.Register("smbo.ModulusRandomDesign", func(kw registry.Kwargs) (any, error) {
		args := struct {
			Modulus int `mapstructure:"modulus" validate:"gte=1"`
		}{Modulus: 2}
		if err := registry.Decode(kw, &args); err != nil {
			return nil, err
		}
		if err := validate.Struct(args); err != nil {
			return nil, err
		}
		return &ModulusRandomDesign{Modulus: args.Modulus}, nil
	})
}

func maximizerArgs(kw registry.Kwargs) (*space.Space, AcquisitionFunction, error) {
	cs, err := registry.Arg[*space.Space](kw, "configspace")
	if err != nil {
		return nil, nil, err
	}
	acq, err := registry.Arg[AcquisitionFunction](kw, "acquisition_function")
	if err != nil {
		return nil, nil, err
	}
	return cs, acq, nil
}

// initialDesignClass builds a design constructor. warmstart_file is accepted
// and ignored; warm starts are resolved before the design is constructed.
func initialDesignClass(kind DesignKind) registry.Constructor {
	return func(kw registry.Kwargs) (any, error) {
		scenario, err := registry.Arg[*Scenario](kw, "scenario")
		if err != nil {
			return nil, err
		}
		additional, err := configList(kw["additional_configs"])
		if err != nil {
			return nil, err
		}
		var args struct {
			NConfigs                  *int    `mapstructure:"n_configs"`
			NConfigsPerHyperparameter int     `mapstructure:"n_configs_per_hyperparameter"`
			MaxRatio                  float64 `mapstructure:"max_ratio"`
		}
		if err := registry.Decode(kw.Without("scenario", "additional_configs", "warmstart_file"), &args); err != nil {
			return nil, err
		}
		return NewSampledDesign(kind, scenario, DesignOptions{
			NConfigs:                  args.NConfigs,
			NConfigsPerHyperparameter: args.NConfigsPerHyperparameter,
			MaxRatio:                  args.MaxRatio,
			AdditionalConfigs:         additional,
		})
	}
}

func configList(raw any) ([]space.Configuration, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []space.Configuration:
		return v, nil
	case []any:
		out := make([]space.Configuration, len(v))
		for i, e := range v {
			switch c := e.(type) {
			case space.Configuration:
				out[i] = c
			case map[string]any:
				out[i] = space.Configuration(c)
			default:
				return nil, fmt.Errorf("additional_configs[%d]: expected a mapping, got %T", i, e)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("additional_configs: expected a list, got %T", raw)
	}
}
