package smbo

import (
	"errors"

	"github.com/cwbudde/hypersmac/internal/space"
)

// Facade assembles an Engine with a coherent set of default components.
// Options passed to New replace the corresponding defaults.
type Facade interface {
	Name() string
	New(scenario *Scenario, opts ...Option) (*Engine, error)
	// InitialDesign returns the facade's initial design generating nConfigs
	// configurations after additional.
	InitialDesign(scenario *Scenario, nConfigs int, additional []space.Configuration) (InitialDesign, error)
}

func assemble(name string, scenario *Scenario, opts []Option, defaults func(c *components) error) (*Engine, error) {
	if scenario == nil {
		return nil, errors.New("facade needs a scenario")
	}
	c := &components{}
	for _, opt := range opts {
		opt(c)
	}
	if err := defaults(c); err != nil {
		return nil, err
	}
	if c.selector == nil {
		c.selector = NewConfigSelector(scenario, 0, 0, 0)
	}
	return newEngine(name, scenario, c)
}

// HyperparameterOptimizationFacade uses a kernel surrogate with expected
// improvement, a latin hypercube initial design and a seed-racing intensifier.
type HyperparameterOptimizationFacade struct{}

func (HyperparameterOptimizationFacade) Name() string { return "HyperparameterOptimizationFacade" }

func (f HyperparameterOptimizationFacade) New(scenario *Scenario, opts ...Option) (*Engine, error) {
	return assemble(f.Name(), scenario, opts, func(c *components) error {
		if c.model == nil {
			c.model = NewKernelModel(0.2)
		}
		if c.maximizer == nil {
			c.maximizer = NewLocalAndSortedRandomSearch(scenario.ConfigSpace, NewEI(0), 2000)
		}
		if c.initialDesign == nil {
			d, err := NewSampledDesign(DesignLatinHypercube, scenario, DesignOptions{MaxRatio: 0.25})
			if err != nil {
				return err
			}
			c.initialDesign = d
		}
		if c.intensifier == nil {
			c.intensifier = NewIntensifier(scenario, 3)
		}
		if c.randomDesign == nil {
			c.randomDesign = &ProbabilityRandomDesign{Probability: 0.2}
		}
		return nil
	})
}

func (HyperparameterOptimizationFacade) InitialDesign(scenario *Scenario, nConfigs int, additional []space.Configuration) (InitialDesign, error) {
	return NewSampledDesign(DesignLatinHypercube, scenario, DesignOptions{
		NConfigs:          &nConfigs,
		MaxRatio:          0.25,
		AdditionalConfigs: additional,
	})
}

// MultiFidelityFacade races configurations with successive halving over
// the scenario's budget range.
type MultiFidelityFacade struct{}

func (MultiFidelityFacade) Name() string { return "MultiFidelityFacade" }

func (f MultiFidelityFacade) New(scenario *Scenario, opts ...Option) (*Engine, error) {
	return assemble(f.Name(), scenario, opts, func(c *components) error {
		if c.model == nil {
			c.model = NewKernelModel(0.2)
		}
		if c.maximizer == nil {
			c.maximizer = NewLocalAndSortedRandomSearch(scenario.ConfigSpace, NewEI(0), 2000)
		}
		if c.initialDesign == nil {
			d, err := NewSampledDesign(DesignRandom, scenario, DesignOptions{MaxRatio: 0.25})
			if err != nil {
				return err
			}
			c.initialDesign = d
		}
		if c.intensifier == nil {
			sh, err := NewSuccessiveHalving(scenario, 3)
			if err != nil {
				return err
			}
			c.intensifier = sh
		}
		if c.randomDesign == nil {
			c.randomDesign = &ProbabilityRandomDesign{Probability: 0.2}
		}
		return nil
	})
}

func (MultiFidelityFacade) InitialDesign(scenario *Scenario, nConfigs int, additional []space.Configuration) (InitialDesign, error) {
	return NewSampledDesign(DesignRandom, scenario, DesignOptions{
		NConfigs:          &nConfigs,
		MaxRatio:          0.25,
		AdditionalConfigs: additional,
	})
}

// RandomFacade samples configurations uniformly. It has no model, so any
// acquisition maximizer passed in is never consulted.
type RandomFacade struct{}

func (RandomFacade) Name() string { return "RandomFacade" }

func (f RandomFacade) New(scenario *Scenario, opts ...Option) (*Engine, error) {
	return assemble(f.Name(), scenario, opts, func(c *components) error {
		if c.initialDesign == nil {
			d, err := NewSampledDesign(DesignDefault, scenario, DesignOptions{})
			if err != nil {
				return err
			}
			c.initialDesign = d
		}
		if c.intensifier == nil {
			c.intensifier = NewIntensifier(scenario, 1)
		}
		if c.randomDesign == nil {
			c.randomDesign = &ProbabilityRandomDesign{Probability: 1}
		}
		return nil
	})
}

func (RandomFacade) InitialDesign(scenario *Scenario, nConfigs int, additional []space.Configuration) (InitialDesign, error) {
	return NewSampledDesign(DesignRandom, scenario, DesignOptions{
		NConfigs:          &nConfigs,
		AdditionalConfigs: additional,
	})
}
