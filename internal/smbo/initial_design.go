package smbo

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/hypersmac/internal/space"
)

// InitialDesign yields the configurations evaluated before the model takes over.
type InitialDesign interface {
	Select(rng *rand.Rand) []space.Configuration
}

// DesignKind selects how an initial design generates configurations.
type DesignKind string

const (
	DesignRandom         DesignKind = "random"
	DesignLatinHypercube DesignKind = "latin_hypercube"
	DesignDefault        DesignKind = "default"
)

// DesignOptions configures a SampledDesign.
type DesignOptions struct {
	// NConfigs is the number of generated configurations. Nil derives it
	// from NConfigsPerHyperparameter.
	NConfigs                  *int
	NConfigsPerHyperparameter int
	// MaxRatio caps generated configurations at MaxRatio*n_trials.
	MaxRatio float64
	// AdditionalConfigs come first, ahead of generated ones.
	AdditionalConfigs []space.Configuration
}

// SampledDesign is the initial design used by every facade.
type SampledDesign struct {
	Kind        DesignKind
	ConfigSpace *space.Space
	NConfigs    int
	Additional  []space.Configuration
}

// NewSampledDesign resolves the number of configurations for scenario.
func NewSampledDesign(kind DesignKind, scenario *Scenario, opts DesignOptions) (*SampledDesign, error) {
	switch kind {
	case DesignRandom, DesignLatinHypercube, DesignDefault:
	default:
		return nil, fmt.Errorf("unknown initial design %q", kind)
	}
	for _, cfg := range opts.AdditionalConfigs {
		if err := scenario.ConfigSpace.Validate(cfg); err != nil {
			return nil, fmt.Errorf("additional config: %w", err)
		}
	}

	n := 0
	switch {
	case kind == DesignDefault:
		n = 1
	case opts.NConfigs != nil:
		n = *opts.NConfigs
	default:
		perHP := opts.NConfigsPerHyperparameter
		if perHP <= 0 {
			perHP = 10
		}
		n = perHP * scenario.ConfigSpace.Dim()
	}
	if opts.MaxRatio > 0 {
		n = min(n, int(math.Max(1, opts.MaxRatio*float64(scenario.NTrials))))
	}
	if n < 0 {
		n = 0
	}
	return &SampledDesign{
		Kind:        kind,
		ConfigSpace: scenario.ConfigSpace,
		NConfigs:    n,
		Additional:  opts.AdditionalConfigs,
	}, nil
}

// Select returns the additional configurations followed by the generated
// ones, without duplicates.
func (d *SampledDesign) Select(rng *rand.Rand) []space.Configuration {
	var generated []space.Configuration
	switch d.Kind {
	case DesignDefault:
		if d.NConfigs > 0 {
			generated = []space.Configuration{d.ConfigSpace.Default()}
		}
	case DesignLatinHypercube:
		generated = latinHypercube(d.ConfigSpace, d.NConfigs, rng)
	default:
		for i := 0; i < d.NConfigs; i++ {
			generated = append(generated, d.ConfigSpace.Sample(rng))
		}
	}

	seen := map[string]bool{}
	var out []space.Configuration
	for _, cfg := range append(append([]space.Configuration{}, d.Additional...), generated...) {
		if k := cfg.Key(); !seen[k] {
			seen[k] = true
			out = append(out, cfg)
		}
	}
	return out
}

func latinHypercube(cs *space.Space, n int, rng *rand.Rand) []space.Configuration {
	if n <= 0 {
		return nil
	}
	dim := cs.Dim()
	vecs := make([][]float64, n)
	for i := range vecs {
		vecs[i] = make([]float64, dim)
	}
	for d := 0; d < dim; d++ {
		for i, stratum := range rng.Perm(n) {
			vecs[i][d] = (float64(stratum) + rng.Float64()) / float64(n)
		}
	}
	return decodeAll(cs, vecs)
}
