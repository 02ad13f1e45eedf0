package space

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Kind identifies the value domain of a hyperparameter.
type Kind string

const (
	KindFloat       Kind = "uniform_float"
	KindInteger     Kind = "uniform_int"
	KindCategorical Kind = "categorical"
	KindConstant    Kind = "constant"
)

// ErrInvalidValue is returned when a value falls outside a hyperparameter's domain.
var ErrInvalidValue = errors.New("invalid hyperparameter value")

// Hyperparameter describes one dimension of the search space.
type Hyperparameter struct {
	Name    string  `mapstructure:"name" json:"name"`
	Type    Kind    `mapstructure:"type" json:"type"`
	Lower   float64 `mapstructure:"lower" json:"lower,omitempty"`
	Upper   float64 `mapstructure:"upper" json:"upper,omitempty"`
	Log     bool    `mapstructure:"log" json:"log,omitempty"`
	Choices []any   `mapstructure:"choices" json:"choices,omitempty"`
	Value   any     `mapstructure:"value" json:"value,omitempty"`
	Default any     `mapstructure:"default" json:"default,omitempty"`
}

func (h Hyperparameter) validate() error {
	if h.Name == "" {
		return fmt.Errorf("hyperparameter name cannot be empty")
	}
	switch h.Type {
	case KindFloat, KindInteger:
		if h.Upper < h.Lower {
			return fmt.Errorf("hyperparameter %s: upper %v below lower %v", h.Name, h.Upper, h.Lower)
		}
		if h.Log && h.Lower <= 0 {
			return fmt.Errorf("hyperparameter %s: log scale needs a positive lower bound", h.Name)
		}
	case KindCategorical:
		if len(h.Choices) == 0 {
			return fmt.Errorf("hyperparameter %s: categorical needs at least one choice", h.Name)
		}
	case KindConstant:
		if h.Value == nil {
			return fmt.Errorf("hyperparameter %s: constant needs a value", h.Name)
		}
	default:
		return fmt.Errorf("hyperparameter %s: unknown type %q", h.Name, h.Type)
	}
	return nil
}

// Space is an ordered set of hyperparameters. Dimensions are sorted by name so
// that vector encodings are stable across processes.
type Space struct {
	params []Hyperparameter
	index  map[string]int
}

// New validates the hyperparameters and builds a Space.
func New(params ...Hyperparameter) (*Space, error) {
	sorted := make([]Hyperparameter, len(params))
	copy(sorted, params)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	index := make(map[string]int, len(sorted))
	for i, p := range sorted {
		if err := p.validate(); err != nil {
			return nil, err
		}
		if _, dup := index[p.Name]; dup {
			return nil, fmt.Errorf("duplicate hyperparameter: %s", p.Name)
		}
		index[p.Name] = i
	}
	return &Space{params: sorted, index: index}, nil
}

// Dim returns the number of hyperparameters.
func (s *Space) Dim() int {
	return len(s.params)
}

// Names returns the hyperparameter names in encoding order.
func (s *Space) Names() []string {
	names := make([]string, len(s.params))
	for i, p := range s.params {
		names[i] = p.Name
	}
	return names
}

// Hyperparameters returns a copy of the hyperparameter list.
func (s *Space) Hyperparameters() []Hyperparameter {
	out := make([]Hyperparameter, len(s.params))
	copy(out, s.params)
	return out
}

// Get returns the hyperparameter with the given name.
func (s *Space) Get(name string) (Hyperparameter, bool) {
	i, ok := s.index[name]
	if !ok {
		return Hyperparameter{}, false
	}
	return s.params[i], true
}

// Sample draws a uniformly random configuration.
func (s *Space) Sample(rng *rand.Rand) Configuration {
	vec := make([]float64, len(s.params))
	for i := range vec {
		vec[i] = rng.Float64()
	}
	return s.FromVector(vec)
}

// Default returns the configuration made of every hyperparameter's default.
// Numeric hyperparameters without a default use the midpoint of their range,
// categoricals their first choice.
func (s *Space) Default() Configuration {
	cfg := make(Configuration, len(s.params))
	for _, p := range s.params {
		if p.Default != nil {
			cfg[p.Name] = p.Default
			continue
		}
		switch p.Type {
		case KindFloat, KindInteger:
			cfg[p.Name] = p.decode(0.5)
		case KindCategorical:
			cfg[p.Name] = p.Choices[0]
		case KindConstant:
			cfg[p.Name] = p.Value
		}
	}
	return cfg
}

// ToVector encodes a configuration into the unit cube, one coordinate per
// hyperparameter in Names order. Values that cannot be encoded map to 0.
func (s *Space) ToVector(cfg Configuration) []float64 {
	vec := make([]float64, len(s.params))
	for i, p := range s.params {
		vec[i] = p.encode(cfg[p.Name])
	}
	return vec
}

// FromVector decodes a unit-cube point. Coordinates are clamped to [0, 1].
func (s *Space) FromVector(vec []float64) Configuration {
	cfg := make(Configuration, len(s.params))
	for i, p := range s.params {
		x := 0.0
		if i < len(vec) {
			x = clamp01(vec[i])
		}
		cfg[p.Name] = p.decode(x)
	}
	return cfg
}

// Validate reports whether every hyperparameter has a legal value in cfg.
func (s *Space) Validate(cfg Configuration) error {
	for _, p := range s.params {
		v, ok := cfg[p.Name]
		if !ok {
			return fmt.Errorf("%w: %s is missing", ErrInvalidValue, p.Name)
		}
		if err := p.check(v); err != nil {
			return err
		}
	}
	for name := range cfg {
		if _, ok := s.index[name]; !ok {
			return fmt.Errorf("%w: unknown hyperparameter %s", ErrInvalidValue, name)
		}
	}
	return nil
}

func (h Hyperparameter) check(v any) error {
	switch h.Type {
	case KindFloat, KindInteger:
		f, ok := toFloat(v)
		if !ok {
			return fmt.Errorf("%w: %s expects a number, got %T", ErrInvalidValue, h.Name, v)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %s=%v is not finite", ErrInvalidValue, h.Name, f)
		}
		if f < h.Lower || f > h.Upper {
			return fmt.Errorf("%w: %s=%v outside [%v, %v]", ErrInvalidValue, h.Name, f, h.Lower, h.Upper)
		}
		if h.Type == KindInteger && f != math.Trunc(f) {
			return fmt.Errorf("%w: %s expects an integer, got %v", ErrInvalidValue, h.Name, f)
		}
	case KindCategorical:
		if h.choiceIndex(v) < 0 {
			return fmt.Errorf("%w: %s=%v is not a valid choice", ErrInvalidValue, h.Name, v)
		}
	case KindConstant:
		if fmt.Sprint(v) != fmt.Sprint(h.Value) {
			return fmt.Errorf("%w: %s must be %v", ErrInvalidValue, h.Name, h.Value)
		}
	}
	return nil
}

func (h Hyperparameter) encode(v any) float64 {
	switch h.Type {
	case KindFloat, KindInteger:
		f, ok := toFloat(v)
		if !ok || h.Upper == h.Lower {
			return 0
		}
		if h.Log {
			return clamp01((math.Log(f) - math.Log(h.Lower)) / (math.Log(h.Upper) - math.Log(h.Lower)))
		}
		return clamp01((f - h.Lower) / (h.Upper - h.Lower))
	case KindCategorical:
		i := h.choiceIndex(v)
		if i < 0 || len(h.Choices) == 1 {
			return 0
		}
		return float64(i) / float64(len(h.Choices)-1)
	}
	return 0
}

func (h Hyperparameter) decode(x float64) any {
	switch h.Type {
	case KindFloat:
		if h.Log {
			return math.Exp(math.Log(h.Lower) + x*(math.Log(h.Upper)-math.Log(h.Lower)))
		}
		return h.Lower + x*(h.Upper-h.Lower)
	case KindInteger:
		var f float64
		if h.Log {
			f = math.Exp(math.Log(h.Lower) + x*(math.Log(h.Upper)-math.Log(h.Lower)))
		} else {
			f = h.Lower + x*(h.Upper-h.Lower)
		}
		return int(math.Min(h.Upper, math.Max(h.Lower, math.Round(f))))
	case KindCategorical:
		i := int(math.Round(x * float64(len(h.Choices)-1)))
		return h.Choices[i]
	case KindConstant:
		return h.Value
	}
	return nil
}

func (h Hyperparameter) choiceIndex(v any) int {
	want := fmt.Sprint(v)
	for i, c := range h.Choices {
		if fmt.Sprint(c) == want {
			return i
		}
	}
	return -1
}

// Configuration is a point in a Space, keyed by hyperparameter name.
type Configuration map[string]any

// Key returns a canonical string for the configuration, usable as a map key.
func (c Configuration) Key() string {
	// encoding/json sorts map keys, which is all the canonicalisation needed.
	data, err := json.Marshal(map[string]any(c))
	if err != nil {
		return fmt.Sprint(map[string]any(c))
	}
	return string(data)
}

// Clone returns a shallow copy.
func (c Configuration) Clone() Configuration {
	out := make(Configuration, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}
