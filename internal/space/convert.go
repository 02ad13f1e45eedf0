package space

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RowConverter turns one header-keyed tabular row into a configuration.
type RowConverter func(row map[string]string, s *Space) (Configuration, error)

// FromRow is the default RowConverter. Columns are matched to hyperparameters by
// name; extra columns (performance, budget, ...) are ignored. A missing or empty
// column falls back to the hyperparameter default and fails if there is none.
func FromRow(row map[string]string, s *Space) (Configuration, error) {
	cfg := make(Configuration, s.Dim())
	for _, p := range s.params {
		raw, ok := row[p.Name]
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			if p.Type == KindConstant {
				cfg[p.Name] = p.Value
				continue
			}
			if p.Default == nil {
				return nil, fmt.Errorf("%w: column %s missing from row", ErrInvalidValue, p.Name)
			}
			cfg[p.Name] = p.Default
			continue
		}
		v, err := p.parse(raw)
		if err != nil {
			return nil, err
		}
		cfg[p.Name] = v
	}
	if err := s.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (h Hyperparameter) parse(raw string) (any, error) {
	switch h.Type {
	case KindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: %s=%q is not a float", ErrInvalidValue, h.Name, raw)
		}
		return f, nil
	case KindInteger:
		// Logs written by float-typed tools render integers as "3.0".
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return nil, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidValue, h.Name, raw)
		}
		return int(f), nil
	case KindCategorical:
		for _, c := range h.Choices {
			if fmt.Sprint(c) == raw {
				return c, nil
			}
		}
		return nil, fmt.Errorf("%w: %s=%q is not a valid choice", ErrInvalidValue, h.Name, raw)
	case KindConstant:
		return h.Value, nil
	}
	return nil, fmt.Errorf("%w: %s has unknown type", ErrInvalidValue, h.Name)
}
