package config

import (
	"fmt"

	"github.com/cwbudde/hypersmac/internal/registry"
)

const (
	targetKey  = "_target_"
	partialKey = "_partial_"
)

// Instantiate returns a copy of tree where every mapping carrying `_target_`
// is replaced by the object its class constructs, or by a *registry.Partial
// when `_partial_: true` is set. Mappings are instantiated depth first, so a
// constructor receives already-built objects for nested targets. Plain
// mappings nested inside constructor arguments, including inside lists, are
// passed as map[string]any.
func Instantiate(tree *Map, reg *registry.Registry) (*Map, error) {
	out := NewMap()
	for _, k := range tree.keys {
		v, err := instantiate(tree.values[k], reg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out.Set(k, v)
	}
	return out, nil
}

func instantiate(v any, reg *registry.Registry) (any, error) {
	switch t := v.(type) {
	case *Map:
		if !t.Has(targetKey) {
			return Instantiate(t, reg)
		}
		return instantiateTarget(t, reg)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			rv, err := instantiate(e, reg)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = rv
		}
		return out, nil
	default:
		return v, nil
	}
}

func instantiateTarget(m *Map, reg *registry.Registry) (any, error) {
	raw, _ := m.Get(targetKey)
	var class *registry.Class
	switch target := raw.(type) {
	case string:
		c, err := reg.Lookup(target)
		if err != nil {
			return nil, err
		}
		class = c
	case *registry.Class:
		class = target
	default:
		return nil, fmt.Errorf("%s must be a class path, got %T", targetKey, raw)
	}

	partial := false
	if p, ok := m.Get(partialKey); ok {
		b, ok := p.(bool)
		if !ok {
			return nil, fmt.Errorf("%s must be a boolean, got %T", partialKey, p)
		}
		partial = b
	}

	kw := registry.Kwargs{}
	for _, k := range m.keys {
		if k == targetKey || k == partialKey {
			continue
		}
		v, err := instantiate(m.values[k], reg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		kw[k] = plain(v)
	}

	if partial {
		return registry.NewPartial(class, kw), nil
	}
	return class.Call(kw)
}
