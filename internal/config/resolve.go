package config

import (
	"fmt"
	"strings"
	"sync"
)

// ResolverFunc computes the value of a `${name:arg1,arg2}` interpolation.
type ResolverFunc func(args ...string) (any, error)

// Resolvers is a named set of ResolverFunc.
type Resolvers struct {
	mu  sync.RWMutex
	fns map[string]ResolverFunc
}

// NewResolvers returns an empty resolver set.
func NewResolvers() *Resolvers {
	return &Resolvers{fns: make(map[string]ResolverFunc)}
}

// Register adds fn under name, replacing any previous registration.
func (r *Resolvers) Register(name string, fn ResolverFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fns[name] = fn
}

func (r *Resolvers) lookup(name string) (ResolverFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.fns[name]
	return fn, ok
}

const maxInterpolationDepth = 16

// Resolve returns a copy of tree with every interpolation replaced.
//
// A string whose whole content is `${name:args}` is replaced by the value the
// named resolver returns. `${a.b.c}` is replaced by the value at that path of
// the tree. Interpolations nested inside resolver arguments are resolved first.
func (r *Resolvers) Resolve(tree *Map) (*Map, error) {
	v, err := r.resolveValue(tree, tree, 0)
	if err != nil {
		return nil, err
	}
	return v.(*Map), nil
}

func (r *Resolvers) resolveValue(root *Map, v any, depth int) (any, error) {
	if depth > maxInterpolationDepth {
		return nil, fmt.Errorf("interpolation nested deeper than %d levels", maxInterpolationDepth)
	}
	switch t := v.(type) {
	case *Map:
		out := NewMap()
		for _, k := range t.keys {
			rv, err := r.resolveValue(root, t.values[k], depth)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out.Set(k, rv)
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			rv, err := r.resolveValue(root, e, depth)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = rv
		}
		return out, nil
	case string:
		expr, ok := interpolation(t)
		if !ok {
			return t, nil
		}
		return r.evaluate(root, expr, depth+1)
	default:
		return v, nil
	}
}

func (r *Resolvers) evaluate(root *Map, expr string, depth int) (any, error) {
	name, rawArgs, isCall := strings.Cut(expr, ":")
	if !isCall {
		target, ok := root.Lookup(strings.Split(strings.TrimSpace(expr), "."))
		if !ok {
			return nil, fmt.Errorf("interpolation key %q not found", expr)
		}
		return r.resolveValue(root, target, depth)
	}

	fn, ok := r.lookup(strings.TrimSpace(name))
	if !ok {
		return nil, fmt.Errorf("unknown resolver %q", name)
	}
	var args []string
	for _, a := range splitArgs(rawArgs) {
		rv, err := r.resolveValue(root, a, depth)
		if err != nil {
			return nil, err
		}
		s, ok := rv.(string)
		if !ok {
			s = fmt.Sprint(rv)
		}
		args = append(args, s)
	}
	return fn(args...)
}

// interpolation reports whether s is exactly one `${...}` expression.
func interpolation(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return "", false
	}
	inner := s[2 : len(s)-1]
	depth := 0
	for i := 0; i < len(inner); i++ {
		switch {
		case strings.HasPrefix(inner[i:], "${"):
			depth++
			i++
		case inner[i] == '}':
			if depth == 0 {
				return "", false
			}
			depth--
		}
	}
	return inner, depth == 0
}

// splitArgs splits on commas that are not inside a nested interpolation.
func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch {
		case strings.HasPrefix(s[i:], "${"):
			depth++
			i++
		case s[i] == '}':
			depth--
		case s[i] == ',' && depth == 0:
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	return append(out, strings.TrimSpace(s[start:]))
}
