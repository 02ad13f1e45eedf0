// Package registry maps dotted class paths to constructors so that a
// declarative configuration tree can name the sub-policies it wants.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// ErrClassNotFound is returned when a class path has not been registered.
var ErrClassNotFound = errors.New("class not found")

// Kwargs holds keyword arguments passed to a constructor.
type Kwargs map[string]any

// Constructor builds an object from keyword arguments.
type Constructor func(kw Kwargs) (any, error)

// Class is a named, instantiable constructor.
type Class struct {
	Path string
	New  Constructor
}

// Call instantiates the class.
func (c *Class) Call(kw Kwargs) (any, error) {
	obj, err := c.New(kw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Path, err)
	}
	return obj, nil
}

// Registry manages the available classes.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]*Class
}

// New creates a new empty registry.
func New() *Registry {
	return &Registry{
		classes: make(map[string]*Class),
	}
}

// Register adds a class to the registry.
// If a class with the same path exists, it is overwritten.
func (r *Registry) Register(path string, fn Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[path] = &Class{Path: path, New: fn}
}

// Lookup returns the class registered under path.
func (r *Registry) Lookup(path string) (*Class, error) {
	r.mu.RLock()
	c, ok := r.classes[path]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, path)
	}
	return c, nil
}

// Paths lists every registered class path in sorted order.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make([]string, 0, len(r.classes))
	for p := range r.classes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Partial is a class with some keyword arguments already bound.
type Partial struct {
	Class    *Class
	Keywords Kwargs
}

// NewPartial binds keywords to a class.
func NewPartial(c *Class, kw Kwargs) *Partial {
	return &Partial{Class: c, Keywords: kw}
}

// Call instantiates the class with the bound keywords merged with kw.
// Call-time keywords win over bound ones.
func (p *Partial) Call(kw Kwargs) (any, error) {
	merged := make(Kwargs, len(p.Keywords)+len(kw))
	for k, v := range p.Keywords {
		merged[k] = v
	}
	for k, v := range kw {
		merged[k] = v
	}
	return p.Class.Call(merged)
}

// Keyword returns a bound keyword.
func (p *Partial) Keyword(name string) (any, bool) {
	v, ok := p.Keywords[name]
	return v, ok
}

// Without returns a copy of kw minus the named keys. Constructors use it to
// split runtime objects from the scalar options they decode.
func (kw Kwargs) Without(names ...string) Kwargs {
	out := make(Kwargs, len(kw))
	for k, v := range kw {
		out[k] = v
	}
	for _, n := range names {
		delete(out, n)
	}
	return out
}

// Decode fills out (a pointer to a struct with mapstructure tags) from kw.
// Numeric and string scalars are converted weakly; unknown keys are an error.
func Decode(kw Kwargs, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any(kw)); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// Arg fetches a typed runtime argument from kw.
func Arg[T any](kw Kwargs, name string) (T, error) {
	var zero T
	v, ok := kw[name]
	if !ok {
		return zero, fmt.Errorf("missing argument %q", name)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("argument %q: expected %T, got %T", name, zero, v)
	}
	return t, nil
}
