package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cwbudde/hypersmac/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapKeepsInsertionOrder(t *testing.T) {
	m := MapOf("z", 1, "a", 2, "m", 3)
	assert.Equal(t, []string{"z", "a", "m"}, m.Keys())
	assert.Equal(t, []any{1, 2, 3}, m.Values())

	m.Set("a", 20)
	assert.Equal(t, []string{"z", "a", "m"}, m.Keys())

	m.Delete("z")
	assert.Equal(t, []string{"a", "m"}, m.Keys())
	assert.False(t, m.Has("z"))
	assert.Equal(t, 2, m.Len())

	var nilMap *Map
	assert.Equal(t, 0, nilMap.Len())
	_, ok := nilMap.Get("a")
	assert.False(t, ok)
}

func TestCloneIsDeep(t *testing.T) {
	m := MapOf("scenario", MapOf("seed", 1), "list", []any{MapOf("a", 1)})
	c := m.Clone()

	inner, _ := c.Get("scenario")
	inner.(*Map).Set("seed", 2)

	orig, _ := m.Lookup([]string{"scenario", "seed"})
	assert.Equal(t, 1, orig)
}

func TestParsePreservesOrder(t *testing.T) {
	tree, err := Parse([]byte(`
scenario:
  deterministic: true
  n_trials: 10
callbacks:
  zeta: one
  alpha: two
list: [1, 2.5, x]
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"scenario", "callbacks", "list"}, tree.Keys())

	cbs, _ := tree.Get("callbacks")
	assert.Equal(t, []string{"zeta", "alpha"}, cbs.(*Map).Keys())

	list, _ := tree.Get("list")
	assert.Equal(t, []any{1, 2.5, "x"}, list)

	det, _ := tree.Lookup([]string{"scenario", "deterministic"})
	assert.Equal(t, true, det)
}

func TestParseRejectsNonMappingRoot(t *testing.T) {
	_, err := Parse([]byte("- a\n- b\n"))
	assert.Error(t, err)

	tree, err := Parse([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, 0, tree.Len())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scenario: {seed: 3}\n"), 0644))

	tree, err := Load(path)
	require.NoError(t, err)
	seed, ok := tree.Lookup([]string{"scenario", "seed"})
	assert.True(t, ok)
	assert.Equal(t, 3, seed)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	r := NewResolvers()
	r.Register("upper", func(args ...string) (any, error) {
		return strings.ToUpper(strings.Join(args, "+")), nil
	})
	r.Register("fail", func(args ...string) (any, error) {
		return nil, errors.New("nope")
	})

	tree := MapOf(
		"paths", MapOf("warmstart", "runs/log.csv"),
		"plain", "hello",
		"ref", "${paths.warmstart}",
		"call", "${upper:a, b}",
		"nested", "${upper:${paths.warmstart},c}",
		"list", []any{"${upper:x}"},
	)
	out, err := r.Resolve(tree)
	require.NoError(t, err)

	get := func(k string) any { v, _ := out.Get(k); return v }
	assert.Equal(t, "hello", get("plain"))
	assert.Equal(t, "runs/log.csv", get("ref"))
	assert.Equal(t, "A+B", get("call"))
	assert.Equal(t, "RUNS/LOG.CSV+C", get("nested"))
	assert.Equal(t, []any{"X"}, get("list"))

	// The input tree is untouched.
	orig, _ := tree.Get("call")
	assert.Equal(t, "${upper:a, b}", orig)

	_, err = r.Resolve(MapOf("x", "${missing:1}"))
	assert.Error(t, err)
	_, err = r.Resolve(MapOf("x", "${fail:1}"))
	assert.Error(t, err)
	_, err = r.Resolve(MapOf("x", "${no.such.key}"))
	assert.Error(t, err)
	_, err = r.Resolve(MapOf("a", "${b}", "b", "${a}"))
	assert.Error(t, err)
}

func TestInterpolationMustCoverWholeString(t *testing.T) {
	r := NewResolvers()
	out, err := r.Resolve(MapOf("x", "prefix ${a}", "y", "${a}${b}"))
	require.NoError(t, err)
	x, _ := out.Get("x")
	y, _ := out.Get("y")
	assert.Equal(t, "prefix ${a}", x)
	assert.Equal(t, "${a}${b}", y)
}

type probe struct {
	Level int
	Inner any
	Opts  map[string]any
}

func TestInstantiate(t *testing.T) {
	reg := registry.New()
	reg.Register("test.Probe", func(kw registry.Kwargs) (any, error) {
		p := &probe{Inner: kw["inner"]}
		if l, ok := kw["level"].(int); ok {
			p.Level = l
		}
		if o, ok := kw["opts"].(map[string]any); ok {
			p.Opts = o
		}
		return p, nil
	})

	tree := MapOf(
		"obj", MapOf("_target_", "test.Probe", "level", 2, "inner", MapOf("_target_", "test.Probe", "level", 1), "opts", MapOf("k", "v")),
		"part", MapOf("_target_", "test.Probe", "_partial_", true, "level", 5),
		"plain", MapOf("a", 1),
	)
	out, err := Instantiate(tree, reg)
	require.NoError(t, err)

	obj, _ := out.Get("obj")
	require.IsType(t, &probe{}, obj)
	assert.Equal(t, 2, obj.(*probe).Level)
	assert.Equal(t, 1, obj.(*probe).Inner.(*probe).Level)
	assert.Equal(t, map[string]any{"k": "v"}, obj.(*probe).Opts)

	part, _ := out.Get("part")
	require.IsType(t, &registry.Partial{}, part)
	assert.Equal(t, 5, part.(*registry.Partial).Keywords["level"])

	plain, _ := out.Get("plain")
	assert.IsType(t, &Map{}, plain)

	_, err = Instantiate(MapOf("x", MapOf("_target_", "test.Nope")), reg)
	assert.ErrorIs(t, err, registry.ErrClassNotFound)
	_, err = Instantiate(MapOf("x", MapOf("_target_", "test.Probe", "_partial_", "yes")), reg)
	assert.Error(t, err)
}
