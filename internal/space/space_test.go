package space

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func braninSpace(t *testing.T) *Space {
	t.Helper()
	s, err := New(
		Hyperparameter{Name: "x1", Type: KindFloat, Lower: 0, Upper: 15},
		Hyperparameter{Name: "x0", Type: KindFloat, Lower: -5, Upper: 10},
	)
	require.NoError(t, err)
	return s
}

func TestNewSortsByName(t *testing.T) {
	s := braninSpace(t)
	assert.Equal(t, []string{"x0", "x1"}, s.Names())
	assert.Equal(t, 2, s.Dim())
}

func TestNewRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		hp   Hyperparameter
	}{
		{"empty name", Hyperparameter{Type: KindFloat, Upper: 1}},
		{"inverted bounds", Hyperparameter{Name: "a", Type: KindFloat, Lower: 2, Upper: 1}},
		{"log non-positive", Hyperparameter{Name: "a", Type: KindFloat, Lower: 0, Upper: 1, Log: true}},
		{"no choices", Hyperparameter{Name: "a", Type: KindCategorical}},
		{"unknown type", Hyperparameter{Name: "a", Type: "normal_float"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.hp)
			assert.Error(t, err)
		})
	}

	_, err := New(Hyperparameter{Name: "a", Type: KindConstant, Value: 1}, Hyperparameter{Name: "a", Type: KindConstant, Value: 2})
	assert.Error(t, err)
}

func TestVectorRoundTrip(t *testing.T) {
	s, err := New(
		Hyperparameter{Name: "lr", Type: KindFloat, Lower: 1e-4, Upper: 1, Log: true},
		Hyperparameter{Name: "layers", Type: KindInteger, Lower: 1, Upper: 8},
		Hyperparameter{Name: "opt", Type: KindCategorical, Choices: []any{"adam", "sgd", "rmsprop"}},
		Hyperparameter{Name: "arch", Type: KindConstant, Value: "mlp"},
	)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		cfg := s.Sample(rng)
		require.NoError(t, s.Validate(cfg))
		again := s.FromVector(s.ToVector(cfg))
		assert.Equal(t, cfg["layers"], again["layers"])
		assert.Equal(t, cfg["opt"], again["opt"])
		assert.Equal(t, "mlp", again["arch"])
		assert.InDelta(t, cfg["lr"].(float64), again["lr"].(float64), 1e-9)
	}
}

func TestValidate(t *testing.T) {
	s := braninSpace(t)
	assert.NoError(t, s.Validate(Configuration{"x0": 0.0, "x1": 1}))
	assert.True(t, errors.Is(s.Validate(Configuration{"x0": 11.0, "x1": 1.0}), ErrInvalidValue))
	assert.True(t, errors.Is(s.Validate(Configuration{"x0": 1.0}), ErrInvalidValue))
	assert.True(t, errors.Is(s.Validate(Configuration{"x0": 1.0, "x1": 1.0, "x2": 0.0}), ErrInvalidValue))
	assert.ErrorIs(t, s.Validate(Configuration{"x0": math.NaN(), "x1": 1.0}), ErrInvalidValue)
	assert.ErrorIs(t, s.Validate(Configuration{"x0": 1.0, "x1": math.Inf(1)}), ErrInvalidValue)
}

func TestDefault(t *testing.T) {
	s, err := New(
		Hyperparameter{Name: "a", Type: KindFloat, Lower: 0, Upper: 10},
		Hyperparameter{Name: "b", Type: KindFloat, Lower: 0, Upper: 10, Default: 3.0},
		Hyperparameter{Name: "c", Type: KindCategorical, Choices: []any{"x", "y"}},
	)
	require.NoError(t, err)
	assert.Equal(t, Configuration{"a": 5.0, "b": 3.0, "c": "x"}, s.Default())
}

func TestConfigurationKeyIsCanonical(t *testing.T) {
	a := Configuration{"x0": 1.5, "x1": 2.0}
	b := Configuration{"x1": 2.0, "x0": 1.5}
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), Configuration{"x0": 1.5, "x1": 2.5}.Key())
}

func TestParse(t *testing.T) {
	doc := []byte(`
hyperparameters:
  x0:
    type: uniform_float
    lower: -5
    upper: 10
  batch:
    type: uniform_int
    lower: 16
    upper: 256
    log: true
  act:
    type: categorical
    choices: [relu, tanh]
`)
	s, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"act", "batch", "x0"}, s.Names())

	hp, ok := s.Get("x0")
	require.True(t, ok)
	assert.Equal(t, -5.0, hp.Lower)
	assert.Equal(t, KindFloat, hp.Type)

	_, err = Parse([]byte("hyperparameters:\n  x: {type: uniform_float, lower: 0, upper: 1, bogus: 1}\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("seed: 1\n"))
	assert.Error(t, err)
}

func TestFromRow(t *testing.T) {
	s, err := New(
		Hyperparameter{Name: "x0", Type: KindFloat, Lower: -5, Upper: 10},
		Hyperparameter{Name: "n", Type: KindInteger, Lower: 1, Upper: 10},
		Hyperparameter{Name: "act", Type: KindCategorical, Choices: []any{"relu", "tanh"}, Default: "relu"},
	)
	require.NoError(t, err)

	cfg, err := FromRow(map[string]string{"x0": "2.5", "n": "3.0", "act": "tanh", "performance": "0.3"}, s)
	require.NoError(t, err)
	assert.Equal(t, Configuration{"x0": 2.5, "n": 3, "act": "tanh"}, cfg)

	cfg, err = FromRow(map[string]string{"x0": "2.5", "n": "3"}, s)
	require.NoError(t, err)
	assert.Equal(t, "relu", cfg["act"])

	_, err = FromRow(map[string]string{"n": "3"}, s)
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = FromRow(map[string]string{"x0": "abc", "n": "3"}, s)
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = FromRow(map[string]string{"x0": "20", "n": "3"}, s)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestFromRowRejectsNonFiniteAndFractional(t *testing.T) {
	s, err := New(
		Hyperparameter{Name: "lr", Type: KindFloat, Lower: 0, Upper: 1},
		Hyperparameter{Name: "n", Type: KindInteger, Lower: 1, Upper: 10},
	)
	require.NoError(t, err)

	rows := map[string]map[string]string{
		"nan float":      {"lr": "NaN", "n": "3"},
		"inf float":      {"lr": "+Inf", "n": "3"},
		"nan integer":    {"lr": "0.5", "n": "nan"},
		"inf integer":    {"lr": "0.5", "n": "-Inf"},
		"fractional int": {"lr": "0.5", "n": "3.7"},
	}
	for name, row := range rows {
		t.Run(name, func(t *testing.T) {
			cfg, err := FromRow(row, s)
			assert.ErrorIs(t, err, ErrInvalidValue)
			assert.Nil(t, cfg)
		})
	}

	cfg, err := FromRow(map[string]string{"lr": "0.5", "n": "3.0"}, s)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg["n"])
}
