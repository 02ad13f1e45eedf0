package smbo

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cwbudde/hypersmac/internal/registry"
	"github.com/cwbudde/hypersmac/internal/space"
	"github.com/cwbudde/hypersmac/internal/store"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// Scenario bundles the search space with the run limits and metadata the
// engine needs.
type Scenario struct {
	ConfigSpace *space.Space `mapstructure:"-"`

	// Name identifies the run inside OutputDirectory. Defaults to a random id.
	Name string `mapstructure:"name"`

	// OutputDirectory receives <name>/<seed>/runhistory.json and trace.jsonl.
	// Empty disables persistence.
	OutputDirectory string `mapstructure:"output_directory"`

	Deterministic bool `mapstructure:"deterministic"`

	NTrials int `mapstructure:"n_trials" validate:"gte=1"`

	// WalltimeLimit in seconds; 0 means unlimited.
	WalltimeLimit float64 `mapstructure:"walltime_limit" validate:"gte=0"`

	MinBudget *float64 `mapstructure:"min_budget" validate:"omitempty,gt=0"`
	MaxBudget *float64 `mapstructure:"max_budget" validate:"omitempty,gt=0"`

	Seed int `mapstructure:"seed" validate:"gte=0"`

	NWorkers int `mapstructure:"n_workers" validate:"gte=1"`
}

// ScenarioError reports an invalid scenario field.
type ScenarioError struct {
	Field  string
	Reason string
}

func (e *ScenarioError) Error() string {
	return "invalid scenario: " + e.Field + " " + e.Reason
}

// NewScenario decodes keyword arguments into a validated Scenario.
// Unknown keywords are rejected.
func NewScenario(cs *space.Space, kw map[string]any) (*Scenario, error) {
	if cs == nil {
		return nil, &ScenarioError{Field: "configspace", Reason: "is required"}
	}
	s := &Scenario{
		ConfigSpace: cs,
		NTrials:     100,
		NWorkers:    1,
	}
	if err := registry.Decode(registry.Kwargs(kw), s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if s.Name == "" {
		s.Name = "run-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks field constraints.
func (s *Scenario) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return &ScenarioError{Field: e.Field(), Reason: "failed " + e.Tag() + " " + e.Param()}
		}
		return err
	}
	if (s.MinBudget == nil) != (s.MaxBudget == nil) {
		return &ScenarioError{Field: "MinBudget", Reason: "must be set together with MaxBudget"}
	}
	if s.MinBudget != nil && *s.MinBudget > *s.MaxBudget {
		return &ScenarioError{Field: "MinBudget", Reason: "exceeds MaxBudget"}
	}
	return nil
}

// RunDirectory is <output_directory>/<name>/<seed>, or "" without an output directory.
func (s *Scenario) RunDirectory() string {
	if s.OutputDirectory == "" {
		return ""
	}
	return filepath.Join(s.OutputDirectory, s.Name, strconv.Itoa(s.Seed))
}

// Info returns the persisted form of the scenario.
func (s *Scenario) Info() store.ScenarioInfo {
	return store.ScenarioInfo{
		Name:            s.Name,
		Seed:            s.Seed,
		Deterministic:   s.Deterministic,
		NTrials:         s.NTrials,
		OutputDirectory: s.OutputDirectory,
		MinBudget:       s.MinBudget,
		MaxBudget:       s.MaxBudget,
	}
}
