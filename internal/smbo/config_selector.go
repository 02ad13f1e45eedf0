package smbo

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/cwbudde/hypersmac/internal/space"
)

// ConfigSelector produces the configuration sequence: initial design first,
// then model-guided proposals interleaved with random ones.
type ConfigSelector struct {
	Scenario *Scenario
	// RetrainAfter is the number of proposals taken from one maximization
	// before the model is retrained.
	RetrainAfter int
	// Retries bounds the attempts to find a configuration not yet evaluated.
	Retries int
	// MinTrials is the number of finished trials required to train the model.
	MinTrials int

	initialDesign InitialDesign
	model         Model
	maximizer     AcquisitionMaximizer
	randomDesign  RandomDesign
	rng           *rand.Rand

	initial     []space.Configuration
	initialDone bool
	queue       []space.Configuration
	taken       int
	iteration   int
}

// NewConfigSelector returns a selector with the given limits. Non-positive
// values fall back to retrain_after=8, retries=16, min_trials=1.
func NewConfigSelector(scenario *Scenario, retrainAfter, retries, minTrials int) *ConfigSelector {
	if retrainAfter <= 0 {
		retrainAfter = 8
	}
	if retries <= 0 {
		retries = 16
	}
	if minTrials <= 0 {
		minTrials = 1
	}
	return &ConfigSelector{Scenario: scenario, RetrainAfter: retrainAfter, Retries: retries, MinTrials: minTrials}
}

// bind attaches the engine components. A nil maximizer or model makes the
// selector purely random after the initial design.
func (s *ConfigSelector) bind(design InitialDesign, model Model, maximizer AcquisitionMaximizer, rd RandomDesign, rng *rand.Rand) {
	s.initialDesign = design
	s.model = model
	s.maximizer = maximizer
	s.randomDesign = rd
	s.rng = rng
}

// Next returns a configuration that has not been proposed before whenever
// one can be found within Retries attempts.
func (s *ConfigSelector) Next(rh *RunHistory) (space.Configuration, error) {
	if s.rng == nil {
		return nil, errors.New("config selector is not bound to an engine")
	}
	if !s.initialDone {
		if s.initialDesign != nil {
			s.initial = s.initialDesign.Select(s.rng)
		}
		s.initialDone = true
	}
	for len(s.initial) > 0 {
		cfg := s.initial[0]
		s.initial = s.initial[1:]
		if !rh.Contains(cfg) {
			return cfg, nil
		}
	}

	s.iteration++
	if s.maximizer == nil || s.model == nil || rh.Len() < s.MinTrials {
		return s.random(rh), nil
	}
	if s.randomDesign != nil && s.randomDesign.Check(s.iteration, s.rng) {
		return s.random(rh), nil
	}

	for attempt := 0; attempt < s.Retries; attempt++ {
		if len(s.queue) == 0 || s.taken >= s.RetrainAfter {
			if err := s.propose(rh); err != nil {
				return nil, err
			}
		}
		if len(s.queue) == 0 {
			break
		}
		cfg := s.queue[0]
		s.queue = s.queue[1:]
		s.taken++
		if !rh.Contains(cfg) {
			return cfg, nil
		}
	}
	return s.random(rh), nil
}

func (s *ConfigSelector) propose(rh *RunHistory) error {
	s.queue = nil
	s.taken = 0

	X, y := rh.TrainingData(s.Scenario.ConfigSpace)
	if len(y) == 0 {
		return nil
	}
	if err := s.model.Train(X, y); err != nil {
		return fmt.Errorf("train model: %w", err)
	}
	_, eta, _ := rh.Incumbent()
	s.maximizer.AcquisitionFunction().Update(s.model, eta)

	queue, err := s.maximizer.Maximize(rh.Best(10), s.RetrainAfter, s.rng)
	if err != nil {
		return fmt.Errorf("maximize acquisition: %w", err)
	}
	s.queue = queue
	return nil
}

func (s *ConfigSelector) random(rh *RunHistory) space.Configuration {
	var cfg space.Configuration
	for attempt := 0; attempt < s.Retries; attempt++ {
		cfg = s.Scenario.ConfigSpace.Sample(s.rng)
		if !rh.Contains(cfg) {
			break
		}
	}
	return cfg
}
