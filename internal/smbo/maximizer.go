package smbo

import (
	"math"
	"math/rand"
	"sort"

	"github.com/cwbudde/hypersmac/internal/space"
)

// AcquisitionMaximizer proposes the configurations that score best under
// its acquisition function.
type AcquisitionMaximizer interface {
	AcquisitionFunction() AcquisitionFunction
	// Maximize returns up to n configurations, best first. previous holds
	// the best configurations evaluated so far, best first.
	Maximize(previous []space.Configuration, n int, rng *rand.Rand) ([]space.Configuration, error)
}

// Selector decides per call whether a maximizer should explore.
type Selector interface {
	Explore(rng *rand.Rand) bool
}

// SelectorProvider is implemented by maximizers that delegate the
// explore/exploit decision to a Selector.
type SelectorProvider interface {
	Selector() Selector
}

// ExposesExploreCallback is implemented by selectors that adapt from trial
// results and need a callback registered with the engine.
type ExposesExploreCallback interface {
	ExploreCallback() Callback
}

type scored struct {
	vec   []float64
	score float64
}

func rank(points []scored, n int) [][]float64 {
	sort.SliceStable(points, func(i, j int) bool { return points[i].score > points[j].score })
	if n > len(points) {
		n = len(points)
	}
	out := make([][]float64, n)
	for i := range out {
		out[i] = points[i].vec
	}
	return out
}

func decodeAll(cs *space.Space, vecs [][]float64) []space.Configuration {
	out := make([]space.Configuration, len(vecs))
	for i, v := range vecs {
		out[i] = cs.FromVector(v)
	}
	return out
}

// RandomSearch scores uniformly sampled points.
type RandomSearch struct {
	ConfigSpace *space.Space
	Acquisition AcquisitionFunction
	Challengers int
}

// NewRandomSearch returns a random search evaluating challengers points per
// call (5000 if not positive).
func NewRandomSearch(cs *space.Space, acq AcquisitionFunction, challengers int) *RandomSearch {
	if challengers <= 0 {
		challengers = 5000
	}
	return &RandomSearch{ConfigSpace: cs, Acquisition: acq, Challengers: challengers}
}

func (r *RandomSearch) AcquisitionFunction() AcquisitionFunction { return r.Acquisition }

func (r *RandomSearch) Maximize(_ []space.Configuration, n int, rng *rand.Rand) ([]space.Configuration, error) {
	return decodeAll(r.ConfigSpace, rank(r.sample(rng), n)), nil
}

func (r *RandomSearch) sample(rng *rand.Rand) []scored {
	dim := r.ConfigSpace.Dim()
	points := make([]scored, r.Challengers)
	for i := range points {
		v := make([]float64, dim)
		for d := range v {
			v[d] = rng.Float64()
		}
		points[i] = scored{vec: v, score: r.Acquisition.Evaluate(v)}
	}
	return points
}

// LocalSearch hill-climbs from the previous best configurations with
// gaussian steps in the unit cube.
type LocalSearch struct {
	ConfigSpace *space.Space
	Acquisition AcquisitionFunction
	StartPoints int
	Steps       int
	StepSize    float64
}

// NewLocalSearch returns a local search with 10 start points, 50 steps and
// a step size of 0.05.
func NewLocalSearch(cs *space.Space, acq AcquisitionFunction) *LocalSearch {
	return &LocalSearch{ConfigSpace: cs, Acquisition: acq, StartPoints: 10, Steps: 50, StepSize: 0.05}
}

func (l *LocalSearch) AcquisitionFunction() AcquisitionFunction { return l.Acquisition }

func (l *LocalSearch) Maximize(previous []space.Configuration, n int, rng *rand.Rand) ([]space.Configuration, error) {
	return decodeAll(l.ConfigSpace, rank(l.climb(previous, rng), n)), nil
}

func (l *LocalSearch) climb(previous []space.Configuration, rng *rand.Rand) []scored {
	starts := previous
	if len(starts) > l.StartPoints {
		starts = starts[:l.StartPoints]
	}
	var out []scored
	for _, cfg := range starts {
		cur := l.ConfigSpace.ToVector(cfg)
		best := l.Acquisition.Evaluate(cur)
		for s := 0; s < l.Steps; s++ {
			cand := make([]float64, len(cur))
			for d := range cand {
				cand[d] = math.Max(0, math.Min(1, cur[d]+rng.NormFloat64()*l.StepSize))
			}
			if score := l.Acquisition.Evaluate(cand); score > best {
				cur, best = cand, score
			}
		}
		out = append(out, scored{vec: cur, score: best})
	}
	return out
}

// LocalAndSortedRandomSearch merges local search around the best
// configurations with a random search and returns the overall best.
type LocalAndSortedRandomSearch struct {
	random *RandomSearch
	local  *LocalSearch
}

func NewLocalAndSortedRandomSearch(cs *space.Space, acq AcquisitionFunction, challengers int) *LocalAndSortedRandomSearch {
	return &LocalAndSortedRandomSearch{
		random: NewRandomSearch(cs, acq, challengers),
		local:  NewLocalSearch(cs, acq),
	}
}

func (m *LocalAndSortedRandomSearch) AcquisitionFunction() AcquisitionFunction {
	return m.random.Acquisition
}

func (m *LocalAndSortedRandomSearch) Maximize(previous []space.Configuration, n int, rng *rand.Rand) ([]space.Configuration, error) {
	points := append(m.local.climb(previous, rng), m.random.sample(rng)...)
	return decodeAll(m.random.ConfigSpace, rank(points, n)), nil
}

// ExplorationSelector explores with a probability that rises while trials
// fail to improve the incumbent and falls when they do.
type ExplorationSelector struct {
	Probability float64
	Step        float64
	Min         float64
	Max         float64

	callback *exploreCallback
}

// NewExplorationSelector returns a selector starting at probability p.
func NewExplorationSelector(p, step, lo, hi float64) *ExplorationSelector {
	s := &ExplorationSelector{Probability: p, Step: step, Min: lo, Max: hi}
	s.callback = &exploreCallback{selector: s, best: math.Inf(1)}
	return s
}

func (s *ExplorationSelector) Explore(rng *rand.Rand) bool {
	return rng.Float64() < s.Probability
}

func (s *ExplorationSelector) ExploreCallback() Callback {
	return s.callback
}

type exploreCallback struct {
	BaseCallback
	selector *ExplorationSelector
	best     float64
}

func (c *exploreCallback) OnTellEnd(e *Engine, _ TrialInfo, _ TrialValue) bool {
	_, cost, ok := e.RunHistory().Incumbent()
	if !ok {
		return true
	}
	s := c.selector
	if cost < c.best {
		c.best = cost
		s.Probability = math.Max(s.Min, s.Probability-s.Step)
	} else {
		s.Probability = math.Min(s.Max, s.Probability+s.Step)
	}
	return true
}

// SwitchingSearch asks its selector on every call whether to explore with a
// random search or exploit with a local search.
type SwitchingSearch struct {
	random   *RandomSearch
	local    *LocalSearch
	selector Selector
}

func NewSwitchingSearch(cs *space.Space, acq AcquisitionFunction, selector Selector) *SwitchingSearch {
	if selector == nil {
		selector = NewExplorationSelector(0.5, 0.05, 0.1, 0.9)
	}
	return &SwitchingSearch{
		random:   NewRandomSearch(cs, acq, 1000),
		local:    NewLocalSearch(cs, acq),
		selector: selector,
	}
}

func (m *SwitchingSearch) AcquisitionFunction() AcquisitionFunction { return m.random.Acquisition }

func (m *SwitchingSearch) Selector() Selector { return m.selector }

func (m *SwitchingSearch) Maximize(previous []space.Configuration, n int, rng *rand.Rand) ([]space.Configuration, error) {
	if len(previous) == 0 || m.selector.Explore(rng) {
		return m.random.Maximize(previous, n, rng)
	}
	return m.local.Maximize(previous, n, rng)
}
