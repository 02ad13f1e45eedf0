package smbo

import (
	"errors"
	"math"
	"math/rand"
	"sort"

	"github.com/cwbudde/hypersmac/internal/space"
)

// Intensifier turns configurations into trials and decides which
// configurations deserve more evaluations.
type Intensifier interface {
	// Next returns the next trial. next yields a fresh configuration.
	Next(rh *RunHistory, next func() (space.Configuration, error)) (TrialInfo, error)
	Tell(info TrialInfo, value TrialValue)
}

// SimpleIntensifier evaluates every configuration once per seed. For
// non-deterministic scenarios a configuration that is at least as good as
// the incumbent is re-evaluated on further seeds, up to MaxConfigCalls.
type SimpleIntensifier struct {
	Scenario       *Scenario
	MaxConfigCalls int

	seeds   []int
	calls   map[string]int
	costs   map[string][]float64
	pending []TrialInfo
}

// NewIntensifier returns an intensifier with at most maxConfigCalls
// evaluations per configuration (3 if not positive).
func NewIntensifier(scenario *Scenario, maxConfigCalls int) *SimpleIntensifier {
	if maxConfigCalls <= 0 {
		maxConfigCalls = 3
	}
	seeds := []int{scenario.Seed}
	if !scenario.Deterministic {
		rng := rand.New(rand.NewSource(int64(scenario.Seed)))
		seeds = make([]int, maxConfigCalls)
		for i := range seeds {
			seeds[i] = rng.Intn(1 << 31)
		}
	}
	return &SimpleIntensifier{
		Scenario:       scenario,
		MaxConfigCalls: maxConfigCalls,
		seeds:          seeds,
		calls:          map[string]int{},
		costs:          map[string][]float64{},
	}
}

func (in *SimpleIntensifier) Next(rh *RunHistory, next func() (space.Configuration, error)) (TrialInfo, error) {
	if len(in.pending) > 0 {
		info := in.pending[0]
		in.pending = in.pending[1:]
		return info, nil
	}
	cfg, err := next()
	if err != nil {
		return TrialInfo{}, err
	}
	in.calls[cfg.Key()]++
	return TrialInfo{Config: cfg, Seed: in.seeds[0], Budget: in.Scenario.MaxBudget}, nil
}

func (in *SimpleIntensifier) Tell(info TrialInfo, value TrialValue) {
	key := info.Config.Key()
	if value.Status != StatusSuccess {
		return
	}
	in.costs[key] = append(in.costs[key], value.Cost)

	n := in.calls[key]
	if n >= len(in.seeds) || n >= in.MaxConfigCalls {
		return
	}
	if mean(in.costs[key]) > in.bestMean(key) {
		return
	}
	in.calls[key]++
	in.pending = append(in.pending, TrialInfo{Config: info.Config, Seed: in.seeds[n], Budget: info.Budget})
}

func (in *SimpleIntensifier) bestMean(except string) float64 {
	best := math.Inf(1)
	for k, c := range in.costs {
		if k != except {
			best = math.Min(best, mean(c))
		}
	}
	return best
}

func mean(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

// SuccessiveHalving races configurations on a geometric budget ladder from
// MinBudget to MaxBudget, keeping the best 1/Eta at every rung.
type SuccessiveHalving struct {
	Scenario *Scenario
	Eta      int

	budgets  []float64
	brackets []*bracket
	pending  map[trialKey]slot
}

type bracket struct {
	stage    int
	target   int
	configs  []space.Configuration
	launched int
	costs    []float64
	done     int
}

type slot struct {
	b   *bracket
	idx int
}

// ErrBudgetsRequired is returned when successive halving is used without
// min and max budgets.
var ErrBudgetsRequired = errors.New("successive halving needs min_budget and max_budget")

// NewSuccessiveHalving builds the budget ladder for scenario. Eta defaults to 3.
func NewSuccessiveHalving(scenario *Scenario, eta int) (*SuccessiveHalving, error) {
	if scenario.MinBudget == nil || scenario.MaxBudget == nil {
		return nil, ErrBudgetsRequired
	}
	if eta < 2 {
		eta = 3
	}
	lo, hi := *scenario.MinBudget, *scenario.MaxBudget
	steps := int(math.Floor(math.Log(hi/lo)/math.Log(float64(eta)) + 1e-9))
	budgets := make([]float64, steps+1)
	for i := range budgets {
		budgets[i] = hi / math.Pow(float64(eta), float64(steps-i))
	}
	return &SuccessiveHalving{
		Scenario: scenario,
		Eta:      eta,
		budgets:  budgets,
		pending:  map[trialKey]slot{},
	}, nil
}

// Budgets returns the ladder, lowest first.
func (sh *SuccessiveHalving) Budgets() []float64 {
	return append([]float64(nil), sh.budgets...)
}

func (sh *SuccessiveHalving) Next(rh *RunHistory, next func() (space.Configuration, error)) (TrialInfo, error) {
	for _, b := range sh.brackets {
		if b.launched < b.target {
			return sh.launch(b, next)
		}
	}
	target := int(math.Pow(float64(sh.Eta), float64(len(sh.budgets)-1)))
	b := &bracket{target: target, costs: make([]float64, target)}
	sh.brackets = append(sh.brackets, b)
	return sh.launch(b, next)
}

func (sh *SuccessiveHalving) launch(b *bracket, next func() (space.Configuration, error)) (TrialInfo, error) {
	if b.stage == 0 && len(b.configs) <= b.launched {
		cfg, err := next()
		if err != nil {
			return TrialInfo{}, err
		}
		b.configs = append(b.configs, cfg)
	}
	budget := sh.budgets[b.stage]
	info := TrialInfo{Config: b.configs[b.launched], Seed: sh.Scenario.Seed, Budget: &budget}
	sh.pending[info.key()] = slot{b: b, idx: b.launched}
	b.launched++
	return info, nil
}

func (sh *SuccessiveHalving) Tell(info TrialInfo, value TrialValue) {
	key := info.key()
	sl, ok := sh.pending[key]
	if !ok {
		return
	}
	delete(sh.pending, key)

	b := sl.b
	cost := value.Cost
	if value.Status != StatusSuccess {
		cost = math.Inf(1)
	}
	b.costs[sl.idx] = cost
	b.done++
	if b.done < b.target {
		return
	}

	if b.stage == len(sh.budgets)-1 {
		sh.remove(b)
		return
	}
	order := make([]int, len(b.configs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return b.costs[order[i]] < b.costs[order[j]] })

	keep := max(1, len(order)/sh.Eta)
	promoted := make([]space.Configuration, keep)
	for i := range promoted {
		promoted[i] = b.configs[order[i]]
	}
	b.stage++
	b.configs = promoted
	b.target = keep
	b.launched = 0
	b.done = 0
	b.costs = make([]float64, keep)
}

func (sh *SuccessiveHalving) remove(b *bracket) {
	for i, other := range sh.brackets {
		if other == b {
			sh.brackets = append(sh.brackets[:i], sh.brackets[i+1:]...)
			return
		}
	}
}
