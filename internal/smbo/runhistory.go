package smbo

import (
	"fmt"
	"math"
	"sort"

	"github.com/cwbudde/hypersmac/internal/space"
	"github.com/cwbudde/hypersmac/internal/store"
)

// TrialRecord is a finished trial.
type TrialRecord struct {
	ConfigID int
	Info     TrialInfo
	Value    TrialValue
}

// RunHistory keeps every trial of a run. Config ids start at 1 and follow
// first appearance.
type RunHistory struct {
	configIDs map[string]int
	configs   []space.Configuration
	records   []TrialRecord
	running   map[trialKey]TrialInfo
}

// NewRunHistory returns an empty history.
func NewRunHistory() *RunHistory {
	return &RunHistory{
		configIDs: make(map[string]int),
		running:   make(map[trialKey]TrialInfo),
	}
}

// ConfigID returns the id of cfg if it has been seen.
func (rh *RunHistory) ConfigID(cfg space.Configuration) (int, bool) {
	id, ok := rh.configIDs[cfg.Key()]
	return id, ok
}

// Config returns the configuration with the given id.
func (rh *RunHistory) Config(id int) (space.Configuration, bool) {
	if id < 1 || id > len(rh.configs) {
		return nil, false
	}
	return rh.configs[id-1], true
}

// Contains reports whether cfg has been asked for, finished or not.
func (rh *RunHistory) Contains(cfg space.Configuration) bool {
	_, ok := rh.configIDs[cfg.Key()]
	return ok
}

func (rh *RunHistory) addConfig(cfg space.Configuration) int {
	key := cfg.Key()
	if id, ok := rh.configIDs[key]; ok {
		return id
	}
	rh.configs = append(rh.configs, cfg.Clone())
	id := len(rh.configs)
	rh.configIDs[key] = id
	return id
}

// MarkRunning registers a trial that has been handed out.
func (rh *RunHistory) MarkRunning(info TrialInfo) {
	rh.addConfig(info.Config)
	rh.running[info.key()] = info
}

// IsRunning reports whether info was handed out and not yet finished.
func (rh *RunHistory) IsRunning(info TrialInfo) bool {
	_, ok := rh.running[info.key()]
	return ok
}

// Running returns the number of unfinished trials.
func (rh *RunHistory) Running() int {
	return len(rh.running)
}

// Add records a finished trial.
func (rh *RunHistory) Add(info TrialInfo, value TrialValue) TrialRecord {
	delete(rh.running, info.key())
	rec := TrialRecord{
		ConfigID: rh.addConfig(info.Config),
		Info:     info,
		Value:    value,
	}
	rh.records = append(rh.records, rec)
	return rec
}

// revert undoes the last Add, which must have been for info.
func (rh *RunHistory) revert(info TrialInfo) {
	if n := len(rh.records); n > 0 {
		rh.records = rh.records[:n-1]
	}
	rh.running[info.key()] = info
}

// Len returns the number of finished trials.
func (rh *RunHistory) Len() int {
	return len(rh.records)
}

// Records returns the finished trials in the order they were added.
func (rh *RunHistory) Records() []TrialRecord {
	out := make([]TrialRecord, len(rh.records))
	copy(out, rh.records)
	return out
}

type aggregate struct {
	id     int
	budget float64
	sum    float64
	n      int
}

func (a aggregate) cost() float64 {
	return a.sum / float64(a.n)
}

// aggregates averages the successful trials of each config at the highest
// budget that config reached.
func (rh *RunHistory) aggregates() []aggregate {
	byID := map[int]*aggregate{}
	for _, rec := range rh.records {
		if rec.Value.Status != StatusSuccess {
			continue
		}
		b := math.Inf(-1)
		if rec.Info.Budget != nil {
			b = *rec.Info.Budget
		}
		a, ok := byID[rec.ConfigID]
		switch {
		case !ok || b > a.budget:
			byID[rec.ConfigID] = &aggregate{id: rec.ConfigID, budget: b, sum: rec.Value.Cost, n: 1}
		case b == a.budget:
			a.sum += rec.Value.Cost
			a.n++
		}
	}
	out := make([]aggregate, 0, len(byID))
	for _, a := range byID {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Cost returns the average cost of cfg at its highest evaluated budget.
func (rh *RunHistory) Cost(cfg space.Configuration) (float64, bool) {
	id, ok := rh.ConfigID(cfg)
	if !ok {
		return 0, false
	}
	for _, a := range rh.aggregates() {
		if a.id == id {
			return a.cost(), true
		}
	}
	return 0, false
}

// Incumbent returns the best configuration among those evaluated at the
// highest budget seen so far. Ties go to the older configuration.
func (rh *RunHistory) Incumbent() (space.Configuration, float64, bool) {
	aggs := rh.aggregates()
	if len(aggs) == 0 {
		return nil, 0, false
	}
	top := math.Inf(-1)
	for _, a := range aggs {
		top = math.Max(top, a.budget)
	}
	best := -1
	for i, a := range aggs {
		if a.budget != top {
			continue
		}
		if best < 0 || a.cost() < aggs[best].cost() {
			best = i
		}
	}
	return rh.configs[aggs[best].id-1], aggs[best].cost(), true
}

// Best returns up to n configurations ordered by increasing cost.
func (rh *RunHistory) Best(n int) []space.Configuration {
	aggs := rh.aggregates()
	sort.SliceStable(aggs, func(i, j int) bool { return aggs[i].cost() < aggs[j].cost() })
	if n > len(aggs) {
		n = len(aggs)
	}
	out := make([]space.Configuration, n)
	for i := range out {
		out[i] = rh.configs[aggs[i].id-1]
	}
	return out
}

// TrainingData encodes every evaluated configuration and its cost for the
// surrogate model.
func (rh *RunHistory) TrainingData(cs *space.Space) ([][]float64, []float64) {
	aggs := rh.aggregates()
	X := make([][]float64, len(aggs))
	y := make([]float64, len(aggs))
	for i, a := range aggs {
		X[i] = cs.ToVector(rh.configs[a.id-1])
		y[i] = a.cost()
	}
	return X, y
}

// Snapshot converts the finished trials into their persisted form.
func (rh *RunHistory) Snapshot(runID string, scenario *Scenario) *store.Snapshot {
	trials := make([]store.TrialRecord, len(rh.records))
	for i, rec := range rh.records {
		trials[i] = store.TrialRecord{
			ConfigID:       rec.ConfigID,
			Config:         map[string]any(rec.Info.Config),
			Instance:       rec.Info.Instance,
			Seed:           rec.Info.Seed,
			Budget:         rec.Info.Budget,
			Cost:           rec.Value.Cost,
			Time:           rec.Value.Time,
			Status:         rec.Value.Status.String(),
			StartTime:      rec.Value.StartTime,
			EndTime:        rec.Value.EndTime,
			AdditionalInfo: rec.Value.AdditionalInfo,
		}
	}

	incID, incCost := 0, 0.0
	if cfg, cost, ok := rh.Incumbent(); ok {
		incID, _ = rh.ConfigID(cfg)
		incCost = cost
	}
	return store.NewSnapshot(runID, scenario.Info(), trials, incID, incCost)
}

// Restore replays a stored snapshot into an empty history.
func (rh *RunHistory) Restore(snapshot *store.Snapshot) error {
	if len(rh.records) > 0 || len(rh.running) > 0 {
		return fmt.Errorf("cannot restore into a non-empty run history")
	}
	for _, t := range snapshot.Trials {
		status, err := parseStatus(t.Status)
		if err != nil {
			return err
		}
		rh.Add(TrialInfo{
			Config:   space.Configuration(t.Config),
			Instance: t.Instance,
			Seed:     t.Seed,
			Budget:   t.Budget,
		}, TrialValue{
			Cost:           t.Cost,
			Time:           t.Time,
			Status:         status,
			StartTime:      t.StartTime,
			EndTime:        t.EndTime,
			AdditionalInfo: t.AdditionalInfo,
		})
	}
	return nil
}

func parseStatus(s string) (StatusType, error) {
	for st := StatusSuccess; st <= StatusRunning; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown trial status %q", s)
}
