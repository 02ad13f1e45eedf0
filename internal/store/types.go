package store

import (
	"strconv"
	"time"
)

// ScenarioInfo is the subset of a scenario persisted next to its run history.
// It mirrors the engine's scenario without importing it.
type ScenarioInfo struct {
	Name            string   `json:"name"`
	Seed            int      `json:"seed"`
	Deterministic   bool     `json:"deterministic"`
	NTrials         int      `json:"nTrials"`
	OutputDirectory string   `json:"outputDirectory,omitempty"`
	MinBudget       *float64 `json:"minBudget,omitempty"`
	MaxBudget       *float64 `json:"maxBudget,omitempty"`
}

// TrialRecord is one finished trial.
type TrialRecord struct {
	ConfigID       int            `json:"configId"`
	Config         map[string]any `json:"config"`
	Instance       string         `json:"instance,omitempty"`
	Seed           int            `json:"seed"`
	Budget         *float64       `json:"budget,omitempty"`
	Cost           float64        `json:"cost"`
	Time           float64        `json:"time"`
	Status         string         `json:"status"`
	StartTime      time.Time      `json:"startTime"`
	EndTime        time.Time      `json:"endTime"`
	AdditionalInfo map[string]any `json:"additionalInfo,omitempty"`
}

// Snapshot is the persisted run history of one optimization run.
//
// Only finished trials are stored. Trials that were asked but never told are
// dropped; a resumed engine proposes them again.
type Snapshot struct {
	// RunID identifies the run within its store
	RunID string `json:"runId"`

	Scenario ScenarioInfo `json:"scenario"`

	// Trials in the order they were told
	Trials []TrialRecord `json:"trials"`

	// IncumbentID is the config id of the best configuration, 0 when none
	IncumbentID int `json:"incumbentId"`

	// IncumbentCost is the cost of the incumbent, meaningful when IncumbentID > 0
	IncumbentCost float64 `json:"incumbentCost"`

	Timestamp time.Time `json:"timestamp"`
}

// RunInfo contains metadata about a run without its trials.
type RunInfo struct {
	RunID         string    `json:"runId"`
	Name          string    `json:"name"`
	Seed          int       `json:"seed"`
	Trials        int       `json:"trials"`
	IncumbentCost *float64  `json:"incumbentCost,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewSnapshot creates a snapshot stamped with the current time.
func NewSnapshot(runID string, scenario ScenarioInfo, trials []TrialRecord, incumbentID int, incumbentCost float64) *Snapshot {
	return &Snapshot{
		RunID:         runID,
		Scenario:      scenario,
		Trials:        trials,
		IncumbentID:   incumbentID,
		IncumbentCost: incumbentCost,
		Timestamp:     time.Now(),
	}
}

// ToInfo converts a full Snapshot to RunInfo (metadata only).
func (s *Snapshot) ToInfo() RunInfo {
	info := RunInfo{
		RunID:     s.RunID,
		Name:      s.Scenario.Name,
		Seed:      s.Scenario.Seed,
		Trials:    len(s.Trials),
		Timestamp: s.Timestamp,
	}
	if s.IncumbentID > 0 {
		cost := s.IncumbentCost
		info.IncumbentCost = &cost
	}
	return info
}

// Validate checks if the snapshot has valid data.
func (s *Snapshot) Validate() error {
	if s.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if s.Scenario.Name == "" {
		return &ValidationError{Field: "Scenario.Name", Reason: "cannot be empty"}
	}
	if s.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if s.IncumbentID < 0 {
		return &ValidationError{Field: "IncumbentID", Reason: "cannot be negative"}
	}
	seen := false
	for i, t := range s.Trials {
		if t.ConfigID <= 0 {
			return &ValidationError{Field: "Trials", Reason: "config ids start at 1 (trial " + strconv.Itoa(i) + ")"}
		}
		if t.Config == nil {
			return &ValidationError{Field: "Trials", Reason: "config cannot be nil (trial " + strconv.Itoa(i) + ")"}
		}
		if t.ConfigID == s.IncumbentID {
			seen = true
		}
	}
	if s.IncumbentID > 0 && !seen {
		return &ValidationError{Field: "IncumbentID", Reason: "does not reference a stored trial"}
	}
	return nil
}

// ValidationError represents a snapshot validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
