package store

// Store defines the interface for run-history persistence.
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return ErrNotFound if the run doesn't exist (for Load/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveSnapshot atomically saves the run history of the given run,
	// replacing any previous snapshot.
	SaveSnapshot(runID string, snapshot *Snapshot) error

	// LoadSnapshot retrieves the snapshot for the given run.
	// Returns ErrNotFound if no snapshot exists for this runID.
	LoadSnapshot(runID string) (*Snapshot, error)

	// ListSnapshots returns metadata for all stored runs.
	ListSnapshots() ([]RunInfo, error)

	// DeleteSnapshot removes the snapshot and every artifact of the run.
	// Returns ErrNotFound if no snapshot exists for this runID.
	DeleteSnapshot(runID string) error
}

// ErrNotFound is returned when a requested run does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing run.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "run not found: " + e.RunID
	}
	return "run not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
