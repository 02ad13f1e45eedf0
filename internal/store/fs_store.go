package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FSStore implements the Store interface using filesystem-based persistence.
// Snapshots are stored as <baseDir>/<runID>/runhistory.json, next to the
// run's trace.jsonl.
//
// Thread-safety: writes go through temp file + rename, so readers never see
// a partial snapshot and no locks are needed.
type FSStore struct {
	baseDir string
}

// NewFSStore creates a new filesystem-based store.
// The baseDir will be created if it doesn't exist.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSStore{
		baseDir: baseDir,
	}, nil
}

// BaseDir returns the root directory of the store.
func (fs *FSStore) BaseDir() string {
	return fs.baseDir
}

// RunDir returns the directory path for a given run ID.
func (fs *FSStore) RunDir(runID string) string {
	return filepath.Join(fs.baseDir, runID)
}

func (fs *FSStore) snapshotPath(runID string) string {
	return filepath.Join(fs.RunDir(runID), "runhistory.json")
}

// SaveSnapshot atomically saves a snapshot for the given run.
func (fs *FSStore) SaveSnapshot(runID string, snapshot *Snapshot) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}
	if snapshot == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}

	runDir := fs.RunDir(runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	tempPath := fs.snapshotPath(runID) + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp snapshot file: %w", err)
	}

	finalPath := fs.snapshotPath(runID)
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename snapshot file: %w", err)
	}

	slog.Debug("Run history saved", "runID", runID, "path", finalPath, "trials", len(snapshot.Trials))
	return nil
}

// LoadSnapshot retrieves the snapshot for the given run.
func (fs *FSStore) LoadSnapshot(runID string) (*Snapshot, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}

	path := fs.snapshotPath(runID)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &NotFoundError{RunID: runID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to deserialize snapshot: %w", err)
	}

	slog.Debug("Run history loaded", "runID", runID, "path", path)
	return &snapshot, nil
}

// ListSnapshots returns metadata for all stored runs.
func (fs *FSStore) ListSnapshots() ([]RunInfo, error) {
	entries, err := os.ReadDir(fs.baseDir)
	if os.IsNotExist(err) {
		return []RunInfo{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read base directory: %w", err)
	}

	infos := []RunInfo{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		runID := entry.Name()
		if _, err := os.Stat(fs.snapshotPath(runID)); os.IsNotExist(err) {
			continue
		}

		snapshot, err := fs.LoadSnapshot(runID)
		if err != nil {
			slog.Warn("Failed to load run history for listing", "runID", runID, "error", err)
			continue
		}

		infos = append(infos, snapshot.ToInfo())
	}

	slog.Debug("Listed runs", "count", len(infos))
	return infos, nil
}

// DeleteSnapshot removes the run directory and everything in it.
func (fs *FSStore) DeleteSnapshot(runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}

	runDir := fs.RunDir(runID)
	if _, err := os.Stat(runDir); os.IsNotExist(err) {
		return &NotFoundError{RunID: runID}
	} else if err != nil {
		return fmt.Errorf("failed to stat run directory: %w", err)
	}

	if err := os.RemoveAll(runDir); err != nil {
		return fmt.Errorf("failed to remove run directory: %w", err)
	}

	slog.Debug("Run deleted", "runID", runID, "path", runDir)
	return nil
}
