package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on top of Redis. Each snapshot is a JSON string
// under "<prefix>:run:<runID>"; the set "<prefix>:runs" indexes run IDs.
type RedisStore struct {
	client  redis.UniversalClient
	prefix  string
	timeout time.Duration
}

// NewRedisStore wraps an existing client. An empty prefix defaults to "hypersmac".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "hypersmac"
	}
	return &RedisStore{
		client:  client,
		prefix:  prefix,
		timeout: 5 * time.Second,
	}
}

func (s *RedisStore) runKey(runID string) string {
	return s.prefix + ":run:" + runID
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":runs"
}

func (s *RedisStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// SaveSnapshot stores the snapshot and indexes its run ID in one transaction.
func (s *RedisStore) SaveSnapshot(runID string, snapshot *Snapshot) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}
	if snapshot == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	ctx, cancel := s.ctx()
	defer cancel()

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.runKey(runID), data, 0)
		pipe.SAdd(ctx, s.indexKey(), runID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	slog.Debug("Run history saved", "runID", runID, "backend", "redis", "trials", len(snapshot.Trials))
	return nil
}

// LoadSnapshot retrieves the snapshot for the given run.
func (s *RedisStore) LoadSnapshot(runID string) (*Snapshot, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}

	ctx, cancel := s.ctx()
	defer cancel()

	data, err := s.client.Get(ctx, s.runKey(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, &NotFoundError{RunID: runID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to deserialize snapshot: %w", err)
	}
	return &snapshot, nil
}

// ListSnapshots returns metadata for all indexed runs. Index entries whose
// snapshot has disappeared are skipped.
func (s *RedisStore) ListSnapshots() ([]RunInfo, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	infos := []RunInfo{}
	for _, id := range ids {
		snapshot, err := s.LoadSnapshot(id)
		if err != nil {
			slog.Warn("Failed to load run history for listing", "runID", id, "error", err)
			continue
		}
		infos = append(infos, snapshot.ToInfo())
	}
	return infos, nil
}

// DeleteSnapshot removes the snapshot and its index entry.
func (s *RedisStore) DeleteSnapshot(runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}

	ctx, cancel := s.ctx()
	defer cancel()

	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.runKey(runID))
		pipe.SRem(ctx, s.indexKey(), runID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if del.Val() == 0 {
		return &NotFoundError{RunID: runID}
	}
	return nil
}
