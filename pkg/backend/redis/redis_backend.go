package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/velostrade/bookcore/pkg/backend"
)

// SnapshotStore persists book snapshots in a Redis hash: one field per
// instrument under a configurable key prefix.
type SnapshotStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewSnapshotStore creates a store over an existing client. The prefix
// namespaces deployments sharing one Redis.
func NewSnapshotStore(client *redis.Client, prefix string, logger *zap.Logger) *SnapshotStore {
	if prefix == "" {
		prefix = "bookcore"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotStore{
		client: client,
		key:    prefix + ":snapshots",
		logger: logger,
	}
}

// Save stores the snapshot, overwriting any previous one for the
// instrument.
func (s *SnapshotStore) Save(ctx context.Context, snap *backend.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := s.client.HSet(ctx, s.key, snap.Instrument, data).Err(); err != nil {
		s.logger.Error("failed to save snapshot",
			zap.String("instrument", snap.Instrument),
			zap.Error(err))
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	s.logger.Debug("snapshot saved",
		zap.String("instrument", snap.Instrument),
		zap.Int64("rpt_seq", snap.RptSeq))
	return nil
}

// Load fetches the snapshot for an instrument.
func (s *SnapshotStore) Load(ctx context.Context, instrument string) (*backend.Snapshot, error) {
	data, err := s.client.HGet(ctx, s.key, instrument).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, backend.ErrSnapshotNotFound
		}
		s.logger.Error("failed to load snapshot",
			zap.String("instrument", instrument),
			zap.Error(err))
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	var snap backend.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// List returns the instruments with stored snapshots.
func (s *SnapshotStore) List(ctx context.Context) ([]string, error) {
	fields, err := s.client.HKeys(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return fields, nil
}

// Delete removes an instrument's snapshot. Deleting a missing snapshot
// is not an error.
func (s *SnapshotStore) Delete(ctx context.Context, instrument string) error {
	if err := s.client.HDel(ctx, s.key, instrument).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}
