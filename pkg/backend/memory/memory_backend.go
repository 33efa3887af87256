package memory

import (
	"context"
	"sync"

	"github.com/velostrade/bookcore/pkg/backend"
)

// SnapshotStore is a map-backed snapshot store for tests and
// single-process deployments without Redis.
type SnapshotStore struct {
	mu    sync.RWMutex
	snaps map[string]*backend.Snapshot
}

// NewSnapshotStore creates an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snaps: make(map[string]*backend.Snapshot),
	}
}

// Save stores the snapshot, overwriting any previous one.
func (s *SnapshotStore) Save(_ context.Context, snap *backend.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *snap
	s.snaps[snap.Instrument] = &cp
	return nil
}

// Load fetches the snapshot for an instrument.
func (s *SnapshotStore) Load(_ context.Context, instrument string) (*backend.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[instrument]
	if !ok {
		return nil, backend.ErrSnapshotNotFound
	}
	cp := *snap
	return &cp, nil
}

// List returns the instruments with stored snapshots.
func (s *SnapshotStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.snaps))
	for instr := range s.snaps {
		out = append(out, instr)
	}
	return out, nil
}

// Delete removes an instrument's snapshot.
func (s *SnapshotStore) Delete(_ context.Context, instrument string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, instrument)
	return nil
}
