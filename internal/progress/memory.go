package progress

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record), now: time.Now}
}

func (m *MemoryStore) Load(_ context.Context, playerID string) (*Record, error) {
	if err := checkPlayerID(playerID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[playerID]
	if !ok {
		return nil, nil
	}
	rec = rec.Clone()
	return &rec, nil
}

func (m *MemoryStore) Save(_ context.Context, rec Record) error {
	if err := checkPlayerID(rec.PlayerID); err != nil {
		return err
	}
	rec = rec.Clone()
	rec.UpdatedAt = m.now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records[rec.PlayerID].Version != rec.Version {
		return ErrVersionConflict
	}
	rec.Version++
	m.records[rec.PlayerID] = rec
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
