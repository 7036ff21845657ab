package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/wirestore/internal/core/domain"
	"github.com/custodia-labs/wirestore/internal/core/ports/driven"
)

// Ensure SyncStateStore implements the interface.
var _ driven.SyncStateStore = (*SyncStateStore)(nil)

// SyncStateStore is an in-memory implementation of driven.SyncStateStore.
//
// Saving an empty cursor clears the slot, so a stored state always carries a
// cursor. A zero LastSync is stamped with the save time.
type SyncStateStore struct {
	mu     sync.RWMutex
	states map[string]domain.SyncState
	fault  Fault
	now    func() time.Time
}

// NewSyncStateStore creates a new in-memory sync state store.
func NewSyncStateStore() *SyncStateStore {
	return &SyncStateStore{
		states: make(map[string]domain.SyncState),
		now:    time.Now,
	}
}

// SetFault installs a fault injector. op is "save", "get" or "delete" and
// id is the slot key. Pass nil to remove it.
func (s *SyncStateStore) SetFault(f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

func (s *SyncStateStore) check(op, key string) error {
	if s.fault == nil {
		return nil
	}
	return s.fault(op, key)
}

// Save stores or updates the cursor slot.
func (s *SyncStateStore) Save(_ context.Context, state domain.SyncState) error {
	if err := state.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("save", state.Key); err != nil {
		return err
	}
	if state.Cursor == "" {
		delete(s.states, state.Key)
		return nil
	}
	if state.LastSync.IsZero() {
		state.LastSync = s.now()
	}
	state.LastSync = state.LastSync.UTC()
	s.states[state.Key] = state
	return nil
}

// Get retrieves the cursor slot for a key.
// The caller owns the returned state.
func (s *SyncStateStore) Get(_ context.Context, key string) (*domain.SyncState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("get", key); err != nil {
		return nil, err
	}
	state, ok := s.states[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := state
	return &out, nil
}

// Delete clears the cursor slot for a key. Clearing an empty slot is not an error.
func (s *SyncStateStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("delete", key); err != nil {
		return err
	}
	delete(s.states, key)
	return nil
}

// Keys returns the keys of all stored slots in order.
func (s *SyncStateStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.states))
	for k := range s.states {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
