package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/wirestore/internal/core/domain"
	"github.com/custodia-labs/wirestore/internal/core/ports/driven"
)

// Ensure SyncHistoryStore implements the interface.
var _ driven.SyncHistoryStore = (*SyncHistoryStore)(nil)

// SyncHistoryStore is an in-memory implementation of driven.SyncHistoryStore.
type SyncHistoryStore struct {
	mu      sync.RWMutex
	results map[string][]domain.CycleResult
}

// NewSyncHistoryStore creates an empty history store.
func NewSyncHistoryStore() *SyncHistoryStore {
	return &SyncHistoryStore{results: make(map[string][]domain.CycleResult)}
}

// RecordCycle logs a cycle result.
func (s *SyncHistoryStore) RecordCycle(_ context.Context, result domain.CycleResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.Key] = append(s.results[result.Key], result)
	return nil
}

// History returns recent results for a key, most recent first.
func (s *SyncHistoryStore) History(_ context.Context, key string, limit int) ([]domain.CycleResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]domain.CycleResult(nil), s.results[key]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Prune keeps the most recent 'keep' results per key.
func (s *SyncHistoryStore) Prune(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, results := range s.results {
		if len(results) <= keep {
			continue
		}
		sort.SliceStable(results, func(i, j int) bool { return results[i].StartedAt.Before(results[j].StartedAt) })
		s.results[key] = append([]domain.CycleResult(nil), results[len(results)-keep:]...)
	}
	return nil
}
