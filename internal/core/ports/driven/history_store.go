package driven

import (
	"context"

	"github.com/custodia-labs/wirestore/internal/core/domain"
)

// SyncHistoryStore keeps the outcome of past sync cycles.
type SyncHistoryStore interface {
	// RecordCycle logs a cycle result.
	RecordCycle(ctx context.Context, result domain.CycleResult) error

	// History returns recent results for a key.
	// Results are ordered by start time descending (most recent first).
	History(ctx context.Context, key string, limit int) ([]domain.CycleResult, error)

	// Prune removes old results beyond the retention limit.
	// Keeps the most recent 'keep' results per key.
	Prune(ctx context.Context, keep int) error
}
