package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/wirestore/internal/core/domain"
	"github.com/custodia-labs/wirestore/internal/core/ports/driven"
)

// syncHistoryStore implements driven.SyncHistoryStore.
type syncHistoryStore struct {
	store *Store
}

var _ driven.SyncHistoryStore = (*syncHistoryStore)(nil)

// RecordCycle logs a cycle result.
func (s *syncHistoryStore) RecordCycle(ctx context.Context, result domain.CycleResult) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_history
			(key, reason, started_at, ended_at, success, error, pushed, updated, purged, cursor)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, result.Key, result.Reason,
		result.StartedAt.UTC().Format(time.RFC3339Nano),
		result.EndedAt.UTC().Format(time.RFC3339Nano),
		boolToInt(result.Success), nullString(result.Error),
		result.Pushed, result.Updated, result.Purged, result.Cursor)
	if err != nil {
		return fmt.Errorf("recording sync cycle: %w", err)
	}
	return nil
}

// History returns recent results for a key, most recent first.
// A non-positive limit returns all results.
func (s *syncHistoryStore) History(ctx context.Context, key string, limit int) ([]domain.CycleResult, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT key, reason, started_at, ended_at, success, error, pushed, updated, purged, cursor
		FROM sync_history
		WHERE key = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, key, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sync history: %w", err)
	}
	defer rows.Close()

	var results []domain.CycleResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		result, err := scanCycleResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync history: %w", err)
	}

	return results, nil
}

// Prune keeps the most recent 'keep' results per key.
func (s *syncHistoryStore) Prune(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM sync_history
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY key ORDER BY started_at DESC, id DESC) as rn
				FROM sync_history
			) WHERE rn <= ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning sync history: %w", err)
	}
	return nil
}

// scanCycleResult scans a cycle result from *sql.Rows.
func scanCycleResult(rows *sql.Rows) (*domain.CycleResult, error) {
	var result domain.CycleResult
	var startedAt, endedAt string
	var success int
	var errMsg sql.NullString

	if err := rows.Scan(&result.Key, &result.Reason, &startedAt, &endedAt,
		&success, &errMsg, &result.Pushed, &result.Updated, &result.Purged, &result.Cursor); err != nil {
		return nil, fmt.Errorf("scanning sync cycle: %w", err)
	}

	if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
		result.StartedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, endedAt); err == nil {
		result.EndedAt = t
	}
	result.Success = success == 1
	if errMsg.Valid {
		result.Error = errMsg.String
	}

	return &result, nil
}
