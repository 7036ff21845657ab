package driven

import (
	"context"

	"github.com/custodia-labs/wirestore/internal/core/domain"
)

// SyncStateStore persists sync cursors independently of the record store.
type SyncStateStore interface {
	// Save stores or updates the cursor slot.
	Save(ctx context.Context, state domain.SyncState) error

	// Get retrieves the cursor slot for a key.
	// Returns domain.ErrNotFound if no cursor is stored.
	Get(ctx context.Context, key string) (*domain.SyncState, error)

	// Delete clears the cursor slot for a key.
	Delete(ctx context.Context, key string) error
}
