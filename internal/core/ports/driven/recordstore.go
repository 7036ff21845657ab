package driven

import (
	"context"

	"github.com/custodia-labs/wirestore/internal/core/domain"
)

// RecordStore is the durable key-value storage of records.
// Every method acts on a single record or a single index lookup; batching,
// change notification and hooks are layered on top by the core.
type RecordStore interface {
	// Put upserts one record by ID.
	Put(ctx context.Context, record domain.Record) error

	// Delete hard-deletes a record by ID.
	// Deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error

	// Get returns the raw record including soft-deleted state.
	// Returns domain.ErrNotFound if the record does not exist.
	Get(ctx context.Context, id string) (*domain.Record, error)

	// ListByType returns all raw records of a type via the type index.
	// Order is the index order and must not be relied upon.
	ListByType(ctx context.Context, recordType string) ([]domain.Record, error)

	// ListUnsynced returns all records carrying the unsynced marker via the
	// unsynced index, across all types.
	ListUnsynced(ctx context.Context) ([]domain.Record, error)

	// Close releases the handle.
	Close() error
}

// StoreOpener opens record stores by database name.
type StoreOpener interface {
	// Open opens or creates the record store named databaseName.
	Open(ctx context.Context, databaseName string) (RecordStore, error)
}

// StoreOpenerFunc adapts a function to StoreOpener.
type StoreOpenerFunc func(ctx context.Context, databaseName string) (RecordStore, error)

// Open calls f.
func (f StoreOpenerFunc) Open(ctx context.Context, databaseName string) (RecordStore, error) {
	return f(ctx, databaseName)
}

// BatchWriter is implemented by record stores that can apply a batch of
// writes in a single transaction. When available the core uses it instead of
// per-record fan-out, so a failed batch leaves no partial writes behind.
type BatchWriter interface {
	// PutAll upserts all records atomically.
	PutAll(ctx context.Context, records []domain.Record) error

	// DeleteAll hard-deletes all ids atomically.
	DeleteAll(ctx context.Context, ids []string) error
}
