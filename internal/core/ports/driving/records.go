package driving

import (
	"context"
	"encoding/json"

	"github.com/custodia-labs/wirestore/internal/core/domain"
)

// RecordService is the public record API for one record type.
type RecordService interface {
	// Type returns the record type this service manages.
	Type() string

	// Set writes data under id and marks it unsynced.
	// data is deep-cloned through a JSON round trip.
	Set(ctx context.Context, id string, data any) error

	// Delete soft-deletes the given ids. Missing ids are not an error.
	Delete(ctx context.Context, ids ...string) error

	// Get returns the data of a live record, or false if the record does
	// not exist or is soft-deleted.
	Get(ctx context.Context, id string) (json.RawMessage, bool, error)

	// All returns the data of every live record of this type.
	// Order is unspecified.
	All(ctx context.Context) ([]json.RawMessage, error)

	// Records returns every live record of this type with its id.
	Records(ctx context.Context) ([]domain.Record, error)

	// Observe returns the current change token of this type.
	Observe() string

	// Watch returns a channel receiving a new token whenever this type changes.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context) <-chan string
}
