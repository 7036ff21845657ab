package domain

import (
	"fmt"
	"time"
)

// SyncState is the persisted cursor slot for one store and namespace.
type SyncState struct {
	// Key is the slot key, see CursorKey.
	Key string

	// Cursor is the opaque server-issued cursor.
	Cursor string

	// LastSync is when the cursor was last written.
	LastSync time.Time
}

// Validate reports whether the slot can be persisted.
func (s SyncState) Validate() error {
	if s.Key == "" {
		return fmt.Errorf("%w: sync state key is required", ErrInvalidInput)
	}
	return nil
}

// SyncStatus is a snapshot of a sync engine.
type SyncStatus struct {
	// Key identifies the store and namespace being synced.
	Key string

	// Running indicates a cycle is in flight.
	Running bool

	// Cursor is the cursor persisted by the last successful cycle.
	Cursor string

	// LastError is the error of the last failed cycle, if the last cycle failed.
	LastError string

	// LastErrorAt is when the last cycle failed.
	LastErrorAt time.Time

	// LastSuccess is when a cycle last completed successfully.
	LastSuccess time.Time

	// Cycles counts completed cycles, successful or not.
	Cycles int

	// Dropped counts triggers ignored because a cycle was in flight.
	Dropped int
}

// CycleResult is the outcome of a single sync cycle.
type CycleResult struct {
	// Key identifies the store and namespace.
	Key string

	// Reason is what triggered the cycle (mount, write, periodic, manual).
	Reason string

	// StartedAt is when the cycle started.
	StartedAt time.Time

	// EndedAt is when the cycle finished.
	EndedAt time.Time

	// Success indicates the exchange succeeded and results were applied.
	Success bool

	// Error contains the error message if Success is false.
	Error string

	// Pushed is the number of unsynced records sent.
	Pushed int

	// Updated is the number of records written from the response.
	Updated int

	// Purged is the number of records purged from the response.
	Purged int

	// Cursor is the cursor after the cycle.
	Cursor string
}

// Duration returns how long the cycle took.
func (r CycleResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}
