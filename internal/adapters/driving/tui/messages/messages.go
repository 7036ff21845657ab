// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/wirestore/internal/core/domain"
)

// RecordsLoaded carries the live records of the watched type.
type RecordsLoaded struct {
	Records []domain.Record
	Err     error
}

// RecordsChanged is sent when the change bus reports a new token for the
// watched type.
type RecordsChanged struct {
	Token string
}

// SyncStatusChanged carries a fresh engine status snapshot.
type SyncStatusChanged struct {
	Status domain.SyncStatus
}

// SyncFinished is sent when a sync requested from the TUI returns.
type SyncFinished struct {
	Err error
}

// RecordDeleted is sent after the selected record was deleted.
type RecordDeleted struct {
	ID  string
	Err error
}
