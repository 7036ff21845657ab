// Package tui provides an interactive terminal user interface for wirestore.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/wirestore/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Records is the record API of the watched type.
	Records driving.RecordService

	// Sync runs sync cycles and reports status.
	Sync driving.SyncEngine
}

// Validate ensures all required ports are set.
// Returns an error if any port is nil.
func (p *Ports) Validate() error {
	if p.Records == nil {
		return ErrMissingRecordService
	}
	if p.Sync == nil {
		return ErrMissingSyncEngine
	}
	return nil
}
