package driving

import (
	"context"

	"github.com/custodia-labs/wirestore/internal/core/domain"
)

// Trigger reasons.
const (
	ReasonMount    = "mount"
	ReasonWrite    = "write"
	ReasonPeriodic = "periodic"
	ReasonManual   = "manual"
)

// SyncEngine runs push-pull cycles against the remote exchange.
type SyncEngine interface {
	// Sync runs one cycle and returns its error.
	// Returns domain.ErrSyncInProgress if a cycle is already running.
	Sync(ctx context.Context, reason string) error

	// Trigger requests a cycle in the background. A trigger received while a
	// cycle is in flight is dropped. Failures are only logged.
	Trigger(reason string)

	// Status returns a snapshot of the engine.
	Status() domain.SyncStatus

	// OnStatus registers fn to be called after the status changes.
	// Returns a function that unregisters fn.
	OnStatus(fn func()) (unsubscribe func())
}
