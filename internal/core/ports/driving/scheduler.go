package driving

import "context"

// Scheduler runs periodic sync in the background.
type Scheduler interface {
	// Start begins running scheduled triggers.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops the scheduler.
	Stop() error
}
