package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/wirestore/internal/core/domain"
	"github.com/custodia-labs/wirestore/internal/core/ports/driving"
	"github.com/custodia-labs/wirestore/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler triggers periodic sync cycles.
// The schedule can be changed while the scheduler runs.
type Scheduler struct {
	engine driving.SyncEngine

	mu       sync.Mutex
	periodic domain.PeriodicSync
	running  bool
	stopCh   chan struct{}
	resetCh  chan struct{}
	done     chan struct{}
}

// NewScheduler creates a scheduler for engine.
func NewScheduler(engine driving.SyncEngine, periodic domain.PeriodicSync) *Scheduler {
	return &Scheduler{
		engine:   engine,
		periodic: periodic,
		resetCh:  make(chan struct{}, 1),
	}
}

// Periodic returns the current schedule.
func (s *Scheduler) Periodic() domain.PeriodicSync {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.periodic
}

// SetPeriodic replaces the schedule. A running scheduler restarts its timer.
func (s *Scheduler) SetPeriodic(periodic domain.PeriodicSync) {
	s.mu.Lock()
	s.periodic = periodic
	s.mu.Unlock()

	select {
	case s.resetCh <- struct{}{}:
	default:
	}
}

// Start runs the scheduler loop. This method blocks until Stop is called or
// ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	stopCh, done := s.stopCh, s.done
	s.mu.Unlock()

	defer close(done)
	return s.run(ctx, stopCh)
}

// Stop shuts the loop down and waits for it to exit.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	done := s.done
	s.mu.Unlock()

	<-done
	return nil
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}) error {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for {
		periodic := s.Periodic()

		// A nil channel blocks forever, which parks the loop while disabled.
		var tick <-chan time.Time
		var timer *time.Timer
		if periodic.Enabled {
			timer = time.NewTimer(periodic.Interval)
			tick = timer.C
			logger.Debug("scheduler: next periodic sync in %s", periodic.Interval)
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			return ctx.Err()
		case <-stopCh:
			stopTimer(timer)
			return nil
		case <-s.resetCh:
			stopTimer(timer)
		case <-tick:
			s.engine.Trigger(driving.ReasonPeriodic)
		}
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}
