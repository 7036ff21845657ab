package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/wirestore/internal/core/domain"
	"github.com/custodia-labs/wirestore/internal/core/ports/driven"
	"github.com/custodia-labs/wirestore/internal/core/ports/driving"
	"github.com/custodia-labs/wirestore/internal/logger"
)

// historyKeep is how many cycle results are kept per cursor key.
const historyKeep = 100

// Ensure SyncEngine implements the interface.
var _ driving.SyncEngine = (*SyncEngine)(nil)

// SyncOptions configures a SyncEngine.
type SyncOptions struct {
	// CursorKey is the key of the persisted cursor slot.
	CursorKey string

	// Namespace is sent to the exchange with every cycle.
	Namespace string

	// Timeout bounds one exchange call. Zero disables the bound.
	Timeout time.Duration
}

// SyncEngine runs push-pull cycles between a RecordStore and an Exchanger.
//
// At most one cycle runs at a time. A trigger that arrives while a cycle is
// in flight is dropped rather than queued; writes made meanwhile are still
// marked unsynced and go out with the next trigger.
type SyncEngine struct {
	opts      SyncOptions
	store     *RecordStore
	cursors   driven.SyncStateStore
	history   driven.SyncHistoryStore
	exchanger driven.Exchanger

	inFlight atomic.Bool

	mu     sync.RWMutex
	status domain.SyncStatus

	statusChanged *Notifier

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSyncEngine creates a sync engine. history may be nil.
func NewSyncEngine(
	opts SyncOptions,
	store *RecordStore,
	cursors driven.SyncStateStore,
	history driven.SyncHistoryStore,
	exchanger driven.Exchanger,
) *SyncEngine {
	ctx, cancel := context.WithCancel(context.Background())
	return &SyncEngine{
		opts:          opts,
		store:         store,
		cursors:       cursors,
		history:       history,
		exchanger:     exchanger,
		status:        domain.SyncStatus{Key: opts.CursorKey},
		statusChanged: NewNotifier("sync status", 0),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Sync runs one cycle.
// Returns domain.ErrSyncInProgress without side effects if a cycle is running.
func (e *SyncEngine) Sync(ctx context.Context, reason string) error {
	if !e.inFlight.CompareAndSwap(false, true) {
		e.mu.Lock()
		e.status.Dropped++
		e.mu.Unlock()
		logger.Debug("sync %s: %s trigger dropped, cycle in flight", e.opts.CursorKey, reason)
		return domain.ErrSyncInProgress
	}
	defer e.inFlight.Store(false)

	e.setRunning(true)

	result := domain.CycleResult{
		Key:       e.opts.CursorKey,
		Reason:    reason,
		StartedAt: time.Now(),
	}
	err := e.cycle(ctx, &result)
	result.EndedAt = time.Now()
	if err != nil {
		result.Error = err.Error()
	} else {
		result.Success = true
	}

	e.finish(result)
	return err
}

// Trigger starts a cycle in the background. Failures are logged.
func (e *SyncEngine) Trigger(reason string) {
	if e.ctx.Err() != nil {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		err := e.Sync(e.ctx, reason)
		if err != nil && !errors.Is(err, domain.ErrSyncInProgress) {
			logger.Warn("sync %s (%s) failed: %v", e.opts.CursorKey, reason, err)
		}
	}()
}

// Status returns a snapshot of the engine.
func (e *SyncEngine) Status() domain.SyncStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// OnStatus registers fn to run after each status change.
func (e *SyncEngine) OnStatus(fn func()) func() {
	return e.statusChanged.Subscribe(fn)
}

// LoadCursor reads the persisted cursor into the status.
func (e *SyncEngine) LoadCursor(ctx context.Context) error {
	cursor, err := e.readCursor(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.status.Cursor = cursor
	e.mu.Unlock()
	return nil
}

// Close cancels background cycles and waits for them to return.
func (e *SyncEngine) Close() {
	e.cancel()
	e.wg.Wait()
	e.statusChanged.Close()
}

func (e *SyncEngine) cycle(ctx context.Context, result *domain.CycleResult) error {
	if e.exchanger == nil {
		return fmt.Errorf("%w: no exchange configured", domain.ErrExchange)
	}

	// 1. Collect pending local writes
	pending, err := e.store.ListUnsynced(ctx)
	if err != nil {
		return fmt.Errorf("collect unsynced: %w", err)
	}
	outgoing := make([]domain.UnsyncedRecord, 0, len(pending))
	pushed := make(map[string]domain.Record, len(pending))
	for _, r := range pending {
		outgoing = append(outgoing, r.ToUnsynced())
		pushed[r.ID] = r
	}
	result.Pushed = len(outgoing)

	// 2. Read the cursor
	cursor, err := e.readCursor(ctx)
	if err != nil {
		return err
	}

	// 3. Exchange
	exCtx := ctx
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		exCtx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}
	logger.Debug("sync %s: pushing %d records (cursor %q)", e.opts.CursorKey, len(outgoing), cursor)
	response, err := e.exchanger.Exchange(exCtx, outgoing, e.opts.Namespace, cursor)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrExchange, err)
	}
	if response == nil {
		return fmt.Errorf("%w: empty response", domain.ErrExchange)
	}

	// 4. Apply the authoritative state
	updated, deleted, unknown := response.Partition()
	for _, r := range unknown {
		logger.Warn("sync %s: skipping %s with unknown state %q", e.opts.CursorKey, r.ID, r.State)
	}
	updated, deleted, err = e.store.ApplyRemote(ctx, updated, deleted, e.acceptRemote(pushed))
	if err != nil {
		return fmt.Errorf("apply response: %w", err)
	}
	result.Updated = len(updated)
	result.Purged = len(deleted)

	// 5. Persist or clear the cursor
	if response.SyncCursor != "" {
		err = e.cursors.Save(ctx, domain.SyncState{
			Key:      e.opts.CursorKey,
			Cursor:   response.SyncCursor,
			LastSync: time.Now(),
		})
	} else {
		err = e.cursors.Delete(ctx, e.opts.CursorKey)
	}
	if err != nil {
		return fmt.Errorf("%w: save cursor: %w", domain.ErrStorageIO, err)
	}
	result.Cursor = response.SyncCursor

	logger.Info("sync %s: pushed %d, updated %d, purged %d",
		e.opts.CursorKey, result.Pushed, result.Updated, result.Purged)
	return nil
}

// acceptRemote reports whether the response may replace the stored record.
// A record written locally after the push snapshot was taken keeps its
// local state and goes out with the next cycle.
func (e *SyncEngine) acceptRemote(pushed map[string]domain.Record) func(string, *domain.Record) bool {
	return func(id string, current *domain.Record) bool {
		if current == nil || !current.Unsynced {
			return true
		}
		sent, ok := pushed[id]
		if ok && sent.Deleted == current.Deleted && bytes.Equal(sent.Data, current.Data) {
			return true
		}
		logger.Debug("sync %s: keeping newer local write of %s", e.opts.CursorKey, id)
		return false
	}
}

func (e *SyncEngine) readCursor(ctx context.Context) (string, error) {
	state, err := e.cursors.Get(ctx, e.opts.CursorKey)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: read cursor: %w", domain.ErrStorageIO, err)
	}
	return state.Cursor, nil
}

func (e *SyncEngine) setRunning(running bool) {
	e.mu.Lock()
	e.status.Running = running
	e.mu.Unlock()
	e.statusChanged.Notify()
}

func (e *SyncEngine) finish(result domain.CycleResult) {
	e.mu.Lock()
	e.status.Running = false
	e.status.Cycles++
	if result.Success {
		e.status.Cursor = result.Cursor
		e.status.LastSuccess = result.EndedAt
		e.status.LastError = ""
	} else {
		e.status.LastError = result.Error
		e.status.LastErrorAt = result.EndedAt
	}
	e.mu.Unlock()
	e.statusChanged.Notify()

	if e.history == nil {
		return
	}
	ctx := context.WithoutCancel(e.ctx)
	if err := e.history.RecordCycle(ctx, result); err != nil {
		logger.Warn("sync %s: failed to record cycle: %v", e.opts.CursorKey, err)
	}
	if err := e.history.Prune(ctx, historyKeep); err != nil {
		logger.Warn("sync %s: failed to prune history: %v", e.opts.CursorKey, err)
	}
}
