package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/wirestore/internal/core/domain"
	"github.com/custodia-labs/wirestore/internal/core/ports/driving"
	"github.com/custodia-labs/wirestore/internal/logger"
)

// ReadHook runs before a record is returned from Get or All.
// It may modify the record. An error fails the enclosing read.
type ReadHook func(ctx context.Context, record *domain.Record) error

// Collection is the public record API for one record type.
//
// Writes are marked unsynced and announced on the write notifier. Reads
// never return soft-deleted records.
type Collection struct {
	recordType string
	store      *RecordStore
	bus        *ChangeBus
	writes     *Notifier

	mu    sync.Mutex
	hooks []ReadHook
}

// Ensure Collection implements the interface.
var _ driving.RecordService = (*Collection)(nil)

// NewCollection creates the record API for recordType.
// writes may be nil when nothing listens for local writes.
func NewCollection(recordType string, store *RecordStore, bus *ChangeBus, writes *Notifier) *Collection {
	return &Collection{
		recordType: recordType,
		store:      store,
		bus:        bus,
		writes:     writes,
	}
}

// Type returns the record type.
func (c *Collection) Type() string {
	return c.recordType
}

// AddReadHook registers a hook. Hooks run in registration order.
func (c *Collection) AddReadHook(hook ReadHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, hook)
}

// Set writes data under id as an unsynced record.
//
// data is cloned through encoding/json, so unexported and `json:"-"` fields
// are dropped. Values JSON cannot encode are dropped as well: functions and
// channels disappear from objects and NaN or infinite floats become null.
func (c *Collection) Set(ctx context.Context, id string, data any) error {
	if id == "" {
		return fmt.Errorf("%w: record id is required", domain.ErrInvalidInput)
	}
	raw, dropped, err := encodePayload(data)
	if err != nil {
		return fmt.Errorf("%w: record %s: %w", domain.ErrInvalidInput, id, err)
	}
	if dropped {
		logger.Warn("%s %s: dropped values JSON cannot encode", c.recordType, id)
	}
	if err := c.checkType(ctx, id); err != nil {
		return err
	}

	record := domain.Record{
		ID:       id,
		Type:     c.recordType,
		Data:     raw,
		Unsynced: true,
	}
	if err := c.store.Put(ctx, record); err != nil {
		return err
	}
	c.announce()
	return nil
}

// Delete writes a tombstone for each id, whether or not a record exists.
func (c *Collection) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	tombstones := make([]domain.Record, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			return fmt.Errorf("%w: record id is required", domain.ErrInvalidInput)
		}
		if err := c.checkType(ctx, id); err != nil {
			return err
		}
		tombstones = append(tombstones, domain.Tombstone(id, c.recordType))
	}
	if err := c.store.Put(ctx, tombstones...); err != nil {
		return err
	}
	c.announce()
	return nil
}

// Get returns the data stored under id.
// The bool is false if the record does not exist or is soft-deleted.
func (c *Collection) Get(ctx context.Context, id string) (json.RawMessage, bool, error) {
	c.Observe()

	record, err := c.store.GetRaw(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if record.Deleted || record.Type != c.recordType {
		return nil, false, nil
	}
	if err := c.runHooks(ctx, record); err != nil {
		return nil, false, err
	}
	return record.Data, true, nil
}

// All returns the data of every live record of this type.
func (c *Collection) All(ctx context.Context) ([]json.RawMessage, error) {
	records, err := c.Records(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, 0, len(records))
	for _, r := range records {
		out = append(out, r.Data)
	}
	return out, nil
}

// Records is All with ids attached.
func (c *Collection) Records(ctx context.Context) ([]domain.Record, error) {
	c.Observe()

	records, err := c.store.ListByType(ctx, c.recordType)
	if err != nil {
		return nil, err
	}
	live := make([]domain.Record, 0, len(records))
	for i := range records {
		if records[i].Deleted {
			continue
		}
		if err := c.runHooks(ctx, &records[i]); err != nil {
			return nil, err
		}
		live = append(live, records[i])
	}
	return live, nil
}

// Observe returns the change token of this type.
func (c *Collection) Observe() string {
	if c.bus == nil {
		return ""
	}
	return c.bus.Observe(c.recordType)
}

// Watch returns a channel of change tokens for this type.
func (c *Collection) Watch(ctx context.Context) <-chan string {
	if c.bus == nil {
		ch := make(chan string)
		go func() {
			<-ctx.Done()
			close(ch)
		}()
		return ch
	}
	return c.bus.Watch(ctx, c.recordType)
}

// checkType rejects writes to an id already stored under another type.
func (c *Collection) checkType(ctx context.Context, id string) error {
	existing, err := c.store.GetRaw(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.Type != c.recordType {
		return fmt.Errorf("%w: record %s has type %q, not %q", domain.ErrInvalidInput, id, existing.Type, c.recordType)
	}
	return nil
}

func (c *Collection) runHooks(ctx context.Context, record *domain.Record) error {
	c.mu.Lock()
	hooks := c.hooks
	c.mu.Unlock()

	for _, hook := range hooks {
		if err := hook(ctx, record); err != nil {
			return fmt.Errorf("read hook for %s: %w", record.ID, err)
		}
	}
	return nil
}

func (c *Collection) announce() {
	if c.writes != nil {
		c.writes.Notify()
	}
}

// TypedCollection wraps a Collection with JSON decoding into T.
type TypedCollection[T any] struct {
	c *Collection
}

// NewTypedCollection wraps c.
func NewTypedCollection[T any](c *Collection) *TypedCollection[T] {
	return &TypedCollection[T]{c: c}
}

// Collection returns the untyped collection.
func (t *TypedCollection[T]) Collection() *Collection {
	return t.c
}

// Set writes value under id.
func (t *TypedCollection[T]) Set(ctx context.Context, id string, value T) error {
	return t.c.Set(ctx, id, value)
}

// Delete soft-deletes ids.
func (t *TypedCollection[T]) Delete(ctx context.Context, ids ...string) error {
	return t.c.Delete(ctx, ids...)
}

// Get decodes the record stored under id.
func (t *TypedCollection[T]) Get(ctx context.Context, id string) (T, bool, error) {
	var value T
	raw, ok, err := t.c.Get(ctx, id)
	if err != nil || !ok {
		return value, ok, err
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, false, fmt.Errorf("decoding record %s: %w", id, err)
	}
	return value, true, nil
}

// All decodes every live record.
func (t *TypedCollection[T]) All(ctx context.Context) ([]T, error) {
	raws, err := t.c.All(ctx)
	if err != nil {
		return nil, err
	}
	values := make([]T, 0, len(raws))
	for _, raw := range raws {
		var value T
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("decoding %s record: %w", t.c.recordType, err)
		}
		values = append(values, value)
	}
	return values, nil
}
