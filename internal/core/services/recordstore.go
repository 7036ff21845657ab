package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/wirestore/internal/core/domain"
	"github.com/custodia-labs/wirestore/internal/core/ports/driven"
)

// WriteHook runs before a record is persisted by Put.
// It may modify the record. An error fails the enclosing Put.
type WriteHook func(ctx context.Context, record *domain.Record) error

// RecordStore layers batching, change notification and write hooks over a
// driven.RecordStore. The underlying handle is opened lazily: concurrent
// callers share one open, and a failed open is retried by the next call.
type RecordStore struct {
	opener driven.StoreOpener
	name   string
	bus    *ChangeBus

	open   singleflight.Group
	mu     sync.Mutex
	handle driven.RecordStore
	hooks  []WriteHook

	// writeMu serialises writes so ApplyRemote can check a stored record
	// and replace it without a local write landing in between.
	writeMu sync.Mutex
}

// NewRecordStore creates a record store for the named database.
// bus may be nil, in which case no change notifications are raised.
func NewRecordStore(opener driven.StoreOpener, databaseName string, bus *ChangeBus) *RecordStore {
	return &RecordStore{
		opener: opener,
		name:   databaseName,
		bus:    bus,
	}
}

// Name returns the database name.
func (s *RecordStore) Name() string {
	return s.name
}

// AddWriteHook registers a hook. Hooks run in registration order.
func (s *RecordStore) AddWriteHook(hook WriteHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Open opens the underlying database if it is not open yet.
func (s *RecordStore) Open(ctx context.Context) error {
	_, err := s.db(ctx)
	return err
}

// db returns the open handle, opening it at most once across concurrent callers.
func (s *RecordStore) db(ctx context.Context) (driven.RecordStore, error) {
	s.mu.Lock()
	h := s.handle
	s.mu.Unlock()
	if h != nil {
		return h, nil
	}

	// The shared open must not be cancelled by whichever caller started it.
	openCtx := context.WithoutCancel(ctx)
	v, err, _ := s.open.Do(s.name, func() (any, error) {
		s.mu.Lock()
		if s.handle != nil {
			h := s.handle
			s.mu.Unlock()
			return h, nil
		}
		s.mu.Unlock()

		h, err := s.opener.Open(openCtx, s.name)
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %w", domain.ErrStorageOpen, s.name, err)
		}

		s.mu.Lock()
		s.handle = h
		s.mu.Unlock()
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(driven.RecordStore), nil
}

// Close releases the handle. The next operation reopens it.
func (s *RecordStore) Close() error {
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	s.mu.Unlock()

	if h == nil {
		return nil
	}
	return h.Close()
}

// Put upserts records and touches each written type once.
// Records are written exactly as given; callers set Unsynced and Deleted.
func (s *RecordStore) Put(ctx context.Context, records ...domain.Record) error {
	if len(records) == 0 {
		return nil
	}

	records, err := s.runHooks(ctx, records)
	if err != nil {
		return err
	}

	h, err := s.db(ctx)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	err = writeAll(ctx, h, records)
	s.writeMu.Unlock()
	if err != nil {
		return storageErr("put", err)
	}

	s.touch(typesOf(records))
	return nil
}

// Purge hard-deletes ids. Ids without a stored record are ignored.
func (s *RecordStore) Purge(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	h, err := s.db(ctx)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	existing, err := lookup(ctx, h, ids)
	if err == nil {
		err = deleteAll(ctx, h, existing)
	}
	s.writeMu.Unlock()
	if err != nil {
		return storageErr("purge", err)
	}

	s.touch(typesOf(existing))
	return nil
}

// ApplyRemote writes the exchange's authoritative records and purges the
// ids it reports deleted. Each id is offered to replace together with the
// stored record (nil when absent); ids it refuses are left untouched. The
// check and the write happen under the lock local writes take, so a local
// edit is either seen by replace or lands after the remote state.
// It returns the records written and the ids accepted for purging.
func (s *RecordStore) ApplyRemote(
	ctx context.Context,
	updated []domain.Record,
	deleted []string,
	replace func(id string, current *domain.Record) bool,
) ([]domain.Record, []string, error) {
	if len(updated) == 0 && len(deleted) == 0 {
		return nil, nil, nil
	}

	// Hooks may write through this store, so they run before the lock.
	updated, err := s.runHooks(ctx, updated)
	if err != nil {
		return nil, nil, err
	}

	h, err := s.db(ctx)
	if err != nil {
		return nil, nil, err
	}

	s.writeMu.Lock()
	written, purged, doomed, err := applyLocked(ctx, h, updated, deleted, replace)
	s.writeMu.Unlock()
	if err != nil {
		return nil, nil, storageErr("apply", err)
	}

	s.touch(typesOf(append(append([]domain.Record(nil), written...), doomed...)))
	return written, purged, nil
}

func applyLocked(
	ctx context.Context,
	h driven.RecordStore,
	updated []domain.Record,
	deleted []string,
	replace func(id string, current *domain.Record) bool,
) (written []domain.Record, purged []string, doomed []domain.Record, err error) {
	current := func(id string) (*domain.Record, error) {
		r, err := h.Get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return r, err
	}

	for _, r := range updated {
		cur, err := current(r.ID)
		if err != nil {
			return nil, nil, nil, err
		}
		if replace(r.ID, cur) {
			written = append(written, r)
		}
	}
	for _, id := range deleted {
		cur, err := current(id)
		if err != nil {
			return nil, nil, nil, err
		}
		if !replace(id, cur) {
			continue
		}
		purged = append(purged, id)
		if cur != nil {
			doomed = append(doomed, *cur)
		}
	}

	if err := writeAll(ctx, h, written); err != nil {
		return nil, nil, nil, err
	}
	if err := deleteAll(ctx, h, doomed); err != nil {
		return nil, nil, nil, err
	}
	return written, purged, doomed, nil
}

// writeAll upserts records, in one transaction when h supports it.
func writeAll(ctx context.Context, h driven.RecordStore, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	if bw, ok := h.(driven.BatchWriter); ok {
		return bw.PutAll(ctx, records)
	}
	var g errgroup.Group
	for _, r := range records {
		g.Go(func() error {
			return h.Put(ctx, r)
		})
	}
	return g.Wait()
}

// lookup returns the stored records among ids. Missing ids are skipped.
func lookup(ctx context.Context, h driven.RecordStore, ids []string) ([]domain.Record, error) {
	found := make([]*domain.Record, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			r, err := h.Get(gctx, id)
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			found[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	existing := make([]domain.Record, 0, len(found))
	for _, r := range found {
		if r != nil {
			existing = append(existing, *r)
		}
	}
	return existing, nil
}

// deleteAll hard-deletes records, in one transaction when h supports it.
func deleteAll(ctx context.Context, h driven.RecordStore, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	if bw, ok := h.(driven.BatchWriter); ok {
		ids := make([]string, 0, len(records))
		for _, r := range records {
			ids = append(ids, r.ID)
		}
		return bw.DeleteAll(ctx, ids)
	}
	var g errgroup.Group
	for _, r := range records {
		g.Go(func() error {
			return h.Delete(ctx, r.ID)
		})
	}
	return g.Wait()
}

// GetRaw returns the stored record including soft-deleted state.
// Returns domain.ErrNotFound if no record is stored under id.
func (s *RecordStore) GetRaw(ctx context.Context, id string) (*domain.Record, error) {
	h, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	r, err := h.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, storageErr("get", err)
	}
	return r, nil
}

// ListByType returns all stored records of a type, including soft-deleted ones.
func (s *RecordStore) ListByType(ctx context.Context, recordType string) ([]domain.Record, error) {
	h, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	records, err := h.ListByType(ctx, recordType)
	if err != nil {
		return nil, storageErr("list", err)
	}
	return records, nil
}

// ListUnsynced returns every record carrying the unsynced marker.
func (s *RecordStore) ListUnsynced(ctx context.Context) ([]domain.Record, error) {
	h, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	records, err := h.ListUnsynced(ctx)
	if err != nil {
		return nil, storageErr("list unsynced", err)
	}
	return records, nil
}

func (s *RecordStore) runHooks(ctx context.Context, records []domain.Record) ([]domain.Record, error) {
	s.mu.Lock()
	hooks := s.hooks
	s.mu.Unlock()
	if len(hooks) == 0 {
		return records, nil
	}

	out := make([]domain.Record, len(records))
	copy(out, records)
	for i := range out {
		for _, hook := range hooks {
			if err := hook(ctx, &out[i]); err != nil {
				return nil, fmt.Errorf("write hook for %s: %w", out[i].ID, err)
			}
		}
	}
	return out, nil
}

func (s *RecordStore) touch(types []string) {
	if s.bus == nil {
		return
	}
	_ = s.bus.Batch(func() error {
		for _, t := range types {
			s.bus.Touch(t)
		}
		return nil
	})
}

func typesOf(records []domain.Record) []string {
	seen := make(map[string]struct{}, len(records))
	var types []string
	for _, r := range records {
		if _, ok := seen[r.Type]; ok {
			continue
		}
		seen[r.Type] = struct{}{}
		types = append(types, r.Type)
	}
	return types
}

// storageErr names the failed operation and keeps both the sentinel and the cause.
func storageErr(op string, err error) error {
	if errors.Is(err, domain.ErrStorageOpen) || errors.Is(err, domain.ErrStorageIO) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStorageIO, op, err)
}
