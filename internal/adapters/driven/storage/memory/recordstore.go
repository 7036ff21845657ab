package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/wirestore/internal/core/domain"
	"github.com/custodia-labs/wirestore/internal/core/ports/driven"
)

// Ensure the record store types implement the interfaces.
var (
	_ driven.StoreOpener = (*Opener)(nil)
	_ driven.RecordStore = (*RecordStore)(nil)
)

// Fault decides whether an operation fails. op is one of
// "put", "delete", "get", "list-type" or "list-unsynced"; id is the record
// ID or type the operation targets.
type Fault func(op, id string) error

// Database is a named in-memory record database.
// It outlives the handles opened on it, like a database file would.
type Database struct {
	mu      sync.RWMutex
	records map[string]domain.Record
	// unsynced indexes the ids of records carrying the unsynced marker.
	unsynced map[string]struct{}
	fault    Fault
}

func newDatabase() *Database {
	return &Database{
		records:  make(map[string]domain.Record),
		unsynced: make(map[string]struct{}),
	}
}

// SetFault installs a fault injector. Pass nil to remove it.
func (d *Database) SetFault(f Fault) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fault = f
}

// Len returns the number of stored rows, including soft-deleted ones.
func (d *Database) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

func (d *Database) check(op, id string) error {
	if d.fault == nil {
		return nil
	}
	return d.fault(op, id)
}

// Opener is an in-memory implementation of driven.StoreOpener.
type Opener struct {
	mu       sync.Mutex
	dbs      map[string]*Database
	opens    int
	openHook func(ctx context.Context, name string) error
}

// NewOpener creates an opener with no databases.
func NewOpener() *Opener {
	return &Opener{dbs: make(map[string]*Database)}
}

// SetOpenHook installs a function run on every Open before the handle is
// created. A non-nil error fails the open.
func (o *Opener) SetOpenHook(hook func(ctx context.Context, name string) error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.openHook = hook
}

// Opens returns how many times Open succeeded.
func (o *Opener) Opens() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens
}

// Database returns the named database, creating it if needed.
func (o *Opener) Database(name string) *Database {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.database(name)
}

func (o *Opener) database(name string) *Database {
	db, ok := o.dbs[name]
	if !ok {
		db = newDatabase()
		o.dbs[name] = db
	}
	return db
}

// Open opens a handle on the named database.
func (o *Opener) Open(ctx context.Context, name string) (driven.RecordStore, error) {
	o.mu.Lock()
	hook := o.openHook
	o.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, name); err != nil {
			return nil, err
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.opens++
	return &RecordStore{db: o.database(name)}, nil
}

// RecordStore is a handle on an in-memory Database.
type RecordStore struct {
	db *Database

	mu     sync.RWMutex
	closed bool
}

// NewRecordStore creates a standalone in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{db: newDatabase()}
}

func (s *RecordStore) usable() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	return nil
}

// Put upserts one record by ID.
func (s *RecordStore) Put(_ context.Context, record domain.Record) error {
	if err := s.usable(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("put", record.ID); err != nil {
		return err
	}
	s.db.records[record.ID] = clone(record)
	if record.Unsynced {
		s.db.unsynced[record.ID] = struct{}{}
	} else {
		delete(s.db.unsynced, record.ID)
	}
	return nil
}

// Delete hard-deletes a record by ID.
func (s *RecordStore) Delete(_ context.Context, id string) error {
	if err := s.usable(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("delete", id); err != nil {
		return err
	}
	delete(s.db.records, id)
	delete(s.db.unsynced, id)
	return nil
}

// Get returns the raw record by ID.
func (s *RecordStore) Get(_ context.Context, id string) (*domain.Record, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if err := s.db.check("get", id); err != nil {
		return nil, err
	}
	rec, ok := s.db.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	rec = clone(rec)
	return &rec, nil
}

// ListByType returns all raw records of a type ordered by ID.
func (s *RecordStore) ListByType(_ context.Context, recordType string) ([]domain.Record, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if err := s.db.check("list-type", recordType); err != nil {
		return nil, err
	}
	var out []domain.Record
	for _, rec := range s.db.records {
		if rec.Type == recordType {
			out = append(out, clone(rec))
		}
	}
	return sortByID(out), nil
}

// ListUnsynced returns all records carrying the unsynced marker ordered by ID.
// It reads the unsynced index rather than scanning every record.
func (s *RecordStore) ListUnsynced(_ context.Context) ([]domain.Record, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if err := s.db.check("list-unsynced", ""); err != nil {
		return nil, err
	}
	out := make([]domain.Record, 0, len(s.db.unsynced))
	for id := range s.db.unsynced {
		out = append(out, clone(s.db.records[id]))
	}
	return sortByID(out), nil
}

// UnsyncedLen returns the number of records carrying the unsynced marker.
func (d *Database) UnsyncedLen() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.unsynced)
}

func sortByID(records []domain.Record) []domain.Record {
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

// Close releases the handle. The database keeps its records.
func (s *RecordStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func clone(r domain.Record) domain.Record {
	r.Data = bytes.Clone(r.Data)
	return r
}
