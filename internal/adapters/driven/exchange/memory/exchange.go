// Package memory provides an in-memory authoritative exchange.
//
// It is the reference server side of the push-pull protocol: accepted writes
// are stored last-writer-wins per namespace and record ID, deletes are kept
// as tombstones so other clients learn about them, and every response carries
// all records changed after the caller's cursor, including the caller's own
// writes. Cursors are decimal sequence numbers.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/custodia-labs/wirestore/internal/core/domain"
	"github.com/custodia-labs/wirestore/internal/core/ports/driven"
)

// Ensure Exchange implements the interface.
var _ driven.Exchanger = (*Exchange)(nil)

type entry struct {
	record domain.SyncedRecord
	seq    uint64
}

// Exchange is an in-memory implementation of driven.Exchanger.
type Exchange struct {
	types []string

	mu         sync.Mutex
	seq        uint64
	namespaces map[string]map[string]entry
	calls      int
}

// New creates an exchange accepting the given record types.
func New(types []string) *Exchange {
	return &Exchange{
		types:      append([]string(nil), types...),
		namespaces: make(map[string]map[string]entry),
	}
}

// Types returns the accepted record types.
func (e *Exchange) Types() []string {
	return append([]string(nil), e.types...)
}

// Exchange applies records and returns everything changed after cursor.
func (e *Exchange) Exchange(ctx context.Context, records []domain.UnsyncedRecord, namespace, cursor string) (*domain.ExchangeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if records == nil {
		records = []domain.UnsyncedRecord{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	records, err = domain.ValidateUnsyncedRecords(payload, e.types)
	if err != nil {
		return nil, err
	}

	since, err := parseCursor(cursor)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++

	ns, ok := e.namespaces[namespace]
	if !ok {
		ns = make(map[string]entry)
		e.namespaces[namespace] = ns
	}

	for _, r := range records {
		e.seq++
		synced := domain.SyncedRecord{ID: r.ID, Type: r.Type, State: r.State, Data: r.Data}
		if r.State == domain.StateDeleted {
			synced.Data = json.RawMessage(`{}`)
		}
		ns[r.ID] = entry{record: synced, seq: e.seq}
	}

	changed := make([]entry, 0, len(ns))
	for _, en := range ns {
		if en.seq > since {
			changed = append(changed, en)
		}
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].seq < changed[j].seq })

	result := &domain.ExchangeResult{Records: make([]domain.SyncedRecord, 0, len(changed))}
	for _, en := range changed {
		result.Records = append(result.Records, en.record)
	}
	if e.seq > 0 {
		result.SyncCursor = strconv.FormatUint(e.seq, 10)
	}
	return result, nil
}

// Records returns the server state of a namespace ordered by last write.
func (e *Exchange) Records(namespace string) []domain.SyncedRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := make([]entry, 0, len(e.namespaces[namespace]))
	for _, en := range e.namespaces[namespace] {
		entries = append(entries, en)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]domain.SyncedRecord, 0, len(entries))
	for _, en := range entries {
		out = append(out, en.record)
	}
	return out
}

// Calls returns how many exchanges were accepted.
func (e *Exchange) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func parseCursor(cursor string) (uint64, error) {
	if cursor == "" {
		return 0, nil
	}
	seq, err := strconv.ParseUint(cursor, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed cursor %q", domain.ErrValidation, cursor)
	}
	return seq, nil
}
