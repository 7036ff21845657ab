package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/wirestore/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/wirestore/internal/core/domain"
	"github.com/custodia-labs/wirestore/internal/core/ports/driven"
)

// Opener opens record databases as SQLite files inside a data directory.
// Each database name maps to its own file, so namespaces never share rows.
type Opener struct {
	dataDir string
}

var _ driven.StoreOpener = (*Opener)(nil)

// NewOpener creates an opener rooted at dataDir.
// If dataDir is empty, defaults to ~/.wirestore/data.
func NewOpener(dataDir string) (*Opener, error) {
	dataDir, err := ensureDataDir(dataDir)
	if err != nil {
		return nil, err
	}
	return &Opener{dataDir: dataDir}, nil
}

// PathFor returns the file path used for a database name.
func (o *Opener) PathFor(databaseName string) string {
	return filepath.Join(o.dataDir, url.QueryEscape(databaseName)+".db")
}

// Open opens or creates the record database and applies its schema.
func (o *Opener) Open(ctx context.Context, databaseName string) (driven.RecordStore, error) {
	db, err := openDB(ctx, o.PathFor(databaseName))
	if err != nil {
		return nil, err
	}

	schema, err := fs.Sub(migrations.Records, "records")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading migrations: %w", err)
	}
	if err := migrate(db, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &RecordStore{db: db, name: databaseName}, nil
}

// RecordStore is a handle to one SQLite record database.
type RecordStore struct {
	db     *sql.DB
	name   string
	closed atomic.Bool
}

var (
	_ driven.RecordStore = (*RecordStore)(nil)
	_ driven.BatchWriter = (*RecordStore)(nil)
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const upsertRecordSQL = `
	INSERT INTO records (id, type, data, deleted, unsynced, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		type = excluded.type,
		data = excluded.data,
		deleted = excluded.deleted,
		unsynced = excluded.unsynced,
		updated_at = excluded.updated_at
`

func putRecord(ctx context.Context, ex execer, record domain.Record) error {
	data := record.Data
	if len(data) == 0 {
		data = json.RawMessage(`null`)
	}
	var unsynced any
	if record.Unsynced {
		unsynced = domain.UnsyncedMarker
	}
	_, err := ex.ExecContext(ctx, upsertRecordSQL,
		record.ID, record.Type, string(data), boolToInt(record.Deleted), unsynced,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving record %s: %w", record.ID, err)
	}
	return nil
}

// Put upserts one record.
func (s *RecordStore) Put(ctx context.Context, record domain.Record) error {
	if s.closed.Load() {
		return domain.ErrStoreClosed
	}
	return putRecord(ctx, s.db, record)
}

// Delete hard-deletes a record.
func (s *RecordStore) Delete(ctx context.Context, id string) error {
	if s.closed.Load() {
		return domain.ErrStoreClosed
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting record %s: %w", id, err)
	}
	return nil
}

// PutAll upserts all records in one transaction.
func (s *RecordStore) PutAll(ctx context.Context, records []domain.Record) error {
	if s.closed.Load() {
		return domain.ErrStoreClosed
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, record := range records {
			if err := putRecord(ctx, tx, record); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteAll hard-deletes all ids in one transaction.
func (s *RecordStore) DeleteAll(ctx context.Context, ids []string) error {
	if s.closed.Load() {
		return domain.ErrStoreClosed
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE id = ?", id); err != nil {
				return fmt.Errorf("deleting record %s: %w", id, err)
			}
		}
		return nil
	})
}

func (s *RecordStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Get returns the raw record including soft-deleted state.
func (s *RecordStore) Get(ctx context.Context, id string) (*domain.Record, error) {
	if s.closed.Load() {
		return nil, domain.ErrStoreClosed
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, data, deleted, unsynced
		FROM records WHERE id = ?
	`, id)

	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListByType returns all records of a type via the type index.
func (s *RecordStore) ListByType(ctx context.Context, recordType string) ([]domain.Record, error) {
	if s.closed.Load() {
		return nil, domain.ErrStoreClosed
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, data, deleted, unsynced
		FROM records
		WHERE type = ?
	`, recordType)
	if err != nil {
		return nil, fmt.Errorf("querying records by type: %w", err)
	}
	return scanRecords(rows)
}

// ListUnsynced returns all pending records via the unsynced index.
func (s *RecordStore) ListUnsynced(ctx context.Context) ([]domain.Record, error) {
	if s.closed.Load() {
		return nil, domain.ErrStoreClosed
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, data, deleted, unsynced
		FROM records
		WHERE unsynced = ?
	`, domain.UnsyncedMarker)
	if err != nil {
		return nil, fmt.Errorf("querying unsynced records: %w", err)
	}
	return scanRecords(rows)
}

// Close closes the database. Further calls fail with domain.ErrStoreClosed.
func (s *RecordStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// Name returns the database name this handle was opened with.
func (s *RecordStore) Name() string {
	return s.name
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.Record, error) {
	var record domain.Record
	var data string
	var deleted int
	var unsynced sql.NullString

	if err := row.Scan(&record.ID, &record.Type, &data, &deleted, &unsynced); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning record: %w", err)
	}

	record.Data = json.RawMessage(data)
	record.Deleted = deleted == 1
	record.Unsynced = unsynced.Valid && unsynced.String == domain.UnsyncedMarker
	return &record, nil
}

func scanRecords(rows *sql.Rows) ([]domain.Record, error) {
	defer rows.Close()

	var records []domain.Record //nolint:prealloc // size unknown from query
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}
