// Package sqlite provides SQLite-based implementations of the storage ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. It is split across two kinds of database file:
//
//   - metadata.db: sync cursors (SyncStateStore) and cycle history (SyncHistoryStore)
//   - one file per record database name: records with a type index and a
//     partial index over the unsynced marker (Opener, RecordStore)
//
// # Schema
//
// Schemas are managed through versioned migrations embedded from the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, files are stored under ~/.wirestore/data/
//
// # Thread Safety
//
// All operations are thread-safe. Each database is opened in WAL mode with a
// single connection.
package sqlite
