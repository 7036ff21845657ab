// Package domain defines the core entities of the local-first record store.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Record: a typed, soft-deletable unit of application data
//   - UnsyncedRecord: a local write pushed to the remote exchange
//   - SyncedRecord: the server's authoritative state for a record
//   - SyncState: the persisted sync cursor slot
//   - SyncStatus: a snapshot of the sync engine
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
