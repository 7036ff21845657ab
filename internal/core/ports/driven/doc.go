// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - StoreOpener / RecordStore: Durable record storage with type and unsynced indexes
//   - SyncStateStore: Sync cursor persistence
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Exchanger: Remote push-pull endpoint. Without it, sync cycles are skipped.
//   - SyncHistoryStore: Sync cycle history. Without it, only the live status is kept.
//   - ConfigStore: Application configuration. Without it, defaults apply.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
