package domain

import "errors"

// Domain errors represent business logic failures.
// Infrastructure failures are wrapped with one of the storage or exchange
// sentinels so callers can classify them with errors.Is.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownType indicates a record type the store does not define.
	ErrUnknownType = errors.New("unknown record type")

	// ErrSyncInProgress indicates a sync cycle is already running.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrStoreClosed indicates the session has been closed.
	ErrStoreClosed = errors.New("store closed")

	// Storage Errors.

	// ErrStorageOpen indicates the durable store failed to open.
	// Pending operations fail and the next operation retries the open.
	ErrStorageOpen = errors.New("storage open failed")

	// ErrStorageIO indicates a single read, write or delete failed.
	// The store remains usable.
	ErrStorageIO = errors.New("storage operation failed")

	// Sync Errors.

	// ErrExchange indicates the remote exchange call failed.
	// Local unsynced state is preserved for the next cycle.
	ErrExchange = errors.New("exchange failed")

	// ErrValidation indicates an exchange received malformed records.
	ErrValidation = errors.New("validation failed")

	// ErrSubscriber indicates a notification subscriber panicked.
	ErrSubscriber = errors.New("subscriber failed")
)
