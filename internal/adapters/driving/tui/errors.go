package tui

import "errors"

// ErrMissingRecordService is returned when the record service is not provided.
var ErrMissingRecordService = errors.New("tui: record service is required")

// ErrMissingSyncEngine is returned when the sync engine is not provided.
var ErrMissingSyncEngine = errors.New("tui: sync engine is required")
