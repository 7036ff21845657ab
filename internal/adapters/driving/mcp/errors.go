// Package mcp provides an MCP (Model Context Protocol) server adapter for wirestore.
// It lets AI assistants read and write records and trigger a sync.
package mcp

import "errors"

var (
	// ErrMissingRecords is returned when no record service is provided.
	ErrMissingRecords = errors.New("mcp: at least one record service is required")

	// ErrMissingSyncEngine is returned when the sync engine is not provided.
	ErrMissingSyncEngine = errors.New("mcp: sync engine is required")

	// ErrUnknownType is returned when a tool names a type that is not served.
	ErrUnknownType = errors.New("mcp: unknown record type")
)
