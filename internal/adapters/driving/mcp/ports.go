package mcp

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/wirestore/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Records are the record services keyed by record type.
	Records map[string]driving.RecordService

	// Sync runs sync cycles and reports status.
	Sync driving.SyncEngine
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if len(p.Records) == 0 {
		return ErrMissingRecords
	}
	if p.Sync == nil {
		return ErrMissingSyncEngine
	}
	return nil
}

// Types returns the served record types in sorted order.
func (p *Ports) Types() []string {
	types := make([]string, 0, len(p.Records))
	for t := range p.Records {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// record returns the service for recordType.
func (p *Ports) record(recordType string) (driving.RecordService, error) {
	svc, ok := p.Records[recordType]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownType, recordType, p.Types())
	}
	return svc, nil
}
