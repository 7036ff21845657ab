package driven

import (
	"context"

	"github.com/custodia-labs/wirestore/internal/core/domain"
)

// Exchanger is the remote push-pull endpoint.
//
// Implementations must treat re-delivery of the same record ID idempotently,
// are authoritative over final record state, and must echo the caller's own
// accepted writes in the response so the client can clear their unsynced
// marker.
type Exchanger interface {
	// Exchange sends unsynced records and the last cursor, and returns the
	// authoritative records and the new cursor. An empty cursor means the
	// client has received nothing yet.
	Exchange(ctx context.Context, records []domain.UnsyncedRecord, namespace, cursor string) (*domain.ExchangeResult, error)
}

// ExchangeFunc adapts a function to Exchanger.
type ExchangeFunc func(ctx context.Context, records []domain.UnsyncedRecord, namespace, cursor string) (*domain.ExchangeResult, error)

// Exchange calls f.
func (f ExchangeFunc) Exchange(ctx context.Context, records []domain.UnsyncedRecord, namespace, cursor string) (*domain.ExchangeResult, error) {
	return f(ctx, records, namespace, cursor)
}
