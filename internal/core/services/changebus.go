package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/wirestore/internal/logger"
)

// ChangeBus holds one change token per record type.
//
// Touch regenerates a type's token and notifies its watchers. Observe reads
// the current token without notifying anyone. Touches made inside Batch are
// coalesced so each type notifies at most once when the outermost batch ends.
type ChangeBus struct {
	mu       sync.Mutex
	tokens   map[string]string
	watchers map[string]map[chan string]struct{}
	depth    int
	pending  map[string]struct{}
}

// NewChangeBus creates a bus for the given record types.
// Every token starts out as the empty string.
func NewChangeBus(types []string) *ChangeBus {
	b := &ChangeBus{
		tokens:   make(map[string]string, len(types)),
		watchers: make(map[string]map[chan string]struct{}, len(types)),
		pending:  make(map[string]struct{}),
	}
	for _, t := range types {
		b.tokens[t] = ""
		b.watchers[t] = make(map[chan string]struct{})
	}
	return b
}

// Types returns the record types the bus knows about.
func (b *ChangeBus) Types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	types := make([]string, 0, len(b.tokens))
	for t := range b.tokens {
		types = append(types, t)
	}
	return types
}

// Touch regenerates the token of recordType.
// Unknown types are logged and ignored.
func (b *ChangeBus) Touch(recordType string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.tokens[recordType]; !ok {
		logger.Warn("change bus: touch of unknown record type %q", recordType)
		return
	}
	if b.depth > 0 {
		b.pending[recordType] = struct{}{}
		return
	}
	b.fireLocked(recordType)
}

// Observe returns the current token of recordType without notifying.
// Unknown types are logged and return the empty token.
func (b *ChangeBus) Observe(recordType string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	token, ok := b.tokens[recordType]
	if !ok {
		logger.Warn("change bus: observe of unknown record type %q", recordType)
	}
	return token
}

// Watch returns a channel that receives the new token each time recordType
// is touched. Slow readers only see the latest token. The channel is closed
// when ctx is done. Watching an unknown type returns a channel that is closed
// with ctx and never receives.
func (b *ChangeBus) Watch(ctx context.Context, recordType string) <-chan string {
	ch := make(chan string, 1)

	b.mu.Lock()
	set, ok := b.watchers[recordType]
	if !ok {
		logger.Warn("change bus: watch of unknown record type %q", recordType)
	} else {
		set[ch] = struct{}{}
	}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		if ok {
			delete(set, ch)
		}
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

// Batch runs fn with notifications deferred. Each type touched during fn is
// notified once after the outermost batch returns, even if fn fails.
func (b *ChangeBus) Batch(fn func() error) error {
	b.mu.Lock()
	b.depth++
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.depth--
		if b.depth > 0 {
			return
		}
		for t := range b.pending {
			b.fireLocked(t)
		}
		b.pending = make(map[string]struct{})
	}()

	return fn()
}

func (b *ChangeBus) fireLocked(recordType string) {
	token := newChangeToken()
	b.tokens[recordType] = token

	for ch := range b.watchers[recordType] {
		// Latest wins: replace an unread token instead of blocking.
		select {
		case ch <- token:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- token:
			default:
			}
		}
	}
}

// newChangeToken returns a unique token. Only uniqueness matters.
func newChangeToken() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), uuid.NewString()[:8])
}
