package services

import (
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/wirestore/internal/core/domain"
	"github.com/custodia-labs/wirestore/internal/logger"
)

// Notifier is a debounced fan-out of "something changed" signals.
//
// Notify never blocks: delivery happens on a separate goroutine after the
// debounce delay, and notifications raised while one is pending are
// coalesced into it. A subscriber that panics is logged and does not stop
// other subscribers or later notifications.
type Notifier struct {
	name     string
	debounce time.Duration

	mu     sync.Mutex
	subs   map[uint64]func()
	nextID uint64
	timer  *time.Timer
	closed bool
}

// NewNotifier creates a notifier. name is used in log messages.
func NewNotifier(name string, debounce time.Duration) *Notifier {
	if debounce < 0 {
		debounce = 0
	}
	return &Notifier{
		name:     name,
		debounce: debounce,
		subs:     make(map[uint64]func()),
	}
}

// Subscribe registers fn. Subscribers run in registration order.
// The returned function unregisters fn and is safe to call more than once.
func (n *Notifier) Subscribe(fn func()) (unsubscribe func()) {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

// Notify schedules a delivery to all subscribers.
func (n *Notifier) Notify() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed || n.timer != nil {
		return
	}
	n.timer = time.AfterFunc(n.debounce, n.deliver)
}

// Close cancels any pending delivery and ignores further notifications.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.closed = true
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

func (n *Notifier) deliver() {
	n.mu.Lock()
	n.timer = nil
	if n.closed {
		n.mu.Unlock()
		return
	}
	ids := make([]uint64, 0, len(n.subs))
	for id := range n.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, n.subs[id])
	}
	n.mu.Unlock()

	for _, fn := range fns {
		n.call(fn)
	}
}

func (n *Notifier) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("%s: %v: %v", n.name, domain.ErrSubscriber, r)
		}
	}()
	fn()
}
