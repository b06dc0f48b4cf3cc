// Package eventbus provides the in-process broadcast bus that carries
// model.Event records from the scheduler and run manager out to any
// number of subscribers (the SSE/WebSocket surface, CLI followers,
// tests). Delivery is best-effort and non-blocking: a slow subscriber
// drops events rather than stalling the orchestrator.
package eventbus

import (
	"sync"

	"github.com/coderun-dev/fleet/internal/model"
)

const (
	// DefaultCap is the maximum number of events retained for catch-up.
	DefaultCap = 1000

	// DefaultCatchUp is the number of recent events a new subscription
	// receives immediately, oldest first.
	DefaultCatchUp = 50

	// defaultSubBuffer is the per-subscriber channel buffer size.
	defaultSubBuffer = 64
)

// Bus is a thread-safe publish/subscribe broadcaster with a bounded
// catch-up ring.
type Bus struct {
	mu       sync.Mutex
	subs     map[uint64]chan model.Event
	nextID   uint64
	recent   []model.Event
	cap      int
	catchUp  int
	subBufSz int
}

// New creates a Bus with the default ring cap and catch-up window.
func New() *Bus {
	return NewWithLimits(DefaultCap, DefaultCatchUp)
}

// NewWithLimits creates a Bus with an explicit ring cap and catch-up
// window. catchUp must not exceed cap; it is clamped if it does.
func NewWithLimits(cap, catchUp int) *Bus {
	if cap <= 0 {
		cap = DefaultCap
	}
	if catchUp <= 0 {
		catchUp = DefaultCatchUp
	}
	if catchUp > cap {
		catchUp = cap
	}
	return &Bus{
		subs:     make(map[uint64]chan model.Event),
		cap:      cap,
		catchUp:  catchUp,
		subBufSz: defaultSubBuffer,
	}
}

// Publish broadcasts evt to every current subscriber and records it in
// the catch-up ring. Subscribers whose channel is full do not receive
// evt; delivery never blocks the publisher.
func (b *Bus) Publish(evt model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.recent = append(b.recent, evt)
	if len(b.recent) > b.cap {
		b.recent = b.recent[len(b.recent)-b.cap:]
	}

	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			// Subscriber is behind; drop rather than block.
		}
	}
}

// Subscribe registers a new subscriber and returns its id, a
// receive-only channel of future events, and the most recent catch-up
// events (oldest first, up to the bus's catch-up window). The caller
// must call Unsubscribe when done to release the channel.
func (b *Bus) Subscribe() (id uint64, events <-chan model.Event, catchUp []model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id = b.nextID
	ch := make(chan model.Event, b.subBufSz)
	b.subs[id] = ch

	n := len(b.recent)
	start := 0
	if n > b.catchUp {
		start = n - b.catchUp
	}
	catchUp = append([]model.Event(nil), b.recent[start:]...)

	return id, ch, catchUp
}

// Unsubscribe removes a subscription and closes its channel. Safe to
// call more than once for the same id.
func (b *Bus) Unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// SubscriberCount returns the number of currently active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
