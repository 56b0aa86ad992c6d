package broadcast

import (
	"context"
	"maps"
	"sync"

	"github.com/roach88/emporium/internal/tabsync"
)

// Compile-time interface checks.
var (
	_ tabsync.Opener  = (*MemoryBus)(nil)
	_ tabsync.Channel = (*memoryEndpoint)(nil)
)

// MemoryBus is an in-process broadcast hub for tests and single-process
// sessions.
type MemoryBus struct {
	mu        sync.Mutex
	endpoints map[string][]*memoryEndpoint
	pending   []delivery
	auto      bool
	nextID    int
}

type delivery struct {
	to  *memoryEndpoint
	msg tabsync.Message
}

// MemoryOption configures a MemoryBus.
type MemoryOption func(*MemoryBus)

// WithAutoDeliver delivers each post synchronously inside Post.
func WithAutoDeliver() MemoryOption {
	return func(b *MemoryBus) { b.auto = true }
}

// NewMemoryBus creates an empty bus.
func NewMemoryBus(opts ...MemoryOption) *MemoryBus {
	b := &MemoryBus{endpoints: make(map[string][]*memoryEndpoint)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open creates a new endpoint on the named channel.
func (b *MemoryBus) Open(_ context.Context, name string) (tabsync.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	ep := &memoryEndpoint{bus: b, name: name, id: b.nextID}
	b.endpoints[name] = append(b.endpoints[name], ep)
	return ep, nil
}

// Endpoints returns the number of open endpoints on name.
func (b *MemoryBus) Endpoints(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.endpoints[name])
}

// Pending returns the number of queued deliveries.
func (b *MemoryBus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Deliver hands the oldest queued message to its recipient. Returns false
// when nothing is queued. Deliveries to endpoints closed since the post
// are discarded.
func (b *MemoryBus) Deliver() bool {
	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return false
	}
	d := b.pending[0]
	b.pending[0] = delivery{}
	b.pending = b.pending[1:]
	b.mu.Unlock()

	d.to.deliver(d.msg)
	return true
}

// DeliverAll delivers until the queue is empty, including messages posted
// by handlers during delivery. Returns the number delivered.
func (b *MemoryBus) DeliverAll() int {
	n := 0
	for b.Deliver() {
		n++
	}
	return n
}

// Discard drops every queued message and returns how many were dropped.
func (b *MemoryBus) Discard() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.pending)
	b.pending = nil
	return n
}

func (b *MemoryBus) post(from *memoryEndpoint, msg tabsync.Message) {
	b.mu.Lock()
	var batch []delivery
	for _, ep := range b.endpoints[from.name] {
		if ep == from {
			continue
		}
		// Each recipient owns its copy of the image map.
		m := msg
		if msg.Images != nil {
			m.Images = maps.Clone(msg.Images)
		}
		batch = append(batch, delivery{to: ep, msg: m})
	}
	if !b.auto {
		b.pending = append(b.pending, batch...)
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	for _, d := range batch {
		d.to.deliver(d.msg)
	}
}

func (b *MemoryBus) remove(ep *memoryEndpoint) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.endpoints[ep.name]
	for i, e := range list {
		if e == ep {
			b.endpoints[ep.name] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(b.endpoints[ep.name]) == 0 {
		delete(b.endpoints, ep.name)
	}
}

type memoryEndpoint struct {
	bus  *MemoryBus
	name string
	id   int

	mu      sync.Mutex
	handler func(tabsync.Message)
	closed  bool
}

func (e *memoryEndpoint) Post(ctx context.Context, msg tabsync.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return tabsync.ErrClosed
	}
	e.bus.post(e, msg)
	return nil
}

func (e *memoryEndpoint) OnMessage(fn func(tabsync.Message)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = fn
}

func (e *memoryEndpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.bus.remove(e)
	return nil
}

func (e *memoryEndpoint) deliver(msg tabsync.Message) {
	e.mu.Lock()
	fn, closed := e.handler, e.closed
	e.mu.Unlock()
	if closed || fn == nil {
		return
	}
	fn(msg)
}
