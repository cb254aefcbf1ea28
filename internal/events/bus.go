package events

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

type Listener func(Event)

type ListenerID uuid.UUID

type entry struct {
	id ListenerID
	fn Listener
}

// Bus delivers events to listeners. Each event type has its own dispatcher
// goroutine, so events of one type arrive in emission order while distinct
// types are unordered with respect to each other. Listeners run off the
// emitter's goroutine and a panicking listener does not affect the others.
type Bus struct {
	mu          sync.Mutex
	listeners   map[Type][]entry
	dispatchers map[Type]*dispatcher
	closed      bool
	wg          conc.WaitGroup
}

func NewBus() *Bus {
	return &Bus{
		listeners:   make(map[Type][]entry),
		dispatchers: make(map[Type]*dispatcher),
	}
}

// On registers fn for t and returns an id for Off.
func (b *Bus) On(t Type, fn Listener) ListenerID {
	id := ListenerID(uuid.New())
	b.mu.Lock()
	b.listeners[t] = append(b.listeners[t], entry{id: id, fn: fn})
	b.mu.Unlock()
	return id
}

func (b *Bus) Off(t Type, id ListenerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur := b.listeners[t]
	for i, e := range cur {
		if e.id == id {
			next := make([]entry, 0, len(cur)-1)
			next = append(next, cur[:i]...)
			b.listeners[t] = append(next, cur[i+1:]...)
			return
		}
	}
}

// Emit queues e for delivery and returns immediately. Events emitted after
// Close are dropped.
func (b *Bus) Emit(e Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	d, ok := b.dispatchers[e.Type]
	if !ok {
		d = newDispatcher()
		b.dispatchers[e.Type] = d
		b.wg.Go(func() { d.run(b.deliver) })
	}
	b.mu.Unlock()
	d.push(e)
}

// Close delivers what is already queued, then stops the dispatchers.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, d := range b.dispatchers {
		close(d.done)
	}
	b.mu.Unlock()
	b.wg.Wait()
}

func (b *Bus) deliver(e Event) {
	b.mu.Lock()
	ls := b.listeners[e.Type]
	b.mu.Unlock()

	for _, l := range ls {
		var pc panics.Catcher
		pc.Try(func() { l.fn(e) })
		if r := pc.Recovered(); r != nil {
			log.Error().Str("module", "events").Str("event", string(e.Type)).Msgf("listener panic: %v", r.Value)
		}
	}
}

// dispatcher is an unbounded FIFO drained by one goroutine.
type dispatcher struct {
	mu      sync.Mutex
	pending []Event
	wake    chan struct{}
	done    chan struct{}
}

func newDispatcher() *dispatcher {
	return &dispatcher{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (d *dispatcher) push(e Event) {
	d.mu.Lock()
	d.pending = append(d.pending, e)
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) run(deliver func(Event)) {
	for {
		select {
		case <-d.wake:
			d.drain(deliver)
		case <-d.done:
			d.drain(deliver)
			return
		}
	}
}

func (d *dispatcher) drain(deliver func(Event)) {
	for {
		d.mu.Lock()
		if len(d.pending) == 0 {
			d.mu.Unlock()
			return
		}
		e := d.pending[0]
		d.pending = d.pending[1:]
		d.mu.Unlock()
		deliver(e)
	}
}
