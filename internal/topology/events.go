package topology

import (
	"sync"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
)

// EventKind names a map event.
type EventKind int

const (
	// NodeNew fires when a position becomes populated.
	NodeNew EventKind = iota
	// NodeDeleted fires when a populated position is evicted.
	NodeDeleted
	// MeChanged fires when the owner address of the map changes.
	MeChanged
)

// String returns the event name.
func (k EventKind) String() string {
	switch k {
	case NodeNew:
		return "NODE_NEW"
	case NodeDeleted:
		return "NODE_DELETED"
	case MeChanged:
		return "ME_CHANGED"
	default:
		return "UNKNOWN"
	}
}

// Event is delivered to listeners. Level and Pos are set for node events,
// Old and New for MeChanged.
type Event struct {
	Kind  EventKind
	Level int
	Pos   int
	Old   domain.Address
	New   domain.Address
}

// Listener receives events synchronously on the sender's goroutine.
// Listeners that do real work should hand it off to a task queue.
type Listener func(Event)

// Events is a small publish/subscribe bus.
type Events struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[EventKind]map[int]Listener
}

// NewEvents creates an empty bus.
func NewEvents() *Events {
	return &Events{
		listeners: make(map[EventKind]map[int]Listener),
	}
}

// Listen subscribes fn to kind and returns a function that unsubscribes it.
func (e *Events) Listen(kind EventKind, fn Listener) (cancel func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	if e.listeners[kind] == nil {
		e.listeners[kind] = make(map[int]Listener)
	}
	e.listeners[kind][id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners[kind], id)
	}
}

// Send delivers ev to every listener of its kind.
func (e *Events) Send(ev Event) {
	e.mu.RLock()
	fns := make([]Listener, 0, len(e.listeners[ev.Kind]))
	for _, fn := range e.listeners[ev.Kind] {
		fns = append(fns, fn)
	}
	e.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
