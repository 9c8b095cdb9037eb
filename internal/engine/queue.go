package engine

import (
	"github.com/roach88/reach/internal/compiler"
	"github.com/roach88/reach/internal/ir"
)

// connection is one exit waiting to be tested, with its source region.
type connection = compiler.IndirectConnection

// connectionQueue is the work set of blocked connections.
//
// Connections waiting for a test sit in a FIFO; an exit is queued at most
// once at a time. A connection whose rule fails is parked until something
// wakes it: either a newly reached region it depends on, or the start of
// the next outer pass, which wakes everything.
type connectionQueue struct {
	items  []connection
	queued map[*ir.Exit]bool

	parked   []connection
	isParked map[*ir.Exit]bool
}

// newConnectionQueue creates an empty queue.
func newConnectionQueue() *connectionQueue {
	return &connectionQueue{
		items:    make([]connection, 0, 64), // Pre-allocate for typical worlds
		queued:   make(map[*ir.Exit]bool),
		isParked: make(map[*ir.Exit]bool),
	}
}

// Push adds c to the back of the queue. Returns false if its exit is
// already waiting.
func (q *connectionQueue) Push(c connection) bool {
	if q.queued[c.Exit] {
		return false
	}
	q.queued[c.Exit] = true
	q.items = append(q.items, c)
	return true
}

// PushExits queues every exit of region.
func (q *connectionQueue) PushExits(region *ir.Region) {
	for _, exit := range region.Exits {
		q.Push(connection{FromRegion: region.Name, Exit: exit})
	}
}

// TakeAll empties the FIFO and returns its contents in order. Connections
// pushed afterwards belong to the next round.
func (q *connectionQueue) TakeAll() []connection {
	items := q.items
	q.items = make([]connection, 0, len(items))
	clear(q.queued)
	return items
}

// Park sets c aside until it is woken.
func (q *connectionQueue) Park(c connection) {
	if q.isParked[c.Exit] {
		return
	}
	q.isParked[c.Exit] = true
	q.parked = append(q.parked, c)
}

// Wake queues c, taking it out of the parked set if it was there.
func (q *connectionQueue) Wake(c connection) {
	delete(q.isParked, c.Exit)
	q.Push(c)
}

// WakeAll queues every parked connection in the order it was parked.
func (q *connectionQueue) WakeAll() {
	for _, c := range q.parked {
		if q.isParked[c.Exit] {
			q.Push(c)
		}
	}
	q.parked = q.parked[:0]
	clear(q.isParked)
}

// Len returns the number of connections waiting for a test.
func (q *connectionQueue) Len() int {
	return len(q.items)
}

// Parked returns the number of parked connections.
func (q *connectionQueue) Parked() int {
	return len(q.isParked)
}
