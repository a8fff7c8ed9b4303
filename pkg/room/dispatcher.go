package room

import (
	"sync"

	"go.uber.org/zap"
)

// Dispatcher serializes operations per room ID. Every operation for a
// room runs after all previously enqueued operations for that room have
// completed, in arrival order; rooms proceed independently of each other.
// Timer callbacks re-enter room state through Enqueue like any external
// event, so nothing ever mutates a room concurrently.
type Dispatcher struct {
	log    *zap.Logger
	mu     sync.Mutex
	queues map[string]*opQueue
}

// opQueue is the transient pending chain for one room. Its tracking entry
// is dropped as soon as the tail has settled.
type opQueue struct {
	ops []func()
}

func NewDispatcher(log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		log:    log,
		queues: make(map[string]*opQueue),
	}
}

// Enqueue appends op behind the tail of the room's pending chain, starting
// a drain goroutine if the chain was empty.
func (d *Dispatcher) Enqueue(roomID string, op func()) {
	d.mu.Lock()
	q, ok := d.queues[roomID]
	if !ok {
		q = &opQueue{}
		d.queues[roomID] = q
	}
	q.ops = append(q.ops, op)
	d.mu.Unlock()

	if !ok {
		go d.drain(roomID)
	}
}

func (d *Dispatcher) drain(roomID string) {
	for {
		d.mu.Lock()
		q := d.queues[roomID]
		if len(q.ops) == 0 {
			delete(d.queues, roomID)
			d.mu.Unlock()
			return
		}
		op := q.ops[0]
		q.ops = q.ops[1:]
		d.mu.Unlock()

		d.run(roomID, op)
	}
}

// run executes one operation, containing any panic so a faulty operation
// cannot block the rest of the room's chain.
func (d *Dispatcher) run(roomID string, op func()) {
	defer func() {
		if rec := recover(); rec != nil {
			d.log.Error("room operation panicked",
				zap.String("roomID", roomID),
				zap.Any("panic", rec))
		}
	}()
	op()
}

// PendingChains reports how many rooms currently have an unfinished chain.
func (d *Dispatcher) PendingChains() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}
