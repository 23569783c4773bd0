package pool

import (
	"github.com/gammazero/deque"
	"github.com/google/uuid"
	"sync"
	"time"
)

type task struct {
	ID        uuid.UUID
	Job       Job
	Submitted time.Time
}

// workQueue is an unbounded multi-producer, multi-consumer FIFO with a closed state.
// Every task pushed before close is handed to exactly one receiver, as long as one
// consumer is still attached.
type workQueue struct {
	mu        sync.Mutex
	ready     *sync.Cond
	items     deque.Deque[*task]
	consumers int
	closed    bool
}

func newWorkQueue(consumers int) *workQueue {
	q := &workQueue{consumers: consumers}
	q.ready = sync.NewCond(&q.mu)
	return q
}

// send enqueues t without blocking. It fails once the queue is closed or every consumer has detached.
func (q *workQueue) send(t *task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrPoolClosed
	}
	if q.consumers == 0 {
		return ErrNoWorkers
	}
	q.items.PushBack(t)
	q.ready.Signal()
	return nil
}

// recv blocks until a task is available or the queue is closed and drained.
func (q *workQueue) recv() (*task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Len() == 0 && !q.closed {
		q.ready.Wait()
	}
	if q.items.Len() == 0 {
		return nil, false
	}
	return q.items.PopFront(), true
}

// detach removes one consumer. When the last one leaves it returns the number of tasks
// that can no longer be delivered.
func (q *workQueue) detach() (stranded int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.consumers--
	if q.consumers > 0 {
		return 0
	}
	return q.items.Len()
}

// close marks the queue closed and wakes every blocked receiver. Queued tasks stay deliverable.
func (q *workQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.ready.Broadcast()
}

func (q *workQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.items.Len()
}
