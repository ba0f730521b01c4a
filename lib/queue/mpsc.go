package queue

import (
	"runtime"
	"sync"
	"sync/atomic"
)

type node[T any] struct {
	value *T
	next  atomic.Pointer[node[T]]
}

// MPSC is an unbounded lock-free queue with any number of producers and one consumer.
// Producers append to a linked list with CAS, a single goroutine moves the items
// into the channel returned by Recv.
type MPSC[T any] struct {
	head atomic.Pointer[node[T]] // last delivered node, owned by the delivering goroutine
	tail atomic.Pointer[node[T]]
	out  chan *T

	closed      atomic.Bool
	discarded   chan struct{}
	discardOnce sync.Once
	delivering  sync.WaitGroup

	// wake parks the delivering goroutine while the list is empty
	mu   sync.Mutex
	wake *sync.Cond
}

// NewMPSC creates an empty queue and starts its delivering goroutine
func NewMPSC[T any]() *MPSC[T] {
	q := &MPSC[T]{
		out:       make(chan *T),
		discarded: make(chan struct{}),
	}
	q.wake = sync.NewCond(&q.mu)

	stub := &node[T]{}
	q.head.Store(stub)
	q.tail.Store(stub)

	q.delivering.Add(1)
	go q.deliver()
	return q
}

// Push appends value. It returns false for a nil value or once the queue is closed.
// Safe for concurrent use.
func (q *MPSC[T]) Push(value *T) bool {
	if value == nil || q.closed.Load() {
		return false
	}

	n := &node[T]{value: value}
	for spins := 0; ; spins++ {
		tail := q.tail.Load()
		next := tail.next.Load()
		if next != nil {
			// another producer linked its node but did not move the tail yet
			q.tail.CompareAndSwap(tail, next)
		} else if tail.next.CompareAndSwap(nil, n) {
			q.tail.CompareAndSwap(tail, n)
			q.notify()
			return true
		}

		// back off harder the longer the contention lasts
		for i := 0; i < 1<<min(spins, 10); i++ {
			runtime.Gosched()
		}
	}
}

// Recv returns the channel items are delivered on. It is closed after Close once every
// queued item was received, or right after Discard.
func (q *MPSC[T]) Recv() <-chan *T {
	return q.out
}

// Close rejects further pushes. Queued items are still delivered.
func (q *MPSC[T]) Close() {
	q.closed.Store(true)
	q.notify()
}

// Discard rejects further pushes and drops every item not yet received.
// Use Wait to block until the delivering goroutine is gone.
func (q *MPSC[T]) Discard() {
	q.discardOnce.Do(func() { close(q.discarded) })
	q.Close()
}

// Wait blocks until Recv is closed
func (q *MPSC[T]) Wait() {
	q.delivering.Wait()
}

// IsClosed reports whether Close or Discard was called
func (q *MPSC[T]) IsClosed() bool {
	return q.closed.Load()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// notify holds the lock so the wakeup cannot slip in between the emptiness
// check in park and the Wait
func (q *MPSC[T]) notify() {
	q.mu.Lock()
	q.wake.Signal()
	q.mu.Unlock()
}

func (q *MPSC[T]) deliver() {
	defer q.delivering.Done()
	defer close(q.out)

	for {
		delivered, ok := q.drain()
		if !ok {
			return
		}
		if delivered {
			continue
		}
		if q.closed.Load() {
			return
		}
		q.park()
	}
}

// drain hands every linked item to the channel. It reports whether anything was
// delivered and returns ok=false if the queue was discarded meanwhile.
func (q *MPSC[T]) drain() (delivered bool, ok bool) {
	for {
		next := q.head.Load().next.Load()
		if next == nil {
			return delivered, true
		}
		q.head.Store(next)

		select {
		case q.out <- next.value:
		case <-q.discarded:
			return delivered, false
		}
		next.value = nil
		delivered = true
	}
}

// park sleeps until a push or close happens, unless one happened already
func (q *MPSC[T]) park() {
	q.mu.Lock()
	if q.head.Load().next.Load() == nil && !q.closed.Load() {
		q.wake.Wait()
	}
	q.mu.Unlock()
}
