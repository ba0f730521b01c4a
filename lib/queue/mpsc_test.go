package queue

import (
	"sync"
	"testing"
	"time"
)

// receive reads one item or fails after a second
func receive[T any](t *testing.T, q *MPSC[T]) (*T, bool) {
	t.Helper()
	select {
	case v, ok := <-q.Recv():
		return v, ok
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for the queue")
		return nil, false
	}
}

// TestSingleProducerOrder tests that one producer's items arrive in push order
func TestSingleProducerOrder(t *testing.T) {
	q := NewMPSC[int]()
	defer q.Close()

	const count = 10000
	go func() {
		for i := 0; i < count; i++ {
			v := i
			q.Push(&v)
		}
	}()

	for i := 0; i < count; i++ {
		v, ok := receive(t, q)
		if !ok || *v != i {
			t.Fatalf("Expected %d, got %v (open %v)", i, v, ok)
		}
	}
}

// TestConcurrentProducers tests that every item of every producer arrives exactly once
// and in order per producer
func TestConcurrentProducers(t *testing.T) {
	q := NewMPSC[[2]int]()
	defer q.Close()

	const producers = 8
	const perProducer = 2000

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if !q.Push(&[2]int{p, i}) {
					t.Errorf("Producer %d could not push item %d", p, i)
					return
				}
			}
		}(p)
	}

	next := make([]int, producers)
	for n := 0; n < producers*perProducer; n++ {
		v, ok := receive(t, q)
		if !ok {
			t.Fatalf("Channel closed after %d items", n)
		}
		p, i := v[0], v[1]
		if i != next[p] {
			t.Fatalf("Producer %d: expected item %d, got %d", p, next[p], i)
		}
		next[p]++
	}
	wg.Wait()
}

// TestCloseDeliversQueuedItems tests that Close rejects pushes but keeps what is queued
func TestCloseDeliversQueuedItems(t *testing.T) {
	q := NewMPSC[int]()
	for i := 0; i < 5; i++ {
		v := i
		q.Push(&v)
	}
	q.Close()

	if !q.IsClosed() {
		t.Error("Queue should report closed")
	}
	v := 100
	if q.Push(&v) {
		t.Error("Push after close should fail")
	}
	if q.Push(nil) {
		t.Error("Push of nil should fail")
	}

	for i := 0; i < 5; i++ {
		v, ok := receive(t, q)
		if !ok || *v != i {
			t.Fatalf("Expected %d, got %v (open %v)", i, v, ok)
		}
	}
	if _, ok := receive(t, q); ok {
		t.Error("Channel should be closed after the queue was drained")
	}
}

// TestCloseWakesIdleConsumer tests that closing an empty queue closes the channel
func TestCloseWakesIdleConsumer(t *testing.T) {
	q := NewMPSC[int]()
	time.Sleep(10 * time.Millisecond)
	q.Close()

	if _, ok := receive(t, q); ok {
		t.Error("Expected closed channel")
	}
}

// TestDiscardDropsQueuedItems tests that Discard stops delivery although nobody receives
func TestDiscardDropsQueuedItems(t *testing.T) {
	q := NewMPSC[int]()
	for i := 0; i < 5; i++ {
		v := i
		q.Push(&v)
	}
	q.Discard()
	q.Discard()

	exited := make(chan struct{})
	go func() {
		q.Wait()
		close(exited)
	}()
	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("Delivering goroutine did not exit after discard")
	}

	v := 100
	if q.Push(&v) {
		t.Error("Push after discard should fail")
	}
	// at most the item in flight was handed over, the rest is gone
	received := 0
	for range q.Recv() {
		received++
	}
	if received > 1 {
		t.Errorf("Expected at most one item after discard, got %d", received)
	}
}

// BenchmarkMultiProducer benchmarks the queue with parallel producers
func BenchmarkMultiProducer(b *testing.B) {
	q := NewMPSC[int]()
	defer q.Close()

	go func() {
		for range q.Recv() {
		}
	}()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			q.Push(&i)
			i++
		}
	})
}
