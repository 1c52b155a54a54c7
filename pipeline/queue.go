package pipeline

import (
	"sync"
	"time"

	"github.com/philipp01105/lumber/core"
)

// envelope is one queued unit of work. Asynchronous messages have a nil
// done channel; synchronous messages and flush barriers are released by
// closing done once the worker has finished with them.
type envelope struct {
	msg   *core.Message
	flush bool
	done  chan struct{}
	err   error
}

func (e *envelope) async() bool {
	return e.done == nil
}

// queue is a bounded FIFO. Capacity is enforced by the slots semaphore:
// a producer holds a slot from acquire until the worker releases it
// after dispatch, so queued plus in-flight work never exceeds the bound.
type queue struct {
	slots chan struct{}
	ready chan struct{}

	mu    sync.Mutex
	items []*envelope
	head  int // items[:head] have been popped
}

func newQueue(size int) *queue {
	return &queue{
		slots: make(chan struct{}, size),
		ready: make(chan struct{}, 1),
		items: make([]*envelope, 0, size),
	}
}

// tryAcquire takes a slot without waiting
func (q *queue) tryAcquire() bool {
	select {
	case q.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

// acquire waits for a slot. A zero timeout waits until stop is closed.
func (q *queue) acquire(timeout time.Duration, stop <-chan struct{}) bool {
	if q.tryAcquire() {
		return true
	}
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case q.slots <- struct{}{}:
		return true
	case <-expired:
		return false
	case <-stop:
		return false
	}
}

// release frees the slot held by one envelope
func (q *queue) release() {
	<-q.slots
}

// push appends e; the caller must hold a slot for it
func (q *queue) push(e *envelope) {
	q.mu.Lock()
	if q.head > 0 && len(q.items) == cap(q.items) {
		// Reuse the popped prefix before append grows the array
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	q.items = append(q.items, e)
	q.mu.Unlock()
	q.signal()
}

// replaceOldestAsync removes the oldest queued asynchronous envelope and
// appends e in its slot. It returns the evicted envelope, or nil when
// nothing waiting is asynchronous. The envelope being dispatched has
// already been popped and is never evicted.
func (q *queue) replaceOldestAsync(e *envelope) *envelope {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := q.head; i < len(q.items); i++ {
		old := q.items[i]
		if !old.async() {
			continue
		}
		copy(q.items[i:], q.items[i+1:])
		q.items[len(q.items)-1] = e
		return old
	}
	return nil
}

// pop removes and returns the oldest envelope, or nil when empty. The
// worker pops one envelope at a time so everything still waiting stays
// visible to replaceOldestAsync.
func (q *queue) pop() *envelope {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == len(q.items) {
		return nil
	}
	e := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return e
}

// take removes and returns everything queued, oldest first
func (q *queue) take() []*envelope {
	q.mu.Lock()
	defer q.mu.Unlock()
	batch := append([]*envelope(nil), q.items[q.head:]...)
	clear(q.items)
	q.items = q.items[:0]
	q.head = 0
	return batch
}

// len returns the number of envelopes waiting for the worker
func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

func (q *queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
