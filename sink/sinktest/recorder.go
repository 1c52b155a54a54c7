/*
Package sinktest provides an introspective sink. Every message is kept in
memory and can be examined; tests can also make the sink fail or block on
demand.
*/
package sinktest

import (
	"sync"
	"time"

	"github.com/muir/list"

	"github.com/philipp01105/lumber/core"
	"github.com/philipp01105/lumber/sink"
)

var (
	_ sink.Sink    = &Recorder{}
	_ sink.Flusher = &Recorder{}
	_ sink.Named   = &Recorder{}
)

// Recorder is a sink that saves every message it is given
type Recorder struct {
	name string

	lock     sync.Mutex
	messages []*core.Message
	flushes  int
	closed   bool
	fail     error
	failLeft int
	gate     chan struct{}
	notify   chan struct{}
}

// Opt configures a Recorder
type Opt func(*Recorder)

// WithName sets the name reported to the pipeline
func WithName(name string) Opt {
	return func(r *Recorder) {
		r.name = name
	}
}

// New creates an empty Recorder
func New(opts ...Opt) *Recorder {
	r := &Recorder{
		name:   "recorder",
		notify: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name implements sink.Named
func (r *Recorder) Name() string { return r.name }

// Log implements sink.Sink
func (r *Recorder) Log(msg *core.Message) error {
	r.lock.Lock()
	gate := r.gate
	r.lock.Unlock()
	if gate != nil {
		<-gate
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	if r.failLeft != 0 {
		if r.failLeft > 0 {
			r.failLeft--
		}
		return r.fail
	}
	r.messages = append(r.messages, msg)
	close(r.notify)
	r.notify = make(chan struct{})
	return nil
}

// Flush implements sink.Flusher
func (r *Recorder) Flush() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.flushes++
	return nil
}

// Close marks the recorder closed
func (r *Recorder) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.closed = true
	return nil
}

// FailNext makes the next n calls to Log return err. A negative n fails
// every call until FailNext(0, nil).
func (r *Recorder) FailNext(n int, err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.failLeft = n
	r.fail = err
}

// Hold makes Log block until Release is called
func (r *Recorder) Hold() {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.gate == nil {
		r.gate = make(chan struct{})
	}
}

// Release unblocks Log calls waiting after Hold
func (r *Recorder) Release() {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.gate != nil {
		close(r.gate)
		r.gate = nil
	}
}

// Messages returns a copy of the recorded messages in arrival order
func (r *Recorder) Messages() []*core.Message {
	r.lock.Lock()
	defer r.lock.Unlock()
	return list.Copy(r.messages)
}

// Texts returns the text of every recorded message
func (r *Recorder) Texts() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	texts := make([]string, len(r.messages))
	for i, m := range r.messages {
		texts[i] = m.Text()
	}
	return texts
}

// Len returns the number of recorded messages
func (r *Recorder) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.messages)
}

// Flushes returns how many times Flush was called
func (r *Recorder) Flushes() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.flushes
}

// Closed reports whether Close was called
func (r *Recorder) Closed() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.closed
}

// Reset discards recorded messages
func (r *Recorder) Reset() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.messages = nil
}

// WaitFor blocks until at least n messages were recorded or the
// timeout expires. It reports whether n was reached.
func (r *Recorder) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		r.lock.Lock()
		count := len(r.messages)
		notify := r.notify
		r.lock.Unlock()
		if count >= n {
			return true
		}
		select {
		case <-notify:
		case <-deadline.C:
			return false
		}
	}
}
