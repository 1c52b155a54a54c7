package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/philipp01105/lumber/core"
	"github.com/philipp01105/lumber/sink"
)

// ErrClosed is returned by Flush once the pipeline has been closed
var ErrClosed = errors.New("pipeline closed")

// Config holds configuration for a pipeline
type Config struct {
	// QueueSize bounds queued plus in-flight messages (default: 1000)
	QueueSize int
	// Overflow is the policy for asynchronous messages on a full queue (default: Block)
	Overflow OverflowPolicy
	// FlagPolicy overrides Overflow for individual severity classes
	FlagPolicy map[core.Flag]OverflowPolicy
	// BlockTimeout limits how long a blocked asynchronous message waits
	// before it is dropped (0 = wait for room)
	BlockTimeout time.Duration
	// DrainTimeout is the time Close spends delivering queued messages (default: 5s)
	DrainTimeout time.Duration
	// SinkRetries is how many times a failed sink write is retried
	SinkRetries int
	// Diagnostics receives reports about the pipeline itself (default: no-op)
	Diagnostics *zap.Logger
	// ErrorHandler is called from the worker after a sink exhausted its retries
	ErrorHandler func(s sink.Sink, msg *core.Message, err error)
}

// applyDefaults fills in zero-value fields with defaults.
func applyDefaults(cfg *Config) {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 5 * time.Second
	}
	if cfg.SinkRetries < 0 {
		cfg.SinkRetries = 0
	}
	if cfg.Diagnostics == nil {
		cfg.Diagnostics = zap.NewNop()
	}
}

// registration is a sink together with its sub-filter
type registration struct {
	id     string
	name   string
	sink   sink.Sink
	filter sink.Filter
}

// SinkInfo describes a registered sink
type SinkInfo struct {
	ID     string
	Name   string
	Sink   sink.Sink
	Filter sink.Filter
}

// SinkOption configures a sink registration
type SinkOption func(*registration)

// WithName sets the name used for the sink in diagnostics
func WithName(name string) SinkOption {
	return func(r *registration) {
		r.name = name
	}
}

// WithLevel sets a per-sink level threshold
func WithLevel(level core.Level) SinkOption {
	return func(r *registration) {
		r.filter.Level = &level
	}
}

// WithFilter sets the full per-sink filter
func WithFilter(f sink.Filter) SinkOption {
	return func(r *registration) {
		r.filter = f
	}
}

// Pipeline accepts messages and delivers them, in submission order, to
// every registered sink whose filter admits them. One worker goroutine
// serializes all sink calls.
type Pipeline struct {
	id    string
	cfg   Config
	diag  *zap.Logger
	stats *Stats
	queue *queue

	sinksMu sync.Mutex
	sinks   atomic.Pointer[[]*registration]

	// mu guards closed; Log holds it shared while enqueueing
	mu     sync.RWMutex
	closed bool

	closeOnce sync.Once
	closeErr  error
	drainBy   time.Time     // set before quit is closed
	quit      chan struct{} // closed when Close starts
	sealed    chan struct{} // closed when no more envelopes can be pushed
	stopped   chan struct{} // closed when the worker exits
}

// New creates a pipeline and starts its worker
func New(cfg Config) *Pipeline {
	applyDefaults(&cfg)
	p := &Pipeline{
		id:      "pipeline-" + uuid.NewString(),
		cfg:     cfg,
		stats:   NewStats(),
		queue:   newQueue(cfg.QueueSize),
		quit:    make(chan struct{}),
		sealed:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	p.diag = cfg.Diagnostics.With(zap.String("pipeline", p.id))
	empty := []*registration{}
	p.sinks.Store(&empty)
	go p.run()
	return p
}

// ID returns the unique identifier used in diagnostics
func (p *Pipeline) ID() string {
	return p.id
}

// AddSink registers s and returns its registration ID
func (p *Pipeline) AddSink(s sink.Sink, opts ...SinkOption) string {
	r := &registration{
		id:   uuid.NewString(),
		sink: s,
	}
	if n, ok := s.(sink.Named); ok {
		r.name = n.Name()
	} else {
		r.name = fmt.Sprintf("%T", s)
	}
	for _, opt := range opts {
		opt(r)
	}

	p.sinksMu.Lock()
	defer p.sinksMu.Unlock()
	old := *p.sinks.Load()
	next := make([]*registration, len(old), len(old)+1)
	copy(next, old)
	next = append(next, r)
	p.sinks.Store(&next)
	return r.id
}

// RemoveSink unregisters the sink with the given ID. The sink is not
// closed. It reports whether the ID was registered.
func (p *Pipeline) RemoveSink(id string) bool {
	p.sinksMu.Lock()
	defer p.sinksMu.Unlock()
	old := *p.sinks.Load()
	next := make([]*registration, 0, len(old))
	found := false
	for _, r := range old {
		if r.id == id {
			found = true
			continue
		}
		next = append(next, r)
	}
	if found {
		p.sinks.Store(&next)
	}
	return found
}

// RemoveAllSinks unregisters every sink without closing them
func (p *Pipeline) RemoveAllSinks() {
	p.sinksMu.Lock()
	defer p.sinksMu.Unlock()
	empty := []*registration{}
	p.sinks.Store(&empty)
}

// Sinks lists the registered sinks in registration order
func (p *Pipeline) Sinks() []SinkInfo {
	regs := *p.sinks.Load()
	infos := make([]SinkInfo, len(regs))
	for i, r := range regs {
		infos[i] = SinkInfo{ID: r.id, Name: r.name, Sink: r.sink, Filter: r.filter}
	}
	return infos
}

// Log submits msg. When async is false it returns after every sink has
// processed the message. Log never fails; messages that cannot be
// queued are counted as dropped.
func (p *Pipeline) Log(async bool, msg *core.Message) {
	if msg == nil {
		return
	}
	e := &envelope{msg: msg}
	if !async {
		e.done = make(chan struct{})
	}
	if !p.enqueue(e) {
		return
	}
	if e.done != nil {
		<-e.done
	}
}

// Flush waits until everything submitted before the call has been
// delivered, then flushes sinks that buffer output.
func (p *Pipeline) Flush(ctx context.Context) error {
	e := &envelope{flush: true, done: make(chan struct{})}
	if !p.enqueue(e) {
		return ErrClosed
	}
	select {
	case <-e.done:
		return e.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) policyFor(flag core.Flag) OverflowPolicy {
	if policy, ok := p.cfg.FlagPolicy[flag]; ok {
		return policy
	}
	return p.cfg.Overflow
}

// enqueue applies the overflow policy and reports whether e was queued
func (p *Pipeline) enqueue(e *envelope) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.dropped(e, "pipeline closed")
		return false
	}

	if !e.async() {
		if !p.queue.tryAcquire() {
			p.stats.IncrementBlocked()
			if !p.queue.acquire(0, p.quit) {
				p.dropped(e, "pipeline closing")
				return false
			}
		}
		p.queue.push(e)
		return true
	}

	if p.queue.tryAcquire() {
		p.queue.push(e)
		return true
	}

	switch p.policyFor(e.msg.Flag()) {
	case DropNewest:
		p.stats.IncrementDropped(e.msg.Flag())
		return false

	case DropOldest:
		if old := p.queue.replaceOldestAsync(e); old != nil {
			p.stats.IncrementDropped(old.msg.Flag())
			return true
		}
		// Nothing evictable: the slots are held by barriers or the
		// envelope in flight
		p.stats.IncrementDropped(e.msg.Flag())
		return false

	default:
		p.stats.IncrementBlocked()
		if !p.queue.acquire(p.cfg.BlockTimeout, p.quit) {
			p.stats.IncrementDropped(e.msg.Flag())
			return false
		}
		p.queue.push(e)
		return true
	}
}

// dropped accounts for an envelope that will never reach the sinks
func (p *Pipeline) dropped(e *envelope, reason string) {
	if e.flush {
		return
	}
	p.stats.IncrementDropped(e.msg.Flag())
	if !e.async() {
		p.diag.Warn("synchronous message dropped",
			zap.String("reason", reason),
			zap.Stringer("flag", e.msg.Flag()),
			zap.String("message", e.msg.Text()),
		)
	}
}

// run is the worker loop
func (p *Pipeline) run() {
	defer close(p.stopped)

	sealed := p.sealed
	for {
		if e := p.queue.pop(); e != nil {
			if p.drainExpired() {
				p.abandon(append([]*envelope{e}, p.queue.take()...))
				return
			}
			p.dispatch(e)
			continue
		}
		if sealed == nil {
			// Sealed and empty
			return
		}

		select {
		case <-p.queue.ready:
		case <-sealed:
			sealed = nil
		}
	}
}

// drainExpired reports whether Close has started and its drain
// deadline has passed
func (p *Pipeline) drainExpired() bool {
	select {
	case <-p.quit:
		return time.Now().After(p.drainBy)
	default:
		return false
	}
}

// dispatch delivers one envelope and releases its queue slot
func (p *Pipeline) dispatch(e *envelope) {
	defer p.queue.release()

	regs := *p.sinks.Load()
	if e.flush {
		e.err = p.flushSinks(regs)
		close(e.done)
		return
	}

	for _, r := range regs {
		if !r.filter.Allows(e.msg) {
			continue
		}
		p.deliver(r, e.msg)
	}
	p.stats.IncrementProcessed()
	if e.done != nil {
		close(e.done)
	}
}

// abandon releases envelopes the worker will not deliver
func (p *Pipeline) abandon(batch []*envelope) {
	if len(batch) == 0 {
		return
	}
	p.diag.Warn("drain timeout, abandoning queued messages", zap.Int("count", len(batch)))
	for _, e := range batch {
		if e.flush {
			e.err = ErrClosed
		} else {
			p.stats.IncrementDropped(e.msg.Flag())
		}
		if e.done != nil {
			close(e.done)
		}
		p.queue.release()
	}
}

// deliver writes msg to one sink, retrying and containing failures
func (p *Pipeline) deliver(r *registration, msg *core.Message) {
	var err error
	for attempt := 0; attempt <= p.cfg.SinkRetries; attempt++ {
		if err = safeLog(r.sink, msg); err == nil {
			return
		}
	}
	p.stats.IncrementSinkErrors()
	p.diag.Warn("sink write failed",
		zap.String("sink", r.name),
		zap.Int("attempts", p.cfg.SinkRetries+1),
		zap.Stringer("flag", msg.Flag()),
		zap.Error(err),
	)
	if p.cfg.ErrorHandler != nil {
		p.callErrorHandler(r, msg, err)
	}
}

func (p *Pipeline) callErrorHandler(r *registration, msg *core.Message, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			p.diag.Error("error handler panicked", zap.String("sink", r.name), zap.Any("panic", rec))
		}
	}()
	p.cfg.ErrorHandler(r.sink, msg, err)
}

func safeLog(s sink.Sink, msg *core.Message) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Errorf("sink panicked: %v", rec)
		}
	}()
	return s.Log(msg)
}

func (p *Pipeline) flushSinks(regs []*registration) error {
	var errs error
	for _, r := range regs {
		f, ok := r.sink.(sink.Flusher)
		if !ok {
			continue
		}
		if err := safeFlush(f); err != nil {
			p.diag.Warn("sink flush failed", zap.String("sink", r.name), zap.Error(err))
			errs = multierr.Append(errs, errors.Wrapf(err, "flush %s", r.name))
		}
	}
	return errs
}

func safeFlush(f sink.Flusher) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Errorf("flush panicked: %v", rec)
		}
	}()
	return f.Flush()
}

// Stats returns a snapshot of the current statistics
func (p *Pipeline) Stats() Snapshot {
	s := p.stats.GetSnapshot()
	s.Queued = p.queue.len()
	return s
}

// Close stops accepting messages, delivers what is queued within the
// drain timeout, then flushes and closes every sink that implements
// io.Closer. It is safe to call more than once.
func (p *Pipeline) Close() error {
	p.closeOnce.Do(func() {
		p.drainBy = time.Now().Add(p.cfg.DrainTimeout)
		close(p.quit)

		// Wait for in-flight Log calls to finish pushing
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.sealed)

		<-p.stopped
		p.abandon(p.queue.take())

		regs := *p.sinks.Load()
		errs := p.flushSinks(regs)
		for _, r := range regs {
			c, ok := r.sink.(io.Closer)
			if !ok {
				continue
			}
			if err := c.Close(); err != nil {
				p.diag.Warn("sink close failed", zap.String("sink", r.name), zap.Error(err))
				errs = multierr.Append(errs, errors.Wrapf(err, "close %s", r.name))
			}
		}
		p.closeErr = errs
	})
	return p.closeErr
}

// Done returns a channel that is closed once the worker has stopped
func (p *Pipeline) Done() <-chan struct{} {
	return p.stopped
}
