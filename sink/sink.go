package sink

import (
	"github.com/philipp01105/lumber/core"
)

// Sink consumes log messages. The pipeline calls Log from a single
// goroutine, so implementations need no locking of their own unless
// they are shared between pipelines.
type Sink interface {
	// Log processes one message
	Log(msg *core.Message) error
}

// Flusher is implemented by sinks that buffer output
type Flusher interface {
	Flush() error
}

// Named is implemented by sinks that report their own name in
// diagnostics
type Named interface {
	Name() string
}

// Matcher decides whether a sink receives a message
type Matcher interface {
	Match(msg *core.Message) bool
}

// Func adapts a plain function to the Sink interface
type Func func(msg *core.Message) error

// Log calls f(msg)
func (f Func) Log(msg *core.Message) error {
	return f(msg)
}
