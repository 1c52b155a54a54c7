package pipeline

import (
	"sync"

	"github.com/philipp01105/lumber/sink/consolesink"
)

var (
	defaultPipeline *Pipeline
	defaultMu       sync.RWMutex
)

// Default returns the process-wide pipeline. It is created on first use
// with a single text console sink on standard output.
func Default() *Pipeline {
	defaultMu.RLock()
	p := defaultPipeline
	defaultMu.RUnlock()
	if p != nil {
		return p
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultPipeline == nil {
		defaultPipeline = New(Config{})
		defaultPipeline.AddSink(consolesink.Stdout())
	}
	return defaultPipeline
}

// SetDefault replaces the process-wide pipeline and returns the previous
// one, which is not closed.
func SetDefault(p *Pipeline) *Pipeline {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultPipeline
	defaultPipeline = p
	return prev
}
