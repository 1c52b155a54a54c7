// Package benchmark compares lumber against other Go loggers. It holds
// only benchmarks and the helpers they share.
package benchmark

import (
	"github.com/philipp01105/lumber/core"
)

// noopSink accepts messages without writing them
type noopSink struct{}

func (noopSink) Log(msg *core.Message) error {
	_ = len(msg.Text())
	return nil
}
