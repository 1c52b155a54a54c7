package formatter

import (
	"bytes"
	"io"
	"sync"

	"github.com/philipp01105/lumber/core"
)

// Formatter defines the interface for log formatters
type Formatter interface {
	// Format formats a message into bytes
	Format(msg *core.Message) ([]byte, error)
}

// WriterFormatter is an optional interface that formatters can implement
// to write directly to a writer without intermediate byte slice allocation.
type WriterFormatter interface {
	// FormatTo formats a message and writes it directly to the writer
	FormatTo(msg *core.Message, w io.Writer) error
}

// BufferFormatter is an optional interface that formatters can implement
// to format directly into a caller-provided buffer.
type BufferFormatter interface {
	// FormatMessage formats a message into the given buffer.
	FormatMessage(msg *core.Message, buf *bytes.Buffer)
}

// Config holds common formatter configuration
type Config struct {
	// IncludeCaller enables origin file, line and function in output
	IncludeCaller bool
	// IncludeContext writes the context code when it is non-zero
	IncludeContext bool
	// TimestampFormat specifies the time format (empty for RFC3339)
	TimestampFormat string
}

// maxPooledBuffer caps the capacity of buffers returned to the pool
const maxPooledBuffer = 64 << 10

var bufferPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 256))
	},
}

func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() <= maxPooledBuffer {
		bufferPool.Put(buf)
	}
}

// New returns the formatter registered under name ("text" or "json").
// Unknown names fall back to text.
func New(name string, cfg Config) Formatter {
	if name == "json" {
		return NewJSONFormatter(cfg)
	}
	return NewTextFormatter(cfg)
}
