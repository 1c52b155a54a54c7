package consolesink

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/philipp01105/lumber/core"
	"github.com/philipp01105/lumber/formatter"
	"github.com/philipp01105/lumber/sink"
)

var (
	_ sink.Sink    = &Sink{}
	_ sink.Flusher = &Sink{}
	_ sink.Named   = &Sink{}
)

// Config holds configuration for a console sink
type Config struct {
	// Writer to write to (default: os.Stdout)
	Writer io.Writer
	// Formatter to use (default: TextFormatter)
	Formatter formatter.Formatter
	// Buffered wraps the writer in a bufio.Writer that is emptied on Flush
	Buffered bool
	// Name reported in pipeline diagnostics (default: "console")
	Name string
}

// applyDefaults fills in zero-value fields with defaults.
func applyDefaults(cfg *Config) {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	if cfg.Formatter == nil {
		cfg.Formatter = formatter.NewTextFormatter(formatter.Config{})
	}
	if cfg.Name == "" {
		cfg.Name = "console"
	}
}

// Sink writes formatted messages to an io.Writer
type Sink struct {
	name            string
	writer          io.Writer
	buffered        *bufio.Writer
	formatter       formatter.Formatter
	writerFormatter formatter.WriterFormatter
	bufferFormatter formatter.BufferFormatter

	mu  sync.Mutex // protects buf and writer
	buf bytes.Buffer
}

// New creates a console sink
func New(cfg Config) *Sink {
	applyDefaults(&cfg)
	s := &Sink{
		name:      cfg.Name,
		writer:    cfg.Writer,
		formatter: cfg.Formatter,
	}
	if cfg.Buffered {
		s.buffered = bufio.NewWriter(cfg.Writer)
		s.writer = s.buffered
	}

	// Cache optional interfaces for the allocation-free paths
	s.writerFormatter, _ = cfg.Formatter.(formatter.WriterFormatter)
	s.bufferFormatter, _ = cfg.Formatter.(formatter.BufferFormatter)
	if s.bufferFormatter != nil {
		s.buf.Grow(256)
	}
	return s
}

// Stdout returns a text console sink on standard output
func Stdout() *Sink {
	return New(Config{})
}

// Stderr returns a text console sink on standard error
func Stderr() *Sink {
	return New(Config{Writer: os.Stderr, Name: "stderr"})
}

// Name implements sink.Named
func (s *Sink) Name() string {
	return s.name
}

// Log formats msg and writes it
func (s *Sink) Log(msg *core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bufferFormatter != nil {
		s.buf.Reset()
		s.bufferFormatter.FormatMessage(msg, &s.buf)
		_, err := s.writer.Write(s.buf.Bytes())
		return err
	}

	if s.writerFormatter != nil {
		return s.writerFormatter.FormatTo(msg, s.writer)
	}

	data, err := s.formatter.Format(msg)
	if err != nil {
		return err
	}
	_, err = s.writer.Write(data)
	return err
}

// Flush empties the write buffer when the sink is buffered
func (s *Sink) Flush() error {
	if s.buffered == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffered.Flush()
}
