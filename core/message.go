package core

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/mohae/deepcopy"
)

// MessageOptions controls how NewMessage treats caller-owned data
type MessageOptions uint8

const (
	// CopyFile detaches the origin file name from the caller's memory
	CopyFile MessageOptions = 1 << iota
	// CopyFunction detaches the origin function name from the caller's memory
	CopyFunction
	// CopyTag deep-copies the tag so later mutation by the caller is not
	// observed by asynchronous sinks
	CopyTag
)

// Has reports whether every option in o is set
func (opts MessageOptions) Has(o MessageOptions) bool {
	return opts&o == o
}

// MessageParams carries the inputs of NewMessage
type MessageParams struct {
	Text      string
	Level     Level
	Flag      Flag
	Context   int
	File      string
	Function  string
	Line      int
	Tag       any
	Options   MessageOptions
	Timestamp time.Time
	// Clock supplies the timestamp when Timestamp is zero (default: SystemClock)
	Clock Clock
}

// Message is a single rendered log event. It is never modified after
// NewMessage returns and may be read by several sinks concurrently.
type Message struct {
	text      string
	level     Level
	flag      Flag
	context   int
	file      string
	function  string
	line      int
	tag       any
	options   MessageOptions
	timestamp time.Time
}

// NewMessage builds an immutable Message from p
func NewMessage(p MessageParams) *Message {
	m := &Message{
		text:      p.Text,
		level:     p.Level,
		flag:      p.Flag,
		context:   p.Context,
		file:      p.File,
		function:  p.Function,
		line:      p.Line,
		tag:       p.Tag,
		options:   p.Options,
		timestamp: p.Timestamp,
	}
	if p.Options.Has(CopyFile) {
		m.file = strings.Clone(p.File)
	}
	if p.Options.Has(CopyFunction) {
		m.function = strings.Clone(p.Function)
	}
	if p.Options.Has(CopyTag) && p.Tag != nil {
		m.tag = deepcopy.Copy(p.Tag)
	}
	if m.timestamp.IsZero() {
		clock := p.Clock
		if clock == nil {
			clock = SystemClock
		}
		m.timestamp = clock()
	}
	return m
}

// Text returns the rendered message text
func (m *Message) Text() string { return m.text }

// Level returns the threshold the message was admitted under
func (m *Message) Level() Level { return m.level }

// Flag returns the severity class of the message
func (m *Message) Flag() Flag { return m.flag }

// Context returns the caller-defined context code
func (m *Message) Context() int { return m.context }

// File returns the full origin file path
func (m *Message) File() string { return m.file }

// Function returns the origin function name
func (m *Message) Function() string { return m.function }

// Line returns the origin line number
func (m *Message) Line() int { return m.line }

// Tag returns the opaque tag attached by the caller
func (m *Message) Tag() any { return m.tag }

// Options returns the copy policy the message was built with
func (m *Message) Options() MessageOptions { return m.options }

// Timestamp returns the creation time of the message
func (m *Message) Timestamp() time.Time { return m.timestamp }

// ShortFile returns the last element of the origin file path
func (m *Message) ShortFile() string {
	if m.file == "" {
		return ""
	}
	return filepath.Base(m.file)
}

// FileName returns the origin file name without directory or extension
func (m *Message) FileName() string {
	return FileName(m.file)
}

// Caller returns the origin as a CallerInfo
func (m *Message) Caller() CallerInfo {
	return CallerInfo{
		File:     m.file,
		Line:     m.line,
		Function: m.function,
		Defined:  m.file != "",
	}
}
