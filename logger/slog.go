package logger

import (
	"context"
	"log/slog"
	"runtime"
	"strings"

	"github.com/philipp01105/lumber/core"
)

// SlogHandler is an adapter that implements slog.Handler on top of a
// Logger. Attributes are appended to the message text as key=value.
type SlogHandler struct {
	logger *Logger
	attrs  string
	group  string
}

// NewSlogHandler creates a slog.Handler that logs through l
func NewSlogHandler(l *Logger) *SlogHandler {
	return &SlogHandler{logger: l}
}

// Enabled reports whether the handler handles records at the given level.
func (s *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return s.logger.Enabled(slogLevelToFlag(level))
}

// Handle converts the record into a message. Error records are
// delivered synchronously, like Logger.Error.
func (s *SlogHandler) Handle(_ context.Context, record slog.Record) error {
	flag := slogLevelToFlag(record.Level)
	c, ok := s.logger.check(flag, flag != core.FlagError, nil)
	if !ok {
		return nil
	}
	c.ts = record.Time

	if record.PC != 0 && s.logger.includeCaller {
		frames := runtime.CallersFrames([]uintptr{record.PC})
		f, _ := frames.Next()
		c.file, c.function, c.line = f.File, f.Function, f.Line
	}
	// Origin comes from the record, never from the stack
	c.origin = true

	var b strings.Builder
	b.WriteString(record.Message)
	b.WriteString(s.attrs)
	record.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, s.group, a)
		return true
	})

	s.logger.emit(&c, flag, b.String())
	return nil
}

// WithAttrs returns a new SlogHandler with additional attributes.
func (s *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(s.attrs)
	for _, a := range attrs {
		appendAttr(&b, s.group, a)
	}
	return &SlogHandler{
		logger: s.logger,
		attrs:  b.String(),
		group:  s.group,
	}
}

// WithGroup returns a new SlogHandler with the given group name.
func (s *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	newGroup := name
	if s.group != "" {
		newGroup = s.group + "." + name
	}
	return &SlogHandler{
		logger: s.logger,
		attrs:  s.attrs,
		group:  newGroup,
	}
}

// slogLevelToFlag converts a slog.Level to a core.Flag.
func slogLevelToFlag(level slog.Level) core.Flag {
	switch {
	case level >= slog.LevelError:
		return core.FlagError
	case level >= slog.LevelWarn:
		return core.FlagWarning
	case level >= slog.LevelInfo:
		return core.FlagInfo
	case level >= slog.LevelDebug:
		return core.FlagDebug
	default:
		return core.FlagVerbose
	}
}

// appendAttr writes " key=value", flattening groups with a dotted prefix.
func appendAttr(b *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if group != "" && key != "" {
		key = group + "." + key
	} else if key == "" {
		key = group
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			appendAttr(b, key, ga)
		}
		return
	}

	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(a.Value.String())
}
