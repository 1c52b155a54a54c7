package logger

import (
	"context"
	"fmt"
	"io"

	"github.com/philipp01105/lumber/core"
	"github.com/philipp01105/lumber/pipeline"
)

// Dispatcher receives messages that passed the level gate.
// *pipeline.Pipeline implements it.
type Dispatcher interface {
	Log(async bool, msg *core.Message)
}

// callerFrames is the number of frames between core.GetCaller in emit and
// the code that called a Logger method
const callerFrames = 3

// Logger is the entry point for producing log messages (immutable)
type Logger struct {
	dispatcher    Dispatcher
	level         *core.LevelVar
	context       int
	tag           interface{}
	includeCaller bool
	callerSkip    int
	clock         core.Clock
	options       core.MessageOptions
}

// Builder provides a fluent API for building Logger instances
type Builder struct {
	l Logger
}

// NewBuilder creates a new logger builder
func NewBuilder() *Builder {
	return &Builder{l: Logger{
		level:         DefaultLevel,
		includeCaller: true,
		options:       core.CopyFile | core.CopyFunction,
	}}
}

// WithDispatcher sets where messages go (default: pipeline.Default())
func (b *Builder) WithDispatcher(d Dispatcher) *Builder {
	b.l.dispatcher = d
	return b
}

// WithLevelVar makes the logger follow lv (default: DefaultLevel)
func (b *Builder) WithLevelVar(lv *core.LevelVar) *Builder {
	b.l.level = lv
	return b
}

// WithLevel gives the logger its own level, detached from DefaultLevel
func (b *Builder) WithLevel(level core.Level) *Builder {
	b.l.level = core.NewLevelVar(level)
	return b
}

// WithContext sets the default context code
func (b *Builder) WithContext(context int) *Builder {
	b.l.context = context
	return b
}

// WithTag sets the default tag
func (b *Builder) WithTag(tag interface{}) *Builder {
	b.l.tag = tag
	return b
}

// WithCaller enables or disables capturing the source location
func (b *Builder) WithCaller(enabled bool) *Builder {
	b.l.includeCaller = enabled
	return b
}

// WithCallerSkip skips extra frames when capturing the source location,
// for wrappers around the logger
func (b *Builder) WithCallerSkip(skip int) *Builder {
	b.l.callerSkip = skip
	return b
}

// WithClock sets the timestamp source (default: core.SystemClock)
func (b *Builder) WithClock(clock core.Clock) *Builder {
	b.l.clock = clock
	return b
}

// WithMessageOptions sets the copy options of every message
func (b *Builder) WithMessageOptions(opts core.MessageOptions) *Builder {
	b.l.options = opts
	return b
}

// Build creates the Logger instance
func (b *Builder) Build() *Logger {
	l := b.l
	return &l
}

// ForContext returns a copy of the logger with a different context code
func (l *Logger) ForContext(context int) *Logger {
	c := *l
	c.context = context
	return &c
}

// ForTag returns a copy of the logger with a different tag
func (l *Logger) ForTag(tag interface{}) *Logger {
	c := *l
	c.tag = tag
	return &c
}

// Level returns the level currently gating this logger
func (l *Logger) Level() core.Level {
	return l.level.Level()
}

// Enabled reports whether a message with flag would pass the gate
func (l *Logger) Enabled(flag core.Flag) bool {
	return l.level.Level().Allows(flag)
}

func (l *Logger) target() Dispatcher {
	if l.dispatcher != nil {
		return l.dispatcher
	}
	return pipeline.Default()
}

// Log is the gate behind every entry point. produce is called only when
// the effective level admits flag.
func (l *Logger) Log(flag core.Flag, async bool, produce func() string, opts ...Option) {
	l.logFunc(flag, async, produce, opts)
}

// check resolves the call options and applies the level gate
func (l *Logger) check(flag core.Flag, async bool, opts []Option) (call, bool) {
	c := call{
		context: l.context,
		tag:     l.tag,
		async:   async,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if !c.levelSet {
		c.level = l.level.Level()
	}
	return c, c.level.Allows(flag)
}

// emit builds the message and hands it to the dispatcher. Every entry
// point, method or package function, sits callerFrames above GetCaller.
func (l *Logger) emit(c *call, flag core.Flag, text string) {
	if !c.origin && l.includeCaller {
		caller := core.GetCaller(callerFrames + l.callerSkip)
		if caller.Defined {
			c.file, c.function, c.line = caller.File, caller.Function, caller.Line
		}
	}
	msg := core.NewMessage(core.MessageParams{
		Text:      text,
		Level:     c.level,
		Flag:      flag,
		Context:   c.context,
		File:      c.file,
		Function:  c.function,
		Line:      c.line,
		Tag:       c.tag,
		Options:   l.options,
		Timestamp: c.ts,
		Clock:     l.clock,
	})
	l.target().Log(c.async, msg)
}

func (l *Logger) logString(flag core.Flag, async bool, text string, opts []Option) {
	c, ok := l.check(flag, async, opts)
	if !ok {
		return
	}
	l.emit(&c, flag, text)
}

func (l *Logger) logFormat(flag core.Flag, async bool, format string, args []interface{}) {
	c, ok := l.check(flag, async, nil)
	if !ok {
		return
	}
	l.emit(&c, flag, fmt.Sprintf(format, args...))
}

func (l *Logger) logFunc(flag core.Flag, async bool, produce func() string, opts []Option) {
	c, ok := l.check(flag, async, opts)
	if !ok || produce == nil {
		return
	}
	l.emit(&c, flag, produce())
}

// Flush waits for queued messages when the dispatcher supports it
func (l *Logger) Flush(ctx context.Context) error {
	if f, ok := l.target().(interface{ Flush(context.Context) error }); ok {
		return f.Flush(ctx)
	}
	return nil
}

// Close closes the logger's dispatcher if it is an io.Closer
func (l *Logger) Close() error {
	if c, ok := l.dispatcher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Error logs an error message; synchronous unless Async is given
func (l *Logger) Error(msg string, opts ...Option) {
	l.logString(core.FlagError, false, msg, opts)
}

// Errorf logs a formatted message; formatting happens only past the gate
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logFormat(core.FlagError, false, format, args)
}

// ErrorFunc logs the text returned by produce, which is called only past the gate
func (l *Logger) ErrorFunc(produce func() string, opts ...Option) {
	l.logFunc(core.FlagError, false, produce, opts)
}

// Warning logs a warning message
func (l *Logger) Warning(msg string, opts ...Option) {
	l.logString(core.FlagWarning, true, msg, opts)
}

// Warningf logs a formatted message; formatting happens only past the gate
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.logFormat(core.FlagWarning, true, format, args)
}

// WarningFunc logs the text returned by produce, which is called only past the gate
func (l *Logger) WarningFunc(produce func() string, opts ...Option) {
	l.logFunc(core.FlagWarning, true, produce, opts)
}

// Warn is an alias for Warning
func (l *Logger) Warn(msg string, opts ...Option) {
	l.logString(core.FlagWarning, true, msg, opts)
}

// Warnf is an alias for Warningf
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logFormat(core.FlagWarning, true, format, args)
}

// WarnFunc is an alias for WarningFunc
func (l *Logger) WarnFunc(produce func() string, opts ...Option) {
	l.logFunc(core.FlagWarning, true, produce, opts)
}

// Info logs an info message
func (l *Logger) Info(msg string, opts ...Option) {
	l.logString(core.FlagInfo, true, msg, opts)
}

// Infof logs a formatted message; formatting happens only past the gate
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logFormat(core.FlagInfo, true, format, args)
}

// InfoFunc logs the text returned by produce, which is called only past the gate
func (l *Logger) InfoFunc(produce func() string, opts ...Option) {
	l.logFunc(core.FlagInfo, true, produce, opts)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, opts ...Option) {
	l.logString(core.FlagDebug, true, msg, opts)
}

// Debugf logs a formatted message; formatting happens only past the gate
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logFormat(core.FlagDebug, true, format, args)
}

// DebugFunc logs the text returned by produce, which is called only past the gate
func (l *Logger) DebugFunc(produce func() string, opts ...Option) {
	l.logFunc(core.FlagDebug, true, produce, opts)
}

// Verbose logs a verbose message
func (l *Logger) Verbose(msg string, opts ...Option) {
	l.logString(core.FlagVerbose, true, msg, opts)
}

// Verbosef logs a formatted message; formatting happens only past the gate
func (l *Logger) Verbosef(format string, args ...interface{}) {
	l.logFormat(core.FlagVerbose, true, format, args)
}

// VerboseFunc logs the text returned by produce, which is called only past the gate
func (l *Logger) VerboseFunc(produce func() string, opts ...Option) {
	l.logFunc(core.FlagVerbose, true, produce, opts)
}
