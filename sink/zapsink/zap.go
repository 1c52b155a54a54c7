// Package zapsink forwards messages to a zap logger.
package zapsink

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/philipp01105/lumber/core"
	"github.com/philipp01105/lumber/sink"
)

var (
	_ sink.Sink    = &Sink{}
	_ sink.Flusher = &Sink{}
	_ sink.Named   = &Sink{}
)

// Sink writes messages into a zapcore.Core. Message timestamps and origin
// are preserved.
type Sink struct {
	core zapcore.Core
	name string
}

// New wraps a zap logger. The levels don't match exactly: verbose
// becomes Debug.
func New(logger *zap.Logger) *Sink {
	return &Sink{core: logger.Core(), name: "zap"}
}

// Name implements sink.Named
func (s *Sink) Name() string { return s.name }

// Level maps a flag to the zap level used for it
func Level(flag core.Flag) zapcore.Level {
	switch flag.Level() {
	case core.LevelError:
		return zapcore.ErrorLevel
	case core.LevelWarning:
		return zapcore.WarnLevel
	case core.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// Log implements sink.Sink
func (s *Sink) Log(msg *core.Message) error {
	entry := zapcore.Entry{
		Level:   Level(msg.Flag()),
		Time:    msg.Timestamp(),
		Message: msg.Text(),
	}
	if msg.File() != "" {
		entry.Caller = zapcore.NewEntryCaller(0, msg.File(), msg.Line(), true)
		entry.Caller.Function = msg.Function()
	}
	ce := s.core.Check(entry, nil)
	if ce == nil {
		return nil
	}

	fields := make([]zap.Field, 0, 3)
	fields = append(fields, zap.Stringer("flag", msg.Flag()))
	if msg.Context() != 0 {
		fields = append(fields, zap.Int("context", msg.Context()))
	}
	if tag := msg.Tag(); tag != nil {
		fields = append(fields, zap.Any("tag", tag))
	}
	ce.Write(fields...)
	return nil
}

// Flush syncs the underlying core
func (s *Sink) Flush() error {
	return s.core.Sync()
}
