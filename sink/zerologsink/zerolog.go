// Package zerologsink forwards messages to a zerolog logger.
package zerologsink

import (
	"strconv"

	"github.com/rs/zerolog"

	"github.com/philipp01105/lumber/core"
	"github.com/philipp01105/lumber/sink"
)

var (
	_ sink.Sink  = &Sink{}
	_ sink.Named = &Sink{}
)

// Sink writes messages as zerolog events. The message timestamp is
// written under zerolog.TimestampFieldName, so the wrapped logger should
// not add its own timestamp.
type Sink struct {
	logger zerolog.Logger
}

// New wraps a zerolog logger
func New(logger zerolog.Logger) *Sink {
	return &Sink{logger: logger}
}

// Name implements sink.Named
func (s *Sink) Name() string { return "zerolog" }

// Level maps a flag to the zerolog level used for it
func Level(flag core.Flag) zerolog.Level {
	switch flag.Level() {
	case core.LevelError:
		return zerolog.ErrorLevel
	case core.LevelWarning:
		return zerolog.WarnLevel
	case core.LevelInfo:
		return zerolog.InfoLevel
	case core.LevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// Log implements sink.Sink
func (s *Sink) Log(msg *core.Message) error {
	e := s.logger.WithLevel(Level(msg.Flag()))
	if e == nil {
		return nil
	}
	e = e.Time(zerolog.TimestampFieldName, msg.Timestamp()).
		Stringer("flag", msg.Flag())
	if msg.File() != "" {
		e = e.Str(zerolog.CallerFieldName, msg.ShortFile()+":"+strconv.Itoa(msg.Line()))
	}
	if fn := msg.Function(); fn != "" {
		e = e.Str("function", fn)
	}
	if msg.Context() != 0 {
		e = e.Int("context", msg.Context())
	}
	if tag := msg.Tag(); tag != nil {
		e = e.Interface("tag", tag)
	}
	e.Msg(msg.Text())
	return nil
}
