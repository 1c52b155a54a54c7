// Package logrussink forwards messages to a logrus logger.
package logrussink

import (
	"github.com/sirupsen/logrus"

	"github.com/philipp01105/lumber/core"
	"github.com/philipp01105/lumber/sink"
)

var (
	_ sink.Sink  = &Sink{}
	_ sink.Named = &Sink{}
)

// Sink writes messages as logrus entries
type Sink struct {
	logger *logrus.Logger
}

// New wraps a logrus logger
func New(logger *logrus.Logger) *Sink {
	return &Sink{logger: logger}
}

// Name implements sink.Named
func (s *Sink) Name() string { return "logrus" }

// Level maps a flag to the logrus level used for it
func Level(flag core.Flag) logrus.Level {
	switch flag.Level() {
	case core.LevelError:
		return logrus.ErrorLevel
	case core.LevelWarning:
		return logrus.WarnLevel
	case core.LevelInfo:
		return logrus.InfoLevel
	case core.LevelDebug:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

// Log implements sink.Sink
func (s *Sink) Log(msg *core.Message) error {
	level := Level(msg.Flag())
	if !s.logger.IsLevelEnabled(level) {
		return nil
	}
	fields := logrus.Fields{"flag": msg.Flag().String()}
	if msg.File() != "" {
		fields["file"] = msg.ShortFile()
		fields["line"] = msg.Line()
	}
	if fn := msg.Function(); fn != "" {
		fields["function"] = fn
	}
	if msg.Context() != 0 {
		fields["context"] = msg.Context()
	}
	if tag := msg.Tag(); tag != nil {
		fields["tag"] = tag
	}
	logrus.NewEntry(s.logger).
		WithTime(msg.Timestamp()).
		WithFields(fields).
		Log(level, msg.Text())
	return nil
}
