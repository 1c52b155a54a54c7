package logger

import (
	"sync"

	"github.com/philipp01105/lumber/core"
)

var (
	defaultLogger *Logger
	defaultMu     sync.RWMutex
)

func init() {
	// Follows DefaultLevel and sends to pipeline.Default()
	defaultLogger = NewBuilder().Build()
}

// Default returns the default logger
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault sets the default logger
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// Package-level convenience functions using the default logger

// Log calls Default().Log
func Log(flag core.Flag, async bool, produce func() string, opts ...Option) {
	Default().logFunc(flag, async, produce, opts)
}

// Error logs using the default logger
func Error(msg string, opts ...Option) {
	Default().logString(core.FlagError, false, msg, opts)
}

// Errorf logs a formatted message using the default logger
func Errorf(format string, args ...interface{}) {
	Default().logFormat(core.FlagError, false, format, args)
}

// ErrorFunc logs produced text using the default logger
func ErrorFunc(produce func() string, opts ...Option) {
	Default().logFunc(core.FlagError, false, produce, opts)
}

// Warning logs using the default logger
func Warning(msg string, opts ...Option) {
	Default().logString(core.FlagWarning, true, msg, opts)
}

// Warningf logs a formatted message using the default logger
func Warningf(format string, args ...interface{}) {
	Default().logFormat(core.FlagWarning, true, format, args)
}

// WarningFunc logs produced text using the default logger
func WarningFunc(produce func() string, opts ...Option) {
	Default().logFunc(core.FlagWarning, true, produce, opts)
}

// Warn logs using the default logger
func Warn(msg string, opts ...Option) {
	Default().logString(core.FlagWarning, true, msg, opts)
}

// Warnf logs a formatted message using the default logger
func Warnf(format string, args ...interface{}) {
	Default().logFormat(core.FlagWarning, true, format, args)
}

// WarnFunc logs produced text using the default logger
func WarnFunc(produce func() string, opts ...Option) {
	Default().logFunc(core.FlagWarning, true, produce, opts)
}

// Info logs using the default logger
func Info(msg string, opts ...Option) {
	Default().logString(core.FlagInfo, true, msg, opts)
}

// Infof logs a formatted message using the default logger
func Infof(format string, args ...interface{}) {
	Default().logFormat(core.FlagInfo, true, format, args)
}

// InfoFunc logs produced text using the default logger
func InfoFunc(produce func() string, opts ...Option) {
	Default().logFunc(core.FlagInfo, true, produce, opts)
}

// Debug logs using the default logger
func Debug(msg string, opts ...Option) {
	Default().logString(core.FlagDebug, true, msg, opts)
}

// Debugf logs a formatted message using the default logger
func Debugf(format string, args ...interface{}) {
	Default().logFormat(core.FlagDebug, true, format, args)
}

// DebugFunc logs produced text using the default logger
func DebugFunc(produce func() string, opts ...Option) {
	Default().logFunc(core.FlagDebug, true, produce, opts)
}

// Verbose logs using the default logger
func Verbose(msg string, opts ...Option) {
	Default().logString(core.FlagVerbose, true, msg, opts)
}

// Verbosef logs a formatted message using the default logger
func Verbosef(format string, args ...interface{}) {
	Default().logFormat(core.FlagVerbose, true, format, args)
}

// VerboseFunc logs produced text using the default logger
func VerboseFunc(produce func() string, opts ...Option) {
	Default().logFunc(core.FlagVerbose, true, produce, opts)
}
