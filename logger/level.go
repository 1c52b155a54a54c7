package logger

import (
	"github.com/philipp01105/lumber/core"
)

// Level and Flag re-exported for convenience
type (
	Level = core.Level
	Flag  = core.Flag
)

const (
	LevelOff     = core.LevelOff
	LevelError   = core.LevelError
	LevelWarning = core.LevelWarning
	LevelInfo    = core.LevelInfo
	LevelDebug   = core.LevelDebug
	LevelVerbose = core.LevelVerbose
	LevelAll     = core.LevelAll

	FlagError   = core.FlagError
	FlagWarning = core.FlagWarning
	FlagInfo    = core.FlagInfo
	FlagDebug   = core.FlagDebug
	FlagVerbose = core.FlagVerbose
)

// DefaultLevel is the process-wide level used by loggers that were not
// given their own. It starts at LevelVerbose.
var DefaultLevel = core.NewLevelVar(core.LevelVerbose)

// SetDefaultLevel changes the process-wide default level
func SetDefaultLevel(level Level) {
	DefaultLevel.Set(level)
}

// GetDefaultLevel returns the process-wide default level
func GetDefaultLevel() Level {
	return DefaultLevel.Level()
}

// ResetDefaultLevel restores the process-wide default level to LevelVerbose
func ResetDefaultLevel() {
	DefaultLevel.Reset()
}

// ParseLevel converts a level name to a Level
func ParseLevel(s string) (Level, error) {
	return core.ParseLevel(s)
}
