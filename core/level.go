package core

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Flag is a bitmask with one bit per severity class
type Flag uint32

const (
	// FlagError marks error messages
	FlagError Flag = 1 << iota
	// FlagWarning marks warning messages
	FlagWarning
	// FlagInfo marks informational messages
	FlagInfo
	// FlagDebug marks debug messages
	FlagDebug
	// FlagVerbose marks verbose messages
	FlagVerbose
)

// Level is a severity threshold. Each level's value is the OR of the
// flags from FlagError up to and including its own class, so a level
// admits every class at or above its severity.
type Level uint32

const (
	// LevelOff admits nothing
	LevelOff Level = 0
	// LevelError admits errors only
	LevelError = Level(FlagError)
	// LevelWarning admits errors and warnings
	LevelWarning = LevelError | Level(FlagWarning)
	// LevelInfo admits errors, warnings and info
	LevelInfo = LevelWarning | Level(FlagInfo)
	// LevelDebug admits everything except verbose
	LevelDebug = LevelInfo | Level(FlagDebug)
	// LevelVerbose admits every class (default)
	LevelVerbose = LevelDebug | Level(FlagVerbose)
	// LevelAll has every bit set
	LevelAll = ^Level(0)
)

// FlagFromLevel reinterprets a level as the flag mask it admits
func FlagFromLevel(level Level) Flag {
	return Flag(level)
}

// FlagToLevel returns the level whose value equals the flag, or the
// least severe class present in the flag when no level matches.
func FlagToLevel(flag Flag) Level {
	switch Level(flag) {
	case LevelOff, LevelError, LevelWarning, LevelInfo, LevelDebug, LevelVerbose, LevelAll:
		return Level(flag)
	}
	switch {
	case flag&FlagVerbose != 0:
		return LevelVerbose
	case flag&FlagDebug != 0:
		return LevelDebug
	case flag&FlagInfo != 0:
		return LevelInfo
	case flag&FlagWarning != 0:
		return LevelWarning
	case flag&FlagError != 0:
		return LevelError
	default:
		return LevelOff
	}
}

// Level returns FlagToLevel(f)
func (f Flag) Level() Level {
	return FlagToLevel(f)
}

// Allows reports whether a message carrying flag passes this threshold
func (l Level) Allows(flag Flag) bool {
	return Flag(l)&flag != 0
}

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "OFF"
	case LevelError:
		return "ERROR"
	case LevelWarning:
		return "WARNING"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelVerbose:
		return "VERBOSE"
	case LevelAll:
		return "ALL"
	default:
		return "LEVEL(" + Flag(l).String() + ")"
	}
}

var flagNames = [...]struct {
	flag Flag
	name string
}{
	{FlagError, "ERROR"},
	{FlagWarning, "WARNING"},
	{FlagInfo, "INFO"},
	{FlagDebug, "DEBUG"},
	{FlagVerbose, "VERBOSE"},
}

// String joins the names of the set bits with '|', e.g. "ERROR|WARNING".
// A zero flag is "NONE".
func (f Flag) String() string {
	if f == 0 {
		return "NONE"
	}
	var b strings.Builder
	for _, n := range flagNames {
		if f&n.flag == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('|')
		}
		b.WriteString(n.name)
	}
	if rest := f &^ (FlagError | FlagWarning | FlagInfo | FlagDebug | FlagVerbose); rest != 0 {
		if b.Len() > 0 {
			b.WriteByte('|')
		}
		b.WriteString("0x")
		b.WriteString(strings.ToUpper(strconv.FormatUint(uint64(rest), 16)))
	}
	return b.String()
}

// Tag returns the single-class name used by formatters. Combined flags
// are named after their least severe class.
func (f Flag) Tag() string {
	switch {
	case f&FlagVerbose != 0:
		return "VERBOSE"
	case f&FlagDebug != 0:
		return "DEBUG"
	case f&FlagInfo != 0:
		return "INFO"
	case f&FlagWarning != 0:
		return "WARNING"
	case f&FlagError != 0:
		return "ERROR"
	default:
		return "NONE"
	}
}

// ParseLevel converts a level name such as "info" or "warn" to a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OFF", "NONE":
		return LevelOff, nil
	case "ERROR":
		return LevelError, nil
	case "WARN", "WARNING":
		return LevelWarning, nil
	case "INFO":
		return LevelInfo, nil
	case "DEBUG":
		return LevelDebug, nil
	case "VERBOSE", "TRACE":
		return LevelVerbose, nil
	case "ALL":
		return LevelAll, nil
	default:
		return LevelOff, errors.Errorf("unknown level %q", s)
	}
}

// ParseFlag parses a '|' or ',' separated list of class names
func ParseFlag(s string) (Flag, error) {
	var f Flag
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		switch strings.ToUpper(strings.TrimSpace(part)) {
		case "":
		case "ERROR":
			f |= FlagError
		case "WARN", "WARNING":
			f |= FlagWarning
		case "INFO":
			f |= FlagInfo
		case "DEBUG":
			f |= FlagDebug
		case "VERBOSE", "TRACE":
			f |= FlagVerbose
		default:
			return 0, errors.Errorf("unknown flag %q", part)
		}
	}
	return f, nil
}

// LevelVar is a Level that can be read and changed concurrently.
// The zero value holds LevelVerbose.
type LevelVar struct {
	// stored as level ^ LevelVerbose so that the zero value means verbose
	v atomic.Uint32
}

// NewLevelVar returns a LevelVar holding level
func NewLevelVar(level Level) *LevelVar {
	lv := &LevelVar{}
	lv.Set(level)
	return lv
}

// Level returns the current level
func (lv *LevelVar) Level() Level {
	return Level(lv.v.Load()) ^ LevelVerbose
}

// Set changes the current level
func (lv *LevelVar) Set(level Level) {
	lv.v.Store(uint32(level ^ LevelVerbose))
}

// Reset restores LevelVerbose
func (lv *LevelVar) Reset() {
	lv.v.Store(0)
}

// String returns the current level's name
func (lv *LevelVar) String() string {
	return lv.Level().String()
}
