// Package core defines the shared types used across lumber.
//
// Severity comes in two shapes. A Flag is a bitmask with one bit per
// class (error, warning, info, debug, verbose) and may combine classes
// freely. A Level is a threshold whose value is the cumulative OR of
// every class from error down to its own, so LevelInfo admits errors,
// warnings and info messages. The two share one integer domain:
// FlagFromLevel is a reinterpretation, and a message passes a level
// when level&flag != 0.
//
// FlagToLevel maps a flag back to a level. A flag equal to a level's
// value maps to that level; any other combination maps to its least
// severe class, so FlagWarning alone is LevelWarning, and zero is
// LevelOff.
//
// Message is the immutable record handed to sinks. Build one with
// NewMessage; nothing can change it afterwards, so it is safe to read
// from several goroutines. MessageOptions control whether origin
// strings and the opaque tag are copied at construction time.
package core
