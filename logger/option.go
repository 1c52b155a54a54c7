package logger

import (
	"time"

	"github.com/philipp01105/lumber/core"
)

// call holds the per-call settings resolved before the level gate
type call struct {
	level    core.Level
	levelSet bool
	context  int
	tag      interface{}
	async    bool
	ts       time.Time
	file     string
	function string
	line     int
	origin   bool
}

// Option adjusts a single log call
type Option func(*call)

// AtLevel gates this call on level instead of the logger's level
func AtLevel(level core.Level) Option {
	return func(c *call) {
		c.level = level
		c.levelSet = true
	}
}

// WithContext sets the context code
func WithContext(context int) Option {
	return func(c *call) {
		c.context = context
	}
}

// WithTag attaches an opaque tag
func WithTag(tag interface{}) Option {
	return func(c *call) {
		c.tag = tag
	}
}

// Sync makes the call return only after every sink has the message
func Sync() Option {
	return func(c *call) {
		c.async = false
	}
}

// Async makes the call return as soon as the message is queued
func Async() Option {
	return func(c *call) {
		c.async = true
	}
}

// At sets the message timestamp
func At(ts time.Time) Option {
	return func(c *call) {
		c.ts = ts
	}
}

// WithOrigin sets the source location instead of capturing it
func WithOrigin(file, function string, line int) Option {
	return func(c *call) {
		c.file = file
		c.function = function
		c.line = line
		c.origin = true
	}
}
