package config

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Environment variables read by FromEnv
const (
	EnvLevel        = "LUMBER_LEVEL"
	EnvClock        = "LUMBER_CLOCK"
	EnvQueueSize    = "LUMBER_QUEUE_SIZE"
	EnvOverflow     = "LUMBER_OVERFLOW"
	EnvBlockTimeout = "LUMBER_BLOCK_TIMEOUT"
	EnvDrainTimeout = "LUMBER_DRAIN_TIMEOUT"
	EnvSinkRetries  = "LUMBER_SINK_RETRIES"
	EnvDiagnostics  = "LUMBER_DIAGNOSTICS"
)

// FromEnv overlays LUMBER_* environment variables onto cfg
func FromEnv(cfg *Config) error {
	return fromLookup(cfg, os.LookupEnv)
}

func fromLookup(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvLevel); ok {
		cfg.Level = v
	}
	if v, ok := lookup(EnvClock); ok {
		cfg.Clock = v
	}
	if v, ok := lookup(EnvOverflow); ok {
		cfg.Pipeline.Overflow = v
	}
	if v, ok := lookup(EnvBlockTimeout); ok {
		cfg.Pipeline.BlockTimeout = v
	}
	if v, ok := lookup(EnvDrainTimeout); ok {
		cfg.Pipeline.DrainTimeout = v
	}
	if v, ok := lookup(EnvQueueSize); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "config: %s", EnvQueueSize)
		}
		cfg.Pipeline.QueueSize = n
	}
	if v, ok := lookup(EnvSinkRetries); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "config: %s", EnvSinkRetries)
		}
		cfg.Pipeline.SinkRetries = n
	}
	if v, ok := lookup(EnvDiagnostics); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "config: %s", EnvDiagnostics)
		}
		cfg.Pipeline.Diagnostics = b
	}
	return nil
}
