package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// Level is the logger level; empty follows logger.DefaultLevel
	Level string `toml:"level" json:"level" yaml:"level"`
	// Clock stamps messages: "system" (default) or "coarse"
	Clock    string       `toml:"clock" json:"clock" yaml:"clock"`
	Pipeline Pipeline     `toml:"pipeline" json:"pipeline" yaml:"pipeline"`
	Sinks    []SinkConfig `toml:"sinks" json:"sinks" yaml:"sinks"`
}

// Pipeline configures the dispatch pipeline. Durations use
// time.ParseDuration syntax.
type Pipeline struct {
	QueueSize    int               `toml:"queue_size" json:"queue_size" yaml:"queue_size"`
	Overflow     string            `toml:"overflow" json:"overflow" yaml:"overflow"`
	FlagPolicy   map[string]string `toml:"flag_policy" json:"flag_policy" yaml:"flag_policy"`
	BlockTimeout string            `toml:"block_timeout" json:"block_timeout" yaml:"block_timeout"`
	DrainTimeout string            `toml:"drain_timeout" json:"drain_timeout" yaml:"drain_timeout"`
	SinkRetries  int               `toml:"sink_retries" json:"sink_retries" yaml:"sink_retries"`
	// Diagnostics reports pipeline problems to stderr through zap
	Diagnostics bool `toml:"diagnostics" json:"diagnostics" yaml:"diagnostics"`
}

// SinkConfig describes one sink and its filter
type SinkConfig struct {
	// Type is one of console, file, archive, zap, zerolog, logrus
	Type string `toml:"type" json:"type" yaml:"type"`
	Name string `toml:"name" json:"name" yaml:"name"`

	Level           string `toml:"level" json:"level" yaml:"level"`
	Flags           string `toml:"flags" json:"flags" yaml:"flags"`
	Contexts        []int  `toml:"contexts" json:"contexts" yaml:"contexts"`
	ExcludeContexts []int  `toml:"exclude_contexts" json:"exclude_contexts" yaml:"exclude_contexts"`
	// Filter is a CEL expression evaluated per message
	Filter string `toml:"filter" json:"filter" yaml:"filter"`

	// Format is text or json
	Format         string `toml:"format" json:"format" yaml:"format"`
	IncludeCaller  bool   `toml:"include_caller" json:"include_caller" yaml:"include_caller"`
	IncludeContext bool   `toml:"include_context" json:"include_context" yaml:"include_context"`
	TimeFormat     string `toml:"time_format" json:"time_format" yaml:"time_format"`

	// Output is stdout or stderr for console, zerolog and logrus sinks
	Output   string `toml:"output" json:"output" yaml:"output"`
	Buffered bool   `toml:"buffered" json:"buffered" yaml:"buffered"`

	// Path, MaxSize, MaxAge, MaxBackups and RotateInterval configure file sinks
	Path           string `toml:"path" json:"path" yaml:"path"`
	MaxSize        int64  `toml:"max_size" json:"max_size" yaml:"max_size"`
	MaxAge         string `toml:"max_age" json:"max_age" yaml:"max_age"`
	MaxBackups     int    `toml:"max_backups" json:"max_backups" yaml:"max_backups"`
	RotateInterval string `toml:"rotate_interval" json:"rotate_interval" yaml:"rotate_interval"`

	// Dir and Sync configure archive sinks
	Dir  string `toml:"dir" json:"dir" yaml:"dir"`
	Sync bool   `toml:"sync" json:"sync" yaml:"sync"`
}

// Default returns built-in defaults: one text console sink on stdout.
func Default() Config {
	return Config{
		Pipeline: Pipeline{
			QueueSize: 1000,
			Overflow:  "block",
		},
		Sinks: []SinkConfig{{Type: "console"}},
	}
}

// Load reads configuration from a TOML, JSON/JSON5 or YAML file (by
// extension). If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "config: read")
	}
	cfg, err := Parse(b, filepath.Ext(path))
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, nil
}

// Parse decodes data in the format named by ext (".toml", ".json",
// ".json5", ".yaml" or ".yml"). Fields not set keep their defaults; a
// file that lists sinks replaces the default console sink.
func Parse(data []byte, ext string) (Config, error) {
	cfg := Default()
	cfg.Sinks = nil

	var err error
	switch strings.ToLower(ext) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".json", ".json5":
		err = json5.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return Config{}, errors.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return Config{}, err
	}
	if len(cfg.Sinks) == 0 {
		cfg.Sinks = Default().Sinks
	}
	return cfg, nil
}
