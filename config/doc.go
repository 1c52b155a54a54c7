// Package config builds a pipeline and logger from a declarative
// description.
//
// Load picks the decoder from the file extension: TOML, JSON or JSON5,
// and YAML are supported. FromEnv overlays LUMBER_* environment
// variables, and Build turns the result into a running pipeline:
//
//	cfg, err := config.Load("lumber.toml")
//	if err != nil { ... }
//	if err := config.FromEnv(&cfg); err != nil { ... }
//	p, log, err := config.Build(cfg)
//	defer p.Close()
package config
