package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/philipp01105/lumber/core"
	"github.com/philipp01105/lumber/formatter"
	"github.com/philipp01105/lumber/logger"
	"github.com/philipp01105/lumber/pipeline"
	"github.com/philipp01105/lumber/sink"
	"github.com/philipp01105/lumber/sink/archivesink"
	"github.com/philipp01105/lumber/sink/consolesink"
	"github.com/philipp01105/lumber/sink/filesink"
	"github.com/philipp01105/lumber/sink/logrussink"
	"github.com/philipp01105/lumber/sink/zapsink"
	"github.com/philipp01105/lumber/sink/zerologsink"
)

// Build creates a pipeline with every configured sink and a logger
// wired to it. On error nothing is left open.
func Build(cfg Config) (*pipeline.Pipeline, *logger.Logger, error) {
	pcfg, err := pipelineConfig(cfg.Pipeline)
	if err != nil {
		return nil, nil, err
	}

	type built struct {
		s    sink.Sink
		opts []pipeline.SinkOption
	}
	var sinks []built
	closeAll := func() error {
		var errs error
		for _, b := range sinks {
			if c, ok := b.s.(io.Closer); ok {
				errs = multierr.Append(errs, c.Close())
			}
		}
		return errs
	}

	for i, sc := range cfg.Sinks {
		s, err := buildSink(sc)
		if err != nil {
			err = errors.Wrapf(err, "config: sink %d (%s)", i, sc.Type)
			return nil, nil, multierr.Append(err, closeAll())
		}
		opts, err := sinkOptions(sc)
		if err != nil {
			err = errors.Wrapf(err, "config: sink %d (%s)", i, sc.Type)
			sinks = append(sinks, built{s: s})
			return nil, nil, multierr.Append(err, closeAll())
		}
		sinks = append(sinks, built{s: s, opts: opts})
	}

	b := logger.NewBuilder()
	if cfg.Level != "" {
		level, err := core.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, multierr.Append(errors.Wrap(err, "config: level"), closeAll())
		}
		b.WithLevel(level)
	}
	clock, err := core.ParseClock(cfg.Clock)
	if err != nil {
		return nil, nil, multierr.Append(errors.Wrap(err, "config: clock"), closeAll())
	}
	b.WithClock(clock)

	p := pipeline.New(pcfg)
	for _, s := range sinks {
		p.AddSink(s.s, s.opts...)
	}
	return p, b.WithDispatcher(p).Build(), nil
}

func parseDuration(name, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "config: %s", name)
	}
	return d, nil
}

func pipelineConfig(pc Pipeline) (pipeline.Config, error) {
	out := pipeline.Config{
		QueueSize:   pc.QueueSize,
		Overflow:    pipeline.ParseOverflowPolicy(pc.Overflow),
		SinkRetries: pc.SinkRetries,
	}
	var err error
	if out.BlockTimeout, err = parseDuration("block_timeout", pc.BlockTimeout); err != nil {
		return out, err
	}
	if out.DrainTimeout, err = parseDuration("drain_timeout", pc.DrainTimeout); err != nil {
		return out, err
	}
	if len(pc.FlagPolicy) > 0 {
		out.FlagPolicy = make(map[core.Flag]pipeline.OverflowPolicy, len(pc.FlagPolicy))
		for name, policy := range pc.FlagPolicy {
			flag, err := core.ParseFlag(name)
			if err != nil {
				return out, errors.Wrap(err, "config: flag_policy")
			}
			out.FlagPolicy[flag] = pipeline.ParseOverflowPolicy(policy)
		}
	}
	if pc.Diagnostics {
		diag, err := zap.NewProduction()
		if err != nil {
			return out, errors.Wrap(err, "config: diagnostics logger")
		}
		out.Diagnostics = diag
	}
	return out, nil
}

func output(name string) (*os.File, error) {
	switch strings.ToLower(name) {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return nil, errors.Errorf("unknown output %q", name)
	}
}

func buildSink(sc SinkConfig) (sink.Sink, error) {
	fcfg := formatter.Config{
		IncludeCaller:   sc.IncludeCaller,
		IncludeContext:  sc.IncludeContext,
		TimestampFormat: sc.TimeFormat,
	}

	switch strings.ToLower(sc.Type) {
	case "", "console":
		w, err := output(sc.Output)
		if err != nil {
			return nil, err
		}
		return consolesink.New(consolesink.Config{
			Writer:    w,
			Formatter: formatter.New(sc.Format, fcfg),
			Buffered:  sc.Buffered,
			Name:      sc.Name,
		}), nil

	case "file":
		maxAge, err := parseDuration("max_age", sc.MaxAge)
		if err != nil {
			return nil, err
		}
		interval, err := parseDuration("rotate_interval", sc.RotateInterval)
		if err != nil {
			return nil, err
		}
		return filesink.New(filesink.Config{
			Filename:       sc.Path,
			Formatter:      formatter.New(sc.Format, fcfg),
			MaxSize:        sc.MaxSize,
			MaxAge:         maxAge,
			MaxBackups:     sc.MaxBackups,
			RotateInterval: interval,
		})

	case "archive":
		return archivesink.Open(archivesink.Config{Dir: sc.Dir, Sync: sc.Sync})

	case "zap":
		var zl *zap.Logger
		var err error
		if sc.Format == "text" {
			zl, err = zap.NewDevelopment()
		} else {
			zc := zap.NewProductionConfig()
			zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
			zl, err = zc.Build()
		}
		if err != nil {
			return nil, err
		}
		return zapsink.New(zl), nil

	case "zerolog":
		w, err := output(sc.Output)
		if err != nil {
			return nil, err
		}
		var zw io.Writer = w
		if sc.Format == "text" {
			zw = zerolog.ConsoleWriter{Out: w, NoColor: true}
		}
		return zerologsink.New(zerolog.New(zw).Level(zerolog.TraceLevel)), nil

	case "logrus":
		w, err := output(sc.Output)
		if err != nil {
			return nil, err
		}
		l := logrus.New()
		l.SetOutput(w)
		l.SetLevel(logrus.TraceLevel)
		if sc.Format == "json" {
			l.SetFormatter(&logrus.JSONFormatter{})
		}
		return logrussink.New(l), nil

	default:
		return nil, errors.Errorf("unknown sink type %q", sc.Type)
	}
}

func sinkOptions(sc SinkConfig) ([]pipeline.SinkOption, error) {
	var f sink.Filter
	if sc.Level != "" {
		level, err := core.ParseLevel(sc.Level)
		if err != nil {
			return nil, err
		}
		f.Level = &level
	}
	if sc.Flags != "" {
		flags, err := core.ParseFlag(sc.Flags)
		if err != nil {
			return nil, err
		}
		f.Flags = flags
	}
	f.Contexts = sc.Contexts
	f.ExcludeContexts = sc.ExcludeContexts
	if sc.Filter != "" {
		cel, err := sink.NewCELFilter(sc.Filter)
		if err != nil {
			return nil, err
		}
		f.Match = cel
	}

	opts := []pipeline.SinkOption{pipeline.WithFilter(f)}
	if sc.Name != "" {
		opts = append(opts, pipeline.WithName(sc.Name))
	}
	return opts, nil
}
