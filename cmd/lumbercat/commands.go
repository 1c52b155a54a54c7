package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/philipp01105/lumber/config"
	"github.com/philipp01105/lumber/core"
	"github.com/philipp01105/lumber/formatter"
	"github.com/philipp01105/lumber/logger"
	"github.com/philipp01105/lumber/sink/archivesink"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lumbercat",
		Short:         "Pipe text through a lumber pipeline",
		Long:          "lumbercat logs each line of its input through a configured lumber pipeline and can replay message archives.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newPipeCmd(), newReplayCmd())
	return rootCmd
}

func newPipeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipe",
		Short: "Log every line read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			levelName, _ := cmd.Flags().GetString("level")
			flagName, _ := cmd.Flags().GetString("flag")
			contextCode, _ := cmd.Flags().GetInt("context")
			sync, _ := cmd.Flags().GetBool("sync")

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := config.FromEnv(&cfg); err != nil {
				return err
			}
			if levelName != "" {
				cfg.Level = levelName
			}
			flag, err := core.ParseFlag(flagName)
			if err != nil {
				return errors.Wrap(err, "--flag")
			}

			p, log, err := config.Build(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			n, pipeErr := pipeLines(ctx, cmd.InOrStdin(), log, flag, !sync, contextCode)
			closeErr := p.Close()

			stats := p.Stats()
			if dropped := stats.TotalDropped(); dropped > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "lumbercat: %d of %d lines dropped\n", dropped, n)
			}
			if pipeErr != nil {
				return pipeErr
			}
			return closeErr
		},
	}
	cmd.Flags().String("config", "", "Config file (.toml, .json, .json5, .yaml)")
	cmd.Flags().String("level", "", "Logger level (off, error, warning, info, debug, verbose)")
	cmd.Flags().String("flag", "info", "Flag attached to every line")
	cmd.Flags().Int("context", 0, "Context code attached to every line")
	cmd.Flags().Bool("sync", false, "Submit every line synchronously")
	return cmd
}

// maxLineSize is the longest input line pipe accepts
const maxLineSize = 16 << 20

// pipeLines logs each input line and returns how many were read
func pipeLines(ctx context.Context, r io.Reader, log *logger.Logger, flag core.Flag, async bool, contextCode int) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	n := 0
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := scanner.Text()
		log.Log(flag, async, func() string { return line },
			logger.WithContext(contextCode),
			logger.WithOrigin("", "", 0),
		)
		n++
	}
	return n, errors.Wrap(scanner.Err(), "read input")
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Print the messages stored in an archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			format, _ := cmd.Flags().GetString("format")
			since, _ := cmd.Flags().GetDuration("since")
			levelName, _ := cmd.Flags().GetString("level")

			level := core.LevelAll
			if levelName != "" {
				var err error
				if level, err = core.ParseLevel(levelName); err != nil {
					return errors.Wrap(err, "--level")
				}
			}
			var from time.Time
			if since > 0 {
				from = time.Now().Add(-since)
			}

			archive, err := archivesink.Open(archivesink.Config{Dir: dir, ReadOnly: true})
			if err != nil {
				return err
			}
			defer archive.Close()

			return replay(archive, cmd.OutOrStdout(), formatter.New(format, formatter.Config{
				IncludeCaller:  true,
				IncludeContext: true,
			}), level, from)
		},
	}
	cmd.Flags().String("dir", "", "Archive directory")
	cmd.Flags().String("format", "text", "Output format (text or json)")
	cmd.Flags().Duration("since", 0, "Only messages newer than this")
	cmd.Flags().String("level", "", "Only messages admitted by this level")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func replay(archive *archivesink.Sink, w io.Writer, f formatter.Formatter, level core.Level, from time.Time) error {
	return archive.Replay(from, time.Time{}, func(rec archivesink.Record) error {
		msg := rec.Message()
		if !level.Allows(msg.Flag()) {
			return nil
		}
		data, err := f.Format(msg)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
}
