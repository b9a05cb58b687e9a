// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// ensemble runs a narrated conversation between model-driven
// characters. A narrator describes the scene; each turn every
// character is asked whether it wants to speak, the narrator picks
// one when several do, narrates, and the chosen character speaks.
//
// The scene comes from a YAML or JSONC file (--config, or the
// ENSEMBLE_CONFIG environment variable), or is invented by the
// narrator from a one-line story prompt (--prompt). A finished run can
// be watched again without any model calls (--replay).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ensemble/lib/config"
	"github.com/bureau-foundation/ensemble/lib/process"
	"github.com/bureau-foundation/ensemble/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

// options are the command-line flags. Flags that are set override the
// scene file.
type options struct {
	configPath  string
	prompt      string
	mode        string
	maxTurns    int
	pace        string
	logFile     string
	logLevel    string
	transcript  string
	archive     string
	replay      string
	noVoice     bool
	showVersion bool
}

func run() error {
	var flags options
	flagSet := pflag.NewFlagSet("ensemble", pflag.ContinueOnError)
	flagSet.StringVarP(&flags.configPath, "config", "c", "", "scene file, .yaml or .jsonc (default: $ENSEMBLE_CONFIG)")
	flagSet.StringVarP(&flags.prompt, "prompt", "p", "", "invent the cast and opening scene from this story prompt")
	flagSet.StringVar(&flags.mode, "mode", "", "presentation: plain, tui, or headless")
	flagSet.IntVar(&flags.maxTurns, "max-turns", 0, "number of turns to run")
	flagSet.StringVar(&flags.pace, "pace", "", "pause after each turn, e.g. 2s")
	flagSet.StringVar(&flags.logFile, "log-file", "", "write JSON log records to this file instead of stderr")
	flagSet.StringVar(&flags.logLevel, "log-level", "info", "minimum log level: debug, info, warn, or error")
	flagSet.StringVar(&flags.transcript, "transcript", "", "append the session log (JSONL) to this file")
	flagSet.StringVar(&flags.archive, "archive", "", "write a compressed archive of the run to this file")
	flagSet.StringVar(&flags.replay, "replay", "", "present a recorded archive instead of running a conversation")
	flagSet.BoolVar(&flags.noVoice, "no-voice", false, "disable speech even if the scene enables it")
	flagSet.BoolVar(&flags.showVersion, "version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if flags.showVersion {
		fmt.Printf("ensemble %s\n", version.Full())
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	level, err := parseLevel(flags.logLevel)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if flags.replay != "" {
		mode := config.Mode(flags.mode)
		if mode == "" {
			mode = config.ModePlain
		}
		logger, closeLog, err := newLogger(level, flags.logFile, mode == config.ModeTUI)
		if err != nil {
			return err
		}
		defer closeLog()
		stop := watchSignals(ctx, cancel, logger)
		return replay(ctx, stop, logger, flags, mode)
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if err := cfg.ValidateSettings(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, closeLog, err := newLogger(level, flags.logFile, cfg.Run.Mode == config.ModeTUI)
	if err != nil {
		return err
	}
	defer closeLog()
	stop := watchSignals(ctx, cancel, logger)

	return runScene(ctx, stop, logger, cfg, flags.prompt)
}

// loadConfig reads the scene file named by --config or
// ENSEMBLE_CONFIG. With only --prompt the defaults are used and the
// scene is generated later. Set flags are applied on top.
func loadConfig(flags options) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case flags.configPath != "":
		cfg, err = config.LoadFile(flags.configPath)
	case os.Getenv("ENSEMBLE_CONFIG") != "":
		cfg, err = config.Load()
	case flags.prompt != "":
		cfg = config.Default()
		cfg.ResolveAPIKeys()
	default:
		return nil, errors.New("no scene: pass --config, set ENSEMBLE_CONFIG, or pass --prompt")
	}
	if err != nil {
		return nil, err
	}

	if flags.mode != "" {
		cfg.Run.Mode = config.Mode(flags.mode)
	}
	if flags.maxTurns != 0 {
		cfg.Run.MaxTurns = flags.maxTurns
	}
	if flags.pace != "" {
		cfg.Run.Pace = flags.pace
	}
	if flags.transcript != "" {
		cfg.Transcript.Path = flags.transcript
	}
	if flags.archive != "" {
		cfg.Transcript.ArchivePath = flags.archive
	}
	if flags.noVoice {
		cfg.Voice.Enabled = false
	}
	return cfg, nil
}

// watchSignals closes the returned channel on the first SIGINT or
// SIGTERM, letting the current turn finish, and cancels ctx on the
// second.
func watchSignals(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger) <-chan struct{} {
	stop := make(chan struct{})
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(signals)
		select {
		case received := <-signals:
			logger.Info("stopping after the current turn", "signal", received.String())
			close(stop)
		case <-ctx.Done():
			return
		}
		select {
		case received := <-signals:
			logger.Warn("interrupted", "signal", received.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return stop
}

// shutdownTimeout bounds the work done after the conversation ends:
// draining speech and writing the archive.
const shutdownTimeout = 30 * time.Second

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `ensemble: a narrated conversation between model-driven characters.

Usage:
  ensemble [flags]

Examples:
  # Run the scene in tavern.yaml
  ensemble --config tavern.yaml

  # Let the narrator invent the story, in the full-screen viewer
  ensemble --prompt "a heist planned in a lighthouse" --mode tui --log-file ensemble.log

  # Keep a session log and an archive, then watch the run again
  ensemble -c tavern.yaml --transcript tavern.jsonl --archive tavern.ens
  ensemble --replay tavern.ens --pace 2s

In plain mode the first Ctrl-C stops after the current turn and the
second stops at once. In tui mode press q to stop and space to pause;
log records are discarded unless --log-file is given.

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
