package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/katalvlaran/lvmatmul/bootstrap"
	"github.com/katalvlaran/lvmatmul/logging"
	"github.com/katalvlaran/lvmatmul/orchestrator"
	"github.com/katalvlaran/lvmatmul/partition"
)

// app holds what every subcommand shares.
type app struct {
	stdout, stderr io.Writer
	getenv         func(string) string

	configPath string
	logLevel   string
	logFormat  string
	allRanks   bool
	debug      bool
	verbose    bool
	quiet      bool

	compute computeFlags
}

// computeFlags mirror the run fields of bootstrap.Config.
type computeFlags struct {
	n       int
	seed    uint64
	policy  string
	workers int
	timeout string
}

func newRootCmd(stdout, stderr io.Writer, getenv func(string) string) *cobra.Command {
	a := &app{stdout: stdout, stderr: &lockedWriter{w: stderr}, getenv: getenv}

	root := &cobra.Command{
		Use:           "lvmatmul",
		Short:         "Distributed row-block dense matrix multiplication",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "TOML configuration file")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&a.logFormat, "log-format", "", "log format (text, json)")
	pf.BoolVar(&a.allRanks, "all-ranks", false, "log progress on every rank, not only the coordinator")
	pf.BoolVar(&a.debug, "vv", false, "debug logging")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "info logging")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "errors only")

	root.AddCommand(
		newLocalCmd(a),
		newRunCmd(a),
		newPingPongCmd(a),
		newHostfileCmd(a),
		newConfigCmd(a),
	)

	return root
}

func addComputeFlags(fs *pflag.FlagSet, f *computeFlags) {
	fs.IntVar(&f.n, "n", bootstrap.DefaultN, "matrix dimension")
	fs.Uint64Var(&f.seed, "seed", orchestrator.DefaultSeed, "operand seed")
	fs.StringVar(&f.policy, "policy", partition.DefaultPolicy.String(), "remainder policy (strict, coordinator-remainder)")
	fs.IntVar(&f.workers, "workers", 1, "kernel goroutines per rank")
	fs.StringVar(&f.timeout, "timeout", bootstrap.DefaultTimeout.String(), "overall deadline")
}

// loadConfig layers file, environment and changed flags.
func (a *app) loadConfig(fs *pflag.FlagSet) (bootstrap.Config, error) {
	cfg := bootstrap.Default()
	if a.configPath != "" {
		var err error
		if cfg, err = bootstrap.LoadFile(a.configPath); err != nil {
			return cfg, err
		}
	}
	if err := bootstrap.ApplyEnv(&cfg, a.getenv); err != nil {
		return cfg, err
	}

	if fs.Changed("n") {
		cfg.N = a.compute.n
	}
	if fs.Changed("seed") {
		cfg.Seed = a.compute.seed
	}
	if fs.Changed("policy") {
		cfg.Policy = a.compute.policy
	}
	if fs.Changed("workers") {
		cfg.Workers = a.compute.workers
	}
	if fs.Changed("timeout") {
		cfg.Timeout = a.compute.timeout
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if a.allRanks {
		cfg.Log.AllRanks = true
	}

	return cfg, nil
}

// logOptions resolves the logging section plus the -vv/-v/-q shortcuts.
func (a *app) logOptions(cfg bootstrap.Config) (logging.Options, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return logging.Options{}, err
	}
	if a.debug || a.verbose || a.quiet {
		level = logging.LevelFromFlags(a.debug, a.verbose, a.quiet)
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		return logging.Options{}, err
	}

	return logging.Options{Level: level, Format: format, AllRanks: cfg.Log.AllRanks}, nil
}

// orchestratorConfig converts the process configuration for Run.
func orchestratorConfig(cfg bootstrap.Config) (orchestrator.Config, error) {
	policy, err := partition.ParsePolicy(cfg.Policy)
	if err != nil {
		return orchestrator.Config{}, err
	}
	host, _ := os.Hostname()

	return orchestrator.Config{
		N:       cfg.N,
		Seed:    cfg.Seed,
		Policy:  policy,
		Workers: cfg.Workers,
		Host:    host,
	}, nil
}

func (a *app) logger(rank int, o logging.Options) *slog.Logger {
	return logging.New(a.stderr, rank, o)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}

// lockedWriter serializes writes from the loggers of in-process ranks.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.w.Write(p)
}
