package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xtxerr/tierstat/internal/config"
	"github.com/xtxerr/tierstat/internal/errors"
	"github.com/xtxerr/tierstat/internal/logging"
)

const usageHelp = `Please specify an input run directory. If you already completed
benchmarks they can be found under results/*.

Usage:
    tierstat analyze <path/to/benchmark>`

var errUsage = errors.New("usage error")

// options are the flags shared by all subcommands.
type options struct {
	configPath string
	logLevel   string
	logJSON    bool
	workers    int
	tiers      int

	cfg *config.Config
}

// load reads the config file, applies flag overrides and sets up logging.
func (o *options) load(cmd *cobra.Command) error {
	cfg := config.DefaultConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON = o.logJSON
	}
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if flags.Changed("tiers") {
		cfg.Tiers = o.tiers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.InitWriter(cmd.ErrOrStderr(), logging.ParseLevel(cfg.Log.Level), cfg.Log.JSON)
	logging.Component("cli").Debug("configuration loaded", "config", cfg)

	o.cfg = cfg
	return nil
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "tierstat",
		Short:         "Analyzes tier telemetry of storage engine benchmark runs",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", err, errUsage)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML config file (defaults apply when empty)")
	pf.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	pf.BoolVar(&opts.logJSON, "log-json", false, "log as JSON")
	pf.IntVar(&opts.workers, "workers", 0, "timesteps analyzed concurrently (overrides config)")
	pf.IntVar(&opts.tiers, "tiers", 0, "number of storage tiers (overrides config)")

	root.AddCommand(
		newAnalyzeCmd(opts),
		newQueryCmd(opts),
		newShellCmd(opts),
		newFSBenchCmd(opts),
		newFramesCmd(opts),
	)
	return root
}

// argsRange accepts between min and max arguments and reports the run
// directory usage otherwise.
func argsRange(min, max int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < min || len(args) > max {
			return fmt.Errorf("%s: %w", cmd.UseLine(), errUsage)
		}
		return nil
	}
}

// dirArg requires exactly one directory argument.
var dirArg = argsRange(1, 1)

// signalContext is cancelled on SIGINT and SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Execute runs the CLI and returns the process exit code.
func Execute(args []string) int {
	return execute(args, os.Stdout, os.Stderr)
}

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if len(args) == 0 {
		fmt.Fprintln(stderr, usageHelp)
		return errors.ExitUsage
	}

	err := root.Execute()
	if err == nil {
		return errors.ExitOK
	}
	if errors.Is(err, errUsage) {
		fmt.Fprintf(stderr, "tierstat: %v\n\n%s\n", err, usageHelp)
		return errors.ExitUsage
	}
	fmt.Fprintf(stderr, "tierstat: %v\n", err)
	if errors.IsDataIntegrity(err) {
		fmt.Fprintln(stderr, "tierstat: telemetry rejected, nothing was written")
	}
	return errors.ExitCode(err)
}
