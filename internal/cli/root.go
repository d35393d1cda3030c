// Package cli implements the custody command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mrz1836/custody/internal/chain"
	"github.com/mrz1836/custody/internal/config"
	"github.com/mrz1836/custody/internal/custody"
	"github.com/mrz1836/custody/internal/output"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool
	networkFlag  string

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *config.Logger
	formatter *output.Formatter

	// buildSystemFn assembles the engine. Tests replace it.
	buildSystemFn = custody.Build
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "custody",
	Short: "Custodial wallet engine with confirmation codes",
	Long: `Custody holds encrypted EVM wallets on behalf of chat users. Every
transfer is staged with a one-time confirmation code and only broadcast
once the same sender replies with that code.

Example:
  custody wallet create --qr address.png
  custody balance +2348012345678
  custody console --as +2348012345678`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initGlobals(cmd)
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	setupHelp()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		format := output.FormatText
		if formatter != nil {
			format = formatter.Format()
		}
		_ = output.FormatError(rootCmd.ErrOrStderr(), err, format)
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return custodyerr.ExitCode(err)
}

// initGlobals loads configuration, then environment, then flags.
func initGlobals(cmd *cobra.Command) error {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	var err error
	cfg, err = config.Load(config.Path(home))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = config.Defaults()
	case err != nil:
		return err
	}
	cfg.Home = home

	if err := config.ApplyEnvironment(cfg); err != nil {
		return err
	}

	if homeDir != "" {
		cfg.Home = homeDir
	}
	if verbose {
		cfg.Output.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != string(output.FormatAuto) {
		cfg.Output.DefaultFormat = outputFormat
	}
	if networkFlag != "" {
		cfg.Networks.Default = networkFlag
	}

	logFile := cfg.Logging.File
	if logFile == "" {
		if expanded, err := config.ExpandHome(cfg.Home); err == nil {
			logFile = filepath.Join(expanded, "custody.log")
		}
	}
	logger, err = config.NewLogger(config.ParseLogLevel(cfg.Logging.Level), logFile)
	if err != nil {
		logger = config.NullLogger()
	}

	out := cmd.OutOrStdout()
	format := output.DetectFormat(out, output.ParseFormat(cfg.Output.DefaultFormat))
	formatter = output.NewFormatter(format, out).WithErrWriter(cmd.ErrOrStderr())

	return nil
}

// cleanup releases resources.
func cleanup() {
	if logger != nil {
		_ = logger.Close()
	}
}

// selectedNetwork is --network, or the configured default.
func selectedNetwork() chain.NetworkID {
	return chain.ParseNetworkID(cfg.Networks.Default)
}

// openSystem builds the engine for one command. The caller must Close it.
func openSystem(cmd *cobra.Command, opts *custody.Options) (*custody.System, error) {
	if opts == nil {
		opts = &custody.Options{}
	}
	if opts.Logger == nil {
		opts.Logger = logger
	}
	if opts.Console == nil {
		opts.Console = cmd.OutOrStdout()
	}
	return buildSystemFn(cmd.Context(), cfg, opts)
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "custody data directory (default: ~/.custody)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&networkFlag, "network", "n", "", "network id (default: config networks.default)")
}
