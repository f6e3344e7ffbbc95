// Package cli implements the storefront command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/stevemurr/storefront/config"
	"github.com/stevemurr/storefront/storefront"
	"github.com/stevemurr/storefront/toast"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Backend    string
	DataDir    string
	Format     string // "json" | "text"
	LogLevel   string
	Quiet      bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the storefront CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront catalog, cart, accounts and orders",
		Long: `Manage a storefront from the command line.

State is kept in the configured store backend (JSON files in ./data by
default), so a cart, a login or a new product survives between runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "store backend (json|sqlite|memory|postgres|s3)")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "data directory for the json and sqlite backends")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVarP(&opts.Quiet, "quiet", "q", false, "do not print notifications")

	cmd.AddCommand(NewCatalogCommand(opts))
	cmd.AddCommand(NewCartCommand(opts))
	cmd.AddCommand(NewAccountCommand(opts))
	cmd.AddCommand(NewCheckoutCommand(opts))
	cmd.AddCommand(NewOrdersCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))

	return cmd
}

// Execute runs the CLI with args and returns the process exit code. Errors
// not already reported by a command are printed to stderr.
func Execute(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || !exitErr.Reported {
		fmt.Fprintf(stderr, "Error: %s\n", err)
	}
	return GetExitCode(err)
}

// loadConfig resolves the config file and environment, then applies flags.
func (o *RootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.Backend != "" {
		cfg.Store.Backend = o.Backend
	}
	if o.DataDir != "" {
		cfg.Store.DataDir = o.DataDir
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	return cfg, cfg.Validate()
}

// run opens the storefront, hands it to fn and reports fn's error in the
// configured format.
func (o *RootOptions) run(cmd *cobra.Command, fn func(*storefront.Storefront, *OutputFormatter) error) error {
	out := &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
	}
	cfg, err := o.loadConfig()
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "invalid configuration", err))
	}
	logger := cfg.NewLogger(cmd.ErrOrStderr())
	sink := toast.NewLogger(logger)
	if !o.Quiet {
		sink = toast.Multi(toast.NewWriter(cmd.ErrOrStderr()), sink)
	}
	sf, err := storefront.Open(cmd.Context(), cfg,
		storefront.WithLogger(logger),
		storefront.WithToasts(sink),
	)
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "failed to open storefront", err))
	}
	defer sf.Close()

	if err := fn(sf, out); err != nil {
		return out.Fail(err)
	}
	return nil
}
