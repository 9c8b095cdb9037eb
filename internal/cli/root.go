package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/reach/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose      bool
	Format       string // "json" | "text"
	IndirectMode string // "strict" | "broad"
	MaxPasses    int
	HelperDir    string

	// Config is loaded from the environment before any command runs.
	// Flags that were set explicitly take precedence.
	Config config.Config

	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Logger returns the process logger. Commands built without the root
// command (as in tests) get a logger that discards output.
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.logger
}

// NewRootCommand creates the root command for the reach CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "reach",
		Short: "reach - region reachability solver",
		Long: `Evaluate a game's access-rule graph against an inventory.

reach loads a rule-set (JSON, YAML or CUE), computes which regions,
entrances and locations are reachable, and collects event items until
the result converges.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.applyConfig(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.IndirectMode, "indirect-mode", "", "indirect dependency scan (strict|broad); env REACH_INDIRECT_MODE")
	cmd.PersistentFlags().IntVar(&opts.MaxPasses, "max-passes", 0, "event-convergence pass limit; env REACH_MAX_PASSES")
	cmd.PersistentFlags().StringVar(&opts.HelperDir, "helper-dir", "", "directory of Lua helper scripts; env REACH_HELPER_DIR")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewSolveCommand(opts))
	cmd.AddCommand(NewPathCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewSessionCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

// applyConfig loads the environment and fills flags that were not set.
func (o *RootOptions) applyConfig(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	o.Config = cfg

	flags := cmd.Flags()
	if !flags.Changed("indirect-mode") {
		o.IndirectMode = cfg.IndirectMode
	}
	if !flags.Changed("max-passes") {
		o.MaxPasses = cfg.MaxPasses
	}
	if !flags.Changed("helper-dir") {
		o.HelperDir = cfg.HelperDir
	}

	o.logger = cfg.Logger(cmd.ErrOrStderr(), o.Verbose)
	slog.SetDefault(o.logger)
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
