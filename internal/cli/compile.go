package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/reach/internal/compiler"
	"github.com/roach88/reach/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult summarizes a compiled rule-set.
type CompilationResult struct {
	Game           string `json:"game"`
	Hash           string `json:"hash"`
	Regions        int    `json:"regions"`
	Exits          int    `json:"exits"`
	Locations      int    `json:"locations"`
	EventLocations int    `json:"event_locations"`
	Output         string `json:"output,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <ruleset>",
		Short: "Compile a rule-set to canonical JSON",
		Long: `Compile a JSON, YAML or CUE rule-set to canonical JSON.

The rule-set is decoded, normalized and validated. The canonical form
has sorted keys and no insignificant whitespace, so two sources that
describe the same world compile to identical bytes and share a hash.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	w, err := loadWorld(opts.RootOptions, path)
	if err != nil {
		return commandError(formatter, err)
	}

	if errs := compiler.ValidateRuleSet(w.rs); len(errs) > 0 {
		return outputValidationErrors(formatter, ValidationResult{Errors: errs})
	}

	canonical, err := ir.MarshalCanonical(w.rs.ToValue())
	if err != nil {
		return commandError(formatter, err)
	}
	hash, err := ir.RuleSetHash(w.rs)
	if err != nil {
		return commandError(formatter, err)
	}

	result := CompilationResult{
		Game:           w.rs.Game,
		Hash:           hash,
		Regions:        len(w.rs.Regions),
		Locations:      len(w.rs.Locations()),
		EventLocations: len(w.rs.EventLocations()),
		Output:         opts.Output,
	}
	for _, region := range w.rs.Regions {
		result.Exits += len(region.Exits)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, canonical, 0o644); err != nil {
			return commandError(formatter, &compiler.LoadError{
				Code:    compiler.ErrCodeWriteFailed,
				Message: fmt.Sprintf("writing output file: %v", err),
			})
		}
	}

	return outputCompileSuccess(formatter, result, canonical)
}

// outputCompileSuccess outputs successful compilation results. Without
// -o, text mode prints the canonical JSON itself.
func outputCompileSuccess(formatter *OutputFormatter, result CompilationResult, canonical []byte) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	if result.Output == "" {
		fmt.Fprintln(formatter.Writer, string(canonical))
		return nil
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %s: %d region(s), %d exit(s), %d location(s) (%d event)\n",
		result.Game, result.Regions, result.Exits, result.Locations, result.EventLocations)
	fmt.Fprintf(formatter.Writer, "Wrote canonical rule-set to %s\n", result.Output)
	fmt.Fprintf(formatter.Writer, "hash: %s\n", result.Hash)
	return nil
}
