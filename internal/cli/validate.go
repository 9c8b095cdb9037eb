package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/reach/internal/compiler"
	"github.com/roach88/reach/internal/helpers"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <ruleset>",
		Short: "Validate a rule-set without solving it",
		Long: `Validate a rule-set's structure and rules.

Checks start regions, exit targets, duplicate names, malformed rule
nodes, can_reach targets and progressive tiers. With --helper-dir, helper
references are checked against the loaded Lua tables. Cycles in the
indirect dependency graph are reported as warnings.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	w, err := loadWorld(opts, path)
	if err != nil {
		return commandError(formatter, err)
	}
	mode, err := compiler.ParseIndirectMode(opts.IndirectMode)
	if err != nil {
		return commandError(formatter, &compiler.LoadError{Code: ErrCodeConfig, Message: err.Error()})
	}

	formatter.VerboseLog("Loaded %s: %d region(s), %d location(s)", w.rs.Game, len(w.rs.Regions), len(w.rs.Locations()))

	var tables []*helpers.Table
	if w.table != nil {
		tables = append(tables, w.table)
	}
	result := ValidationResult{
		Errors:   compiler.ValidateRuleSet(w.rs, tables...),
		Warnings: compiler.AnalyzeIndirectCycles(compiler.BuildIndirectIndex(w.rs, mode)),
	}
	result.Valid = len(result.Errors) == 0

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "✓ Rule-set valid")
	printCycleWarnings(formatter, result.Warnings)
	return nil
}

// outputValidationErrors outputs every validation error (exit code 1).
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	summary := fmt.Sprintf("validation failed with %d error(s)", len(result.Errors))
	if formatter.JSON() {
		if err := formatter.Failure(result.Errors[0].Code, result.Errors[0].Message, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, summary)
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range result.Errors {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", err.Code, err.Field, err.Message)
	}
	printCycleWarnings(formatter, result.Warnings)

	return NewExitError(ExitFailure, summary)
}

func printCycleWarnings(formatter *OutputFormatter, warnings []compiler.CycleWarning) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintln(formatter.Writer)
	for _, w := range warnings {
		fmt.Fprintf(formatter.Writer, "  warning: %s\n", w.Message)
	}
}
