package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/reach/internal/compiler"
	"github.com/roach88/reach/internal/engine"
)

// PathOptions holds flags for the path command.
type PathOptions struct {
	*RootOptions
	Items []string
}

// PathResult is the JSON payload of the path command.
type PathResult struct {
	Region string       `json:"region"`
	Hops   []engine.Hop `json:"hops"`
}

// NewPathCommand creates the path command.
func NewPathCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PathOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "path <ruleset> <region>",
		Short: "Show how a region is reached",
		Long: `Print one witnessing path from a start region to <region>.

Each hop names the entrance taken. A start region has an empty path.

Exit codes:
  0 - Region reachable
  1 - Region not reachable with the given items
  2 - Command error (unknown region, unreadable rule-set)`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPath(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Items, "item", "i", nil, "item held before solving (repeatable)")

	return cmd
}

func runPath(opts *PathOptions, path, region string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	e, _, err := newEngine(opts.RootOptions, path)
	if err != nil {
		return commandError(formatter, err)
	}
	if err := addItems(e, opts.Items); err != nil {
		return commandError(formatter, err)
	}

	hops, err := e.GetPathToRegion(region)
	switch {
	case engine.IsMissingEntityError(err):
		return commandError(formatter, &compiler.LoadError{Code: compiler.ErrCodeNotFound, Message: err.Error()})
	case engine.IsUnreachableError(err):
		msg := fmt.Sprintf("%s is not reachable", region)
		if err := formatter.Failure(ErrCodeUnreachable, msg, PathResult{Region: region, Hops: []engine.Hop{}}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	case err != nil:
		return commandError(formatter, err)
	}

	if formatter.JSON() {
		return formatter.Success(PathResult{Region: region, Hops: hops})
	}

	w := formatter.Writer
	if len(hops) == 0 {
		fmt.Fprintf(w, "%s is a start region\n", region)
		return nil
	}
	fmt.Fprintf(w, "%s\n", hops[0].From)
	for _, hop := range hops {
		fmt.Fprintf(w, "  -> %s  [%s]\n", hop.To, hop.Entrance)
	}
	return nil
}
