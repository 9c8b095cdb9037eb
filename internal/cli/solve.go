package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reach/internal/engine"
	"github.com/roach88/reach/internal/rules"
)

// SolveOptions holds flags for the solve command.
type SolveOptions struct {
	*RootOptions
	Items  []string // items held before solving
	Events bool     // print engine notifications
}

// SolveResult is the JSON payload of the solve command.
type SolveResult struct {
	Game   string         `json:"game"`
	Items  []string       `json:"items"`
	Hash   string         `json:"hash"`
	Result *engine.Result `json:"result"`
	Events []engine.Event `json:"events,omitempty"`
}

// NewSolveCommand creates the solve command.
func NewSolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "solve <ruleset>",
		Short: "Compute reachable regions for an inventory",
		Long: `Compute which regions, entrances and locations are reachable.

Every --item is added before the first solve. Event locations that
become accessible have their items collected until the result converges.

Exit codes:
  0 - Solve converged
  1 - Pass limit reached before convergence
  2 - Command error (unreadable rule-set, bad flags)

Examples:
  reach solve world.json --item Sword --item Heart
  reach solve world.cue --item Sword --events --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Items, "item", "i", nil, "item held before solving (repeatable)")
	cmd.Flags().BoolVar(&opts.Events, "events", false, "print engine notifications")

	return cmd
}

func runSolve(opts *SolveOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	var events []engine.Event
	sink := engine.SinkFunc(func(ev engine.Event) {
		events = append(events, ev)
	})

	e, w, err := newEngine(opts.RootOptions, path, engine.WithSink(sink))
	if err != nil {
		return commandError(formatter, err)
	}
	if err := addItems(e, opts.Items); err != nil {
		return commandError(formatter, err)
	}

	r := e.Result()
	hash, err := r.Hash()
	if err != nil {
		return commandError(formatter, err)
	}

	out := SolveResult{
		Game:   w.rs.Game,
		Items:  opts.Items,
		Hash:   hash,
		Result: r,
	}
	if out.Items == nil {
		out.Items = []string{}
	}
	if opts.Events {
		out.Events = events
	}

	if formatter.JSON() {
		if err := formatter.Success(out); err != nil {
			return err
		}
	} else {
		printSolveText(formatter, out)
	}

	if err := r.Err(); err != nil {
		return WrapExitError(ExitFailure, "solve did not converge", err)
	}
	return nil
}

func printSolveText(formatter *OutputFormatter, out SolveResult) {
	fw := formatter.Writer
	r := out.Result

	if out.Events != nil {
		for _, ev := range out.Events {
			fmt.Fprintf(fw, "[%d] %s\n", ev.Seq, formatEvent(ev))
		}
		fmt.Fprintln(fw)
	}

	status := "✓"
	if !r.Converged {
		status = "✗"
	}
	fmt.Fprintf(fw, "%s %s: %d of %d region(s) reachable in %d pass(es)\n",
		status, out.Game, len(r.Reachable), len(r.Reachable)+len(r.Unreachable), r.Passes)
	printList(fw, "Reachable", r.Reachable)
	printList(fw, "Unreachable", r.Unreachable)
	printList(fw, "Accessible", r.Accessible)
	printList(fw, "Collected", r.Collected)
	printDiagnostics(formatter, r.Diagnostics)
}

// formatEvent renders one notification for text output.
func formatEvent(ev engine.Event) string {
	var b strings.Builder
	b.WriteString(string(ev.Kind))
	if ev.Name != "" {
		fmt.Fprintf(&b, " %s", ev.Name)
	}
	if ev.Location != "" {
		fmt.Fprintf(&b, " from %s", ev.Location)
	}
	if ev.Region != "" && ev.Region != ev.Name {
		fmt.Fprintf(&b, " (%s)", ev.Region)
	}
	return b.String()
}

func printList(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", label)
	for _, item := range items {
		fmt.Fprintf(w, "  %s\n", item)
	}
}

// printDiagnostics reports rule problems on the diagnostic writer.
func printDiagnostics(formatter *OutputFormatter, diags []rules.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	w := formatter.GetErrWriter()
	fmt.Fprintf(w, "%d diagnostic(s):\n", len(diags))
	for _, d := range diags {
		fmt.Fprintf(w, "  %s\n", d)
	}
}
