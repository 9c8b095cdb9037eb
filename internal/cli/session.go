package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/reach/internal/compiler"
	"github.com/roach88/reach/internal/session"
	"github.com/roach88/reach/internal/store"
)

// SessionOptions holds flags shared by the session subcommands.
type SessionOptions struct {
	*RootOptions
	Database string
	RuleSet  string // overrides the rule-set path stored with the session
}

// SessionInfo is the JSON payload of the session subcommands.
type SessionInfo struct {
	Session    store.Session     `json:"session"`
	Items      []store.ItemEntry `json:"items,omitempty"`
	Checkpoint *store.Checkpoint `json:"checkpoint,omitempty"`
}

// NewSessionCommand creates the session command group.
func NewSessionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Track a play-through in a session database",
		Long: `Track collected items across invocations.

A session stores every item the player collects and every event item
the solver collects. Reopening a session replays its log, so the
reachable set survives restarts.`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database; env REACH_DB")

	cmd.AddCommand(newSessionNewCommand(opts))
	cmd.AddCommand(newSessionCollectCommand(opts))
	cmd.AddCommand(newSessionShowCommand(opts))
	cmd.AddCommand(newSessionListCommand(opts))

	return cmd
}

func newSessionNewCommand(opts *SessionOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "new <ruleset>",
		Short:         "Start a session for a rule-set",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionNew(opts, args[0], cmd)
		},
	}
}

func newSessionCollectCommand(opts *SessionOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "collect <session-id> <item>...",
		Short:         "Collect items and checkpoint the reachable set",
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionCollect(opts, args[0], args[1:], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.RuleSet, "ruleset", "", "rule-set path (defaults to the one the session was created with)")
	return cmd
}

func newSessionShowCommand(opts *SessionOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <session-id>",
		Short:         "Show a session's item log and latest checkpoint",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionShow(opts, args[0], cmd)
		},
	}
}

func newSessionListCommand(opts *SessionOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List sessions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionList(opts, cmd)
		},
	}
}

// openStore opens the session database named by --db or REACH_DB.
func (o *SessionOptions) openStore(formatter *OutputFormatter) (*store.Store, error) {
	path := o.Database
	if path == "" {
		path = o.Config.Database
	}
	if path == "" {
		return nil, commandError(formatter, &compiler.LoadError{Code: ErrCodeConfig, Message: "--db is required"})
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, commandError(formatter, &compiler.LoadError{Code: ErrCodeStore, Message: err.Error()})
	}
	return st, nil
}

func runSessionNew(opts *SessionOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	w, err := loadWorld(opts.RootOptions, path)
	if err != nil {
		return commandError(formatter, err)
	}
	st, err := opts.openStore(formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sessOpts, err := opts.withHelpers(w)
	if err != nil {
		return commandError(formatter, err)
	}
	s, err := session.Create(ctx, st, w.rs, abs, sessOpts...)
	if err != nil {
		return commandError(formatter, &compiler.LoadError{Code: ErrCodeStore, Message: err.Error()})
	}

	if formatter.JSON() {
		return formatter.Success(SessionInfo{Session: s.Info()})
	}
	fmt.Fprintln(formatter.Writer, s.ID())
	return nil
}

func runSessionCollect(opts *SessionOptions, id string, items []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	st, err := opts.openStore(formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	s, err := opts.openSession(ctx, st, id)
	if err != nil {
		return sessionError(formatter, err)
	}

	for _, item := range items {
		if _, err := s.Collect(ctx, item); err != nil {
			return commandError(formatter, &compiler.LoadError{Code: ErrCodeStore, Message: err.Error()})
		}
	}
	cp, err := s.Checkpoint(ctx)
	if err != nil {
		return commandError(formatter, &compiler.LoadError{Code: ErrCodeStore, Message: err.Error()})
	}

	if formatter.JSON() {
		return formatter.Success(SessionInfo{Session: s.Info(), Checkpoint: &cp})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d item(s) logged at seq %d\n", len(items), cp.Seq)
	printList(formatter.Writer, "Reachable", cp.Reachable)
	if !cp.Converged {
		fmt.Fprintf(formatter.Writer, "warning: solve stopped after %d pass(es) without converging\n", cp.Passes)
	}
	return nil
}

func runSessionShow(opts *SessionOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	st, err := opts.openStore(formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	row, err := st.GetSession(ctx, id)
	if err != nil {
		return sessionError(formatter, err)
	}
	items, err := st.ReadItems(ctx, id)
	if err != nil {
		return commandError(formatter, &compiler.LoadError{Code: ErrCodeStore, Message: err.Error()})
	}
	cp, ok, err := st.LatestCheckpoint(ctx, id)
	if err != nil {
		return commandError(formatter, &compiler.LoadError{Code: ErrCodeStore, Message: err.Error()})
	}

	info := SessionInfo{Session: row, Items: items}
	if ok {
		info.Checkpoint = &cp
	}
	if formatter.JSON() {
		return formatter.Success(info)
	}

	fw := formatter.Writer
	fmt.Fprintf(fw, "Session %s (%s)\n", row.ID, row.Game)
	fmt.Fprintf(fw, "Rule-set: %s\n", row.RuleSetPath)
	fmt.Fprintf(fw, "Items:\n")
	for _, entry := range items {
		if entry.Source == store.SourceEvent {
			fmt.Fprintf(fw, "  [%d] %s (event at %s)\n", entry.Seq, entry.Item, entry.Location)
			continue
		}
		fmt.Fprintf(fw, "  [%d] %s\n", entry.Seq, entry.Item)
	}
	if info.Checkpoint != nil {
		fmt.Fprintf(fw, "Checkpoint at seq %d:\n", cp.Seq)
		for _, region := range cp.Reachable {
			fmt.Fprintf(fw, "  %s\n", region)
		}
	}
	return nil
}

func runSessionList(opts *SessionOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := opts.openStore(formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, err := st.ListSessions(commandContext(cmd))
	if err != nil {
		return commandError(formatter, &compiler.LoadError{Code: ErrCodeStore, Message: err.Error()})
	}
	if formatter.JSON() {
		return formatter.Success(sessions)
	}
	for _, s := range sessions {
		fmt.Fprintf(formatter.Writer, "%s  %s  %s\n", s.ID, s.Game, s.RuleSetPath)
	}
	return nil
}

// openSession loads the session's rule-set and restores its log.
func (o *SessionOptions) openSession(ctx context.Context, st *store.Store, id string) (*session.Session, error) {
	row, err := st.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	path := o.RuleSet
	if path == "" {
		path = row.RuleSetPath
	}
	w, err := loadWorld(o.RootOptions, path)
	if err != nil {
		return nil, err
	}
	sessOpts, err := o.withHelpers(w)
	if err != nil {
		return nil, err
	}
	return session.Open(ctx, st, id, w.rs, sessOpts...)
}

// withHelpers returns session options for w.
func (o *SessionOptions) withHelpers(w *world) ([]session.Option, error) {
	engineOpts, err := o.engineOptions(w)
	if err != nil {
		return nil, err
	}
	return []session.Option{
		session.WithLogger(o.Logger()),
		session.WithEngineOptions(engineOpts...),
	}, nil
}

// sessionError maps session lookup failures: an unknown id or a changed
// rule-set is a failure (exit 1), anything else a command error.
func sessionError(formatter *OutputFormatter, err error) error {
	if errors.Is(err, store.ErrSessionNotFound) || errors.Is(err, session.ErrRuleSetMismatch) {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitFailure, "session unavailable", err)
	}
	return commandError(formatter, err)
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
