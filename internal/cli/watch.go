package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/reach/internal/engine"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Items       []string
	Debounce    time.Duration
	MetricsAddr string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <ruleset>",
		Short: "Re-solve whenever the rule-set changes",
		Long: `Solve a rule-set, then watch it and re-solve on every change.

A change reloads the rule-set into the running engine, which keeps the
--item inventory and recomputes. A rule-set that fails to load is
reported and the previous one stays active. With --metrics-addr, engine
metrics are served at /metrics.

Press Ctrl-C to stop.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Items, "item", "i", nil, "item held before solving (repeatable)")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 200*time.Millisecond, "wait for changes to settle before reloading")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}

// watchSession owns the engine. Every engine call happens on the goroutine
// running loop.
type watchSession struct {
	opts      *WatchOptions
	path      string
	engine    *engine.Engine
	formatter *OutputFormatter
}

func runWatch(opts *WatchOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.Logger()

	reg := prometheus.NewRegistry()
	e, _, err := newEngine(opts.RootOptions, path, engine.WithMetrics(engine.NewMetrics(reg)))
	if err != nil {
		return commandError(formatter, err)
	}
	if err := addItems(e, opts.Items); err != nil {
		return commandError(formatter, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start watcher", err)
	}
	defer fsw.Close()

	// Editors often replace files by rename, so watch the directory.
	dir := path
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		dir = filepath.Dir(path)
	}
	if err := fsw.Add(dir); err != nil {
		return WrapExitError(ExitCommandError, "failed to watch "+dir, err)
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if opts.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              opts.MetricsAddr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", "addr", opts.MetricsAddr)
	}

	ws := &watchSession{opts: opts, path: path, engine: e, formatter: formatter}
	ws.report()

	return ws.loop(ctx, fsw)
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

// loop batches file events and reloads once the debounce window passes
// without further changes.
func (ws *watchSession) loop(ctx context.Context, fsw *fsnotify.Watcher) error {
	logger := ws.opts.Logger()
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watch stopped")
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !ws.relevant(ev) {
				continue
			}
			logger.Debug("rule-set changed", "file", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(ws.opts.Debounce)
				timerC = timer.C
			} else {
				timer.Reset(ws.opts.Debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)

		case <-timerC:
			timer, timerC = nil, nil
			ws.reload()
		}
	}
}

// relevant reports whether ev touches the watched rule-set.
func (ws *watchSession) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	if info, err := os.Stat(ws.path); err == nil && info.IsDir() {
		return filepath.Ext(ev.Name) == ".cue"
	}
	return filepath.Clean(ev.Name) == filepath.Clean(ws.path)
}

// reload swaps in the changed rule-set. The inventory is rebuilt from the
// --item list so event items from the old rules do not carry over.
func (ws *watchSession) reload() {
	w, err := loadWorld(ws.opts.RootOptions, ws.path)
	if err != nil {
		code, message := errorCode(err)
		_ = ws.formatter.Error(code, message, nil)
		ws.opts.Logger().Warn("reload failed, keeping previous rule-set", "error", err)
		return
	}

	ws.engine.Reload(w.rs)
	ws.engine.Inventory().Reset()
	if err := addItems(ws.engine, ws.opts.Items); err != nil {
		ws.opts.Logger().Error("re-adding items failed", "error", err)
		return
	}
	ws.report()
}

// report solves and prints one summary.
func (ws *watchSession) report() {
	r := ws.engine.Result()
	if ws.formatter.JSON() {
		_ = ws.formatter.Success(r)
		return
	}
	fmt.Fprintf(ws.formatter.Writer, "[%s] generation %d: %d reachable, %d unreachable, %d pass(es)\n",
		time.Now().Format(time.TimeOnly), r.Generation, len(r.Reachable), len(r.Unreachable), r.Passes)
	if !r.Converged {
		fmt.Fprintln(ws.formatter.Writer, "  warning: pass limit reached before convergence")
	}
	printDiagnostics(ws.formatter, r.Diagnostics)
}
