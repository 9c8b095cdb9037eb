package cli

import (
	"errors"
	"fmt"

	"github.com/roach88/reach/internal/compiler"
	"github.com/roach88/reach/internal/engine"
	"github.com/roach88/reach/internal/helpers"
	"github.com/roach88/reach/internal/ir"
)

// Error codes owned by the CLI. Load codes (E001-E009) come from the
// compiler package.
const (
	ErrCodeHelpers     = "E010" // Helper scripts failed to load
	ErrCodeConfig      = "E011" // Invalid flag or setting
	ErrCodeStore       = "E012" // Session database error
	ErrCodeUnreachable = "E020" // Target region is not reachable
	ErrCodeValidation  = "E100" // Rule-set failed validation
)

// world is a loaded rule-set and the helper table for its game.
type world struct {
	path  string
	rs    *ir.RuleSet
	table *helpers.Table // nil when no helper directory is configured
}

// loadWorld reads the rule-set at path and the helper scripts configured
// in opts.
func loadWorld(opts *RootOptions, path string) (*world, error) {
	rs, err := compiler.LoadRuleSet(path)
	if err != nil {
		return nil, err
	}
	w := &world{path: path, rs: rs}

	if opts.HelperDir != "" {
		reg := helpers.NewRegistry()
		if err := reg.LoadDir(opts.HelperDir); err != nil {
			return nil, &compiler.LoadError{Code: ErrCodeHelpers, Message: err.Error()}
		}
		w.table = reg.For(rs.Game)
	}

	opts.Logger().Debug("rule-set loaded",
		"path", path,
		"game", rs.Game,
		"regions", len(rs.Regions),
		"helpers", w.table.Len(),
	)
	return w, nil
}

// engineOptions translates the global flags into engine options.
func (o *RootOptions) engineOptions(w *world) ([]engine.Option, error) {
	mode, err := compiler.ParseIndirectMode(o.IndirectMode)
	if err != nil {
		return nil, &compiler.LoadError{Code: ErrCodeConfig, Message: err.Error()}
	}

	opts := []engine.Option{
		engine.WithLogger(o.Logger()),
		engine.WithIndirectMode(mode),
	}
	if o.MaxPasses > 0 {
		opts = append(opts, engine.WithMaxPasses(o.MaxPasses))
	}
	if w.table != nil {
		opts = append(opts, engine.WithHelpers(w.table))
	}
	return opts, nil
}

// newEngine loads path and builds an engine over it.
func newEngine(opts *RootOptions, path string, extra ...engine.Option) (*engine.Engine, *world, error) {
	w, err := loadWorld(opts, path)
	if err != nil {
		return nil, nil, err
	}
	engineOpts, err := opts.engineOptions(w)
	if err != nil {
		return nil, nil, err
	}
	return engine.New(w.rs, append(engineOpts, extra...)...), w, nil
}

// errorCode extracts the code and message of a load error.
func errorCode(err error) (string, string) {
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return compiler.ErrCodeBuildFailed, compileErr.Error()
	}
	return compiler.ErrCodeGeneric, err.Error()
}

// commandError reports err and returns it as a command error (exit code 2).
func commandError(formatter *OutputFormatter, err error) error {
	code, message := errorCode(err)
	_ = formatter.Error(code, message, nil)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// addItems adds every item in one batch so the engine computes once.
func addItems(e *engine.Engine, items []string) error {
	e.BeginBatch()
	for _, item := range items {
		e.AddItem(item)
	}
	return e.Commit()
}
