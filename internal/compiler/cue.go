package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/reach/internal/ir"
)

// CompileRuleSet turns a CUE value into a RuleSet. Uses CUE SDK's Go API
// directly (not CLI subprocess).
//
// The value is either the rule-set struct itself or a struct with a
// top-level ruleset field:
//
//	ruleset: {
//		game: "Sample"
//		start_regions: ["Menu"]
//		regions: Menu: exits: [{name: "Menu -> Tower", connected_region: "Tower"}]
//	}
func CompileRuleSet(v cue.Value) (*ir.RuleSet, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	if nested := v.LookupPath(cue.ParsePath("ruleset")); nested.Exists() {
		v = nested
	}

	if !v.LookupPath(cue.ParsePath("regions")).Exists() {
		return nil, &CompileError{
			Field:   "regions",
			Message: "regions is required",
			Pos:     v.Pos(),
		}
	}

	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	data, err := v.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}

	rs, err := ir.DecodeRuleSet(data)
	if err != nil {
		return nil, &CompileError{Field: "ruleset", Message: err.Error(), Pos: v.Pos()}
	}
	return rs, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
