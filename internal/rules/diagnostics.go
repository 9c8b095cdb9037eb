package rules

import (
	"fmt"
	"log/slog"
)

// Code categorizes a diagnostic.
type Code string

const (
	// CodeMalformedRule marks an unknown or malformed rule node.
	CodeMalformedRule Code = "MALFORMED_RULE"

	// CodeMissingEntity marks a reference to a region, location, entrance,
	// item, group or name the rule-set does not define.
	CodeMissingEntity Code = "MISSING_ENTITY"

	// CodeMissingHelper marks a helper or state method with no registration.
	CodeMissingHelper Code = "MISSING_HELPER"

	// CodeHelperError marks a helper that returned an error.
	CodeHelperError Code = "HELPER_ERROR"

	// CodeUnknownShape marks a function call matching no recognised shape.
	CodeUnknownShape Code = "UNKNOWN_CALL_SHAPE"

	// CodeTypeMismatch marks an operand of the wrong type.
	CodeTypeMismatch Code = "TYPE_MISMATCH"

	// CodeNonConvergence marks a compute that hit its pass bound.
	CodeNonConvergence Code = "NON_CONVERGENCE"
)

// Diagnostic is one reported problem. Diagnostics never abort evaluation.
type Diagnostic struct {
	Code    Code   `json:"code"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s: %s", d.Code, d.Subject, d.Message)
}

type diagKey struct {
	code    Code
	subject string
}

// Diagnostics collects diagnostics, keeping the first report for each
// (code, subject) pair. New entries are logged at warn level.
//
// Thread-safety: NOT safe for concurrent use.
type Diagnostics struct {
	seen   map[diagKey]struct{}
	list   []Diagnostic
	logger *slog.Logger
}

// NewDiagnostics creates an empty sink logging through logger.
// A nil logger uses slog.Default.
func NewDiagnostics(logger *slog.Logger) *Diagnostics {
	if logger == nil {
		logger = slog.Default()
	}
	return &Diagnostics{seen: make(map[diagKey]struct{}), logger: logger}
}

// Report records a diagnostic unless the same code and subject were
// already reported.
func (d *Diagnostics) Report(code Code, subject, format string, args ...any) {
	key := diagKey{code: code, subject: subject}
	if _, dup := d.seen[key]; dup {
		return
	}
	d.seen[key] = struct{}{}

	diag := Diagnostic{Code: code, Subject: subject, Message: fmt.Sprintf(format, args...)}
	d.list = append(d.list, diag)
	d.logger.Warn("rule diagnostic", "code", string(code), "subject", subject, "message", diag.Message)
}

// All returns the diagnostics in report order.
func (d *Diagnostics) All() []Diagnostic {
	out := make([]Diagnostic, len(d.list))
	copy(out, d.list)
	return out
}

// Len returns the number of distinct diagnostics.
func (d *Diagnostics) Len() int {
	return len(d.list)
}

// Has reports whether any diagnostic with code was recorded.
func (d *Diagnostics) Has(code Code) bool {
	for _, diag := range d.list {
		if diag.Code == code {
			return true
		}
	}
	return false
}

// Reset forgets every diagnostic.
func (d *Diagnostics) Reset() {
	clear(d.seen)
	d.list = nil
}
