package harness

import "github.com/roach88/reach/internal/ir"

// TraceEvent is one trace entry: either a scenario step marker or an
// engine notification emitted while the step's solve ran.
type TraceEvent struct {
	Step int `json:"step"` // 0 is the initial solve

	// Step markers.
	Action string `json:"action,omitempty"` // "start", "add", "flag", "invalidate"
	Item   string `json:"item,omitempty"`
	Count  int    `json:"count,omitempty"`
	Flag   string `json:"flag,omitempty"`
	Value  *bool  `json:"value,omitempty"`

	// Engine notifications.
	Kind       string `json:"kind,omitempty"`
	Name       string `json:"name,omitempty"`
	Region     string `json:"region,omitempty"`
	Location   string `json:"location,omitempty"`
	Seq        int64  `json:"seq,omitempty"`
	Generation int64  `json:"generation,omitempty"`
}

// toValue renders the event for canonical JSON, omitting empty fields.
func (e TraceEvent) toValue() ir.Object {
	obj := ir.Object{"step": ir.Number(int64(e.Step))}
	str := func(key, v string) {
		if v != "" {
			obj[key] = ir.String(v)
		}
	}
	str("action", e.Action)
	str("item", e.Item)
	str("flag", e.Flag)
	str("kind", e.Kind)
	str("name", e.Name)
	str("region", e.Region)
	str("location", e.Location)
	if e.Count > 0 {
		obj["count"] = ir.Number(int64(e.Count))
	}
	if e.Value != nil {
		obj["value"] = ir.Bool(*e.Value)
	}
	if e.Seq > 0 {
		obj["seq"] = ir.Number(e.Seq)
	}
	if e.Generation > 0 {
		obj["generation"] = ir.Number(e.Generation)
	}
	return obj
}

// Final is the engine state after the last step.
type Final struct {
	Reachable []string `json:"reachable"`
	Passes    int      `json:"passes"`
	Converged bool     `json:"converged"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion holds.
	Pass bool `json:"pass"`

	// Trace contains step markers and engine notifications in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Final Final `json:"final"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
