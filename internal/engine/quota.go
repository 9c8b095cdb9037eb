package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxPasses is the default bound on outer event-convergence passes.
const DefaultMaxPasses = 1000

// PassQuota counts outer fixpoint passes for one compute and enforces
// the MaxPasses bound.
//
// A well-formed rule-set converges in at most one pass per event location
// plus one; the bound only trips on rule-sets whose helpers are not
// monotone in the inventory.
type PassQuota struct {
	maxPasses int
	current   int
}

// NewPassQuota creates a quota with the given limit. A non-positive limit
// falls back to DefaultMaxPasses.
func NewPassQuota(maxPasses int) *PassQuota {
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}
	return &PassQuota{maxPasses: maxPasses}
}

// Check increments the pass counter and validates against the limit.
// Call it before starting each pass.
func (q *PassQuota) Check() error {
	q.current++
	if q.current > q.maxPasses {
		return &PassesExceededError{Passes: q.current, Limit: q.maxPasses}
	}
	return nil
}

// Current returns the number of passes started.
func (q *PassQuota) Current() int {
	return q.current
}

// MaxPasses returns the limit.
func (q *PassQuota) MaxPasses() int {
	return q.maxPasses
}

// PassesExceededError is returned when a compute exceeds the pass quota.
type PassesExceededError struct {
	Passes int // Number of passes attempted
	Limit  int // Maximum allowed passes
}

// Error implements the error interface.
func (e *PassesExceededError) Error() string {
	return fmt.Sprintf("exceeded max passes: %d passes > %d limit", e.Passes, e.Limit)
}

// IsPassesExceededError returns true if the error is a PassesExceededError.
// Uses errors.As to handle wrapped errors.
func IsPassesExceededError(err error) bool {
	var pe *PassesExceededError
	return errors.As(err, &pe)
}
