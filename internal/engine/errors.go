package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected during engine execution.
//
// Runtime errors include:
//   - Non-convergence: the outer event loop hit MaxPasses
//   - Missing entity: a query named an undefined region
//   - Unreachable: a path was requested to a region that is not reached
//   - Batch state: Commit without a matching BeginBatch
//
// None of them are fatal; the engine keeps answering queries.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Subject names the region or location involved, if any.
	Subject string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeNonConvergence indicates the outer loop exceeded MaxPasses.
	ErrCodeNonConvergence RuntimeErrorCode = "NON_CONVERGENCE"

	// ErrCodeMissingEntity indicates a region or location is not defined.
	ErrCodeMissingEntity RuntimeErrorCode = "MISSING_ENTITY"

	// ErrCodeUnreachable indicates a region exists but is not reachable.
	ErrCodeUnreachable RuntimeErrorCode = "UNREACHABLE"

	// ErrCodeBatchState indicates an unbalanced Commit.
	ErrCodeBatchState RuntimeErrorCode = "BATCH_STATE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Subject)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsNonConvergenceError returns true if the error reports non-convergence.
// Matches both RuntimeError with ErrCodeNonConvergence and
// PassesExceededError. Uses errors.As to handle wrapped errors.
func IsNonConvergenceError(err error) bool {
	if hasCode(err, ErrCodeNonConvergence) {
		return true
	}
	var pe *PassesExceededError
	return errors.As(err, &pe)
}

// IsMissingEntityError returns true if the error names an undefined entity.
func IsMissingEntityError(err error) bool {
	return hasCode(err, ErrCodeMissingEntity)
}

// IsUnreachableError returns true if the error reports an unreached region.
func IsUnreachableError(err error) bool {
	return hasCode(err, ErrCodeUnreachable)
}

// NewNonConvergenceError creates a RuntimeError for an exhausted pass budget.
func NewNonConvergenceError(passes, maxPasses int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeNonConvergence,
		Message: fmt.Sprintf("event loop did not converge after %d passes (limit %d)", passes, maxPasses),
		Details: map[string]string{
			"passes":     fmt.Sprintf("%d", passes),
			"max_passes": fmt.Sprintf("%d", maxPasses),
		},
	}
}

// NewMissingEntityError creates a RuntimeError for an undefined entity.
func NewMissingEntityError(kind, name string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeMissingEntity,
		Message: fmt.Sprintf("%s is not defined", kind),
		Subject: name,
	}
}

// NewUnreachableError creates a RuntimeError for an unreached region.
func NewUnreachableError(region string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnreachable,
		Message: "region is not reachable",
		Subject: region,
	}
}
