/*
errors.go - Centralized error types for the scheduling engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers match sentinels with errors.Is() and structured types with
  errors.As().

ERROR CATEGORIES:
  1. Validation errors - malformed intervals and templates, rejected at the
     boundary before any request exists
  2. State-machine errors - illegal request transitions, fatal to the
     operation; the caller must re-fetch before retrying
  3. Concurrency errors - stale conflict checks, retryable after reloading
     the committed calendar

CONFLICTS ARE NOT ERRORS:
  A ConflictReport with HasConflicts=true is a normal return value. Whether
  a conflict blocks or merely warns is policy, decided above this package.

SEE ALSO:
  - workflow.go: Raises transition and stale-check errors
  - interval.go / template.go: Raise validation errors
*/
package schedule

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRange is returned for a malformed time interval
	// (end <= start, or a bound outside 00:00-24:00).
	ErrInvalidRange = errors.New("invalid time range")

	// ErrInvalidTemplate is returned for a recurrence window that cannot
	// produce shifts (end date in the past, non-positive advance window).
	ErrInvalidTemplate = errors.New("invalid shift template")

	// ErrInvalidTransition is returned for an illegal request state change,
	// including any second transition out of PENDING.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrStaleConflictCheck is returned when the committed calendar changed
	// between conflict check and commit. Retryable: reload and re-approve
	// with full knowledge of the new conflicts, or reject.
	ErrStaleConflictCheck = errors.New("conflict check is stale")

	// ErrRequestNotFound is returned when a referenced request doesn't exist.
	ErrRequestNotFound = errors.New("request not found")

	// ErrTemplateNotFound is returned when a referenced template doesn't exist.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrRejectionReasonRequired is returned when rejecting without a reason.
	ErrRejectionReasonRequired = errors.New("rejection requires a reason")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidRangeError details a malformed interval.
type InvalidRangeError struct {
	Start  string
	End    string
	Detail string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid time range %s-%s: %s", e.Start, e.End, e.Detail)
}

func (e *InvalidRangeError) Unwrap() error { return ErrInvalidRange }

// InvalidTemplateError details a recurrence window that cannot expand.
type InvalidTemplateError struct {
	TemplateID TemplateID
	Detail     string
}

func (e *InvalidTemplateError) Error() string {
	return fmt.Sprintf("invalid template %s: %s", e.TemplateID, e.Detail)
}

func (e *InvalidTemplateError) Unwrap() error { return ErrInvalidTemplate }

// InvalidTransitionError details an illegal state change on a request.
type InvalidTransitionError struct {
	RequestID RequestID
	From      RequestStatus
	To        RequestStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("request %s: cannot transition %s -> %s", e.RequestID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// StaleConflictCheckError reports that the committed calendar moved under an
// approval. Carries both versions so callers can log the skew.
type StaleConflictCheckError struct {
	StaffID  StaffID
	Expected CalendarVersion
	Actual   CalendarVersion
}

func (e *StaleConflictCheckError) Error() string {
	return fmt.Sprintf("stale conflict check for staff %s: checked at version %d, calendar now at %d",
		e.StaffID, e.Expected, e.Actual)
}

func (e *StaleConflictCheckError) Unwrap() error { return ErrStaleConflictCheck }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the operation might succeed on retry after
// reloading state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStaleConflictCheck)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrInvalidTemplate) ||
		errors.Is(err, ErrRejectionReasonRequired)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrTemplateNotFound)
}
