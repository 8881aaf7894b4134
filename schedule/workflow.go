/*
workflow.go - Approval workflow over the request state machine

PURPOSE:
  The single writer of request status and the only path that turns candidate
  intervals into committed calendar entries.

      Submit      Approve                      Reject / Cancel
        │            │                              │
        ▼            ▼                              ▼
     PENDING ──▶ re-check conflicts ──▶ commit   discard candidates,
     (snapshot)  (calendar may have    entries   zero calendar effect
      report)     moved since create)

APPROVAL AND CONFLICTS:
  Approval re-runs the conflict detector against a fresh snapshot. New
  conflicts do NOT block approval - business policy allows informed
  overrides - but the returned request carries the refreshed report so the
  caller can surface it. Silent double-booking is impossible; unreported
  double-booking is.

CONCURRENCY:
  Re-check and commit are one logical unit. CommitEntries is guarded by the
  calendar version the re-check observed; if the committed set changed in
  between, the commit fails with StaleConflictCheckError and the request is
  left PENDING for a retry. Callers running approvals concurrently should
  additionally serialize per staff member (single writer per calendar).
  A cancellation racing an approval is resolved by whichever transition
  lands first; the loser gets InvalidTransitionError.

SEE ALSO:
  - request.go: Transition legality
  - store.go: CalendarStore version contract
*/
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Workflow transitions requests and commits approved intervals.
// Audit and Notifier may be nil; they default to no-ops.
type Workflow struct {
	Calendar CalendarStore
	Requests RequestStore
	Audit    AuditLog
	Notifier Notifier
}

func (w *Workflow) audit() AuditLog {
	if w.Audit == nil {
		return NopAuditLog{}
	}
	return w.Audit
}

func (w *Workflow) notifier() Notifier {
	if w.Notifier == nil {
		return NopNotifier{}
	}
	return w.Notifier
}

// =============================================================================
// SUBMIT - Open a PENDING request with a conflict snapshot
// =============================================================================

// Submit creates a request, snapshotting conflicts against the committed
// calendar as currently stored. The calendar itself is not touched.
func (w *Workflow) Submit(ctx context.Context, in NewRequestInput) (*Request, error) {
	var committed []StaffCalendarEntry
	if from, to, ok := DatesOf(in.Candidates); ok {
		loaded, _, err := w.Calendar.LoadCommittedEntries(ctx, in.StaffID, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to load committed entries: %w", err)
		}
		committed = loaded
	}

	request := NewRequest(in, committed)
	if err := w.Requests.SaveRequest(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to save request: %w", err)
	}

	w.record(ctx, request, AuditRequestCreated, in.RequestedBy, request.Reason)
	return request, nil
}

// =============================================================================
// APPROVE - Re-check, commit, transition
// =============================================================================

// Approve transitions a PENDING request to APPROVED and promotes every
// candidate interval to a COMMITTED calendar entry.
//
// The conflict detector is re-run first because the calendar may have
// changed since creation; fresh conflicts are attached to the returned
// request but do not block the approval. A calendar version mismatch
// between re-check and commit fails with StaleConflictCheckError, leaving
// the request PENDING; that error is retryable after re-fetching.
//
// Calling Approve on a non-PENDING request fails with
// InvalidTransitionError and never double-commits entries.
func (w *Workflow) Approve(ctx context.Context, id RequestID, approverID, note string) (*Request, error) {
	request, err := w.Requests.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != RequestPending {
		return nil, &InvalidTransitionError{RequestID: id, From: request.Status, To: RequestApproved}
	}

	now := time.Now().UTC()

	if from, to, ok := DatesOf(request.Candidates); ok {
		committed, version, err := w.Calendar.LoadCommittedEntries(ctx, request.StaffID, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to load committed entries: %w", err)
		}
		request.Report = FindConflicts(request.StaffID, request.Candidates, committed)

		entries := request.CommittedEntries(now)
		if err := w.Calendar.CommitEntries(ctx, request.StaffID, entries, version); err != nil {
			return nil, err
		}
	}

	if err := request.markApproved(approverID, note, now); err != nil {
		return nil, err
	}
	if err := w.Requests.UpdateRequest(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to update request: %w", err)
	}

	w.record(ctx, request, AuditRequestApproved, approverID, note)
	return request, nil
}

// =============================================================================
// REJECT / CANCEL - Discard candidates, no calendar effect
// =============================================================================

// Reject transitions a PENDING request to REJECTED. A non-empty reason is
// required; the committed calendar is left untouched.
func (w *Workflow) Reject(ctx context.Context, id RequestID, approverID, reason string) (*Request, error) {
	request, err := w.Requests.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := request.markRejected(approverID, reason); err != nil {
		return nil, err
	}
	if err := w.Requests.UpdateRequest(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to update request: %w", err)
	}

	w.record(ctx, request, AuditRequestRejected, approverID, reason)
	return request, nil
}

// Cancel withdraws a PENDING request. Allowed to the requester or a manager;
// that policy check belongs to the caller (Authorizer), not here.
func (w *Workflow) Cancel(ctx context.Context, id RequestID, actorID string) (*Request, error) {
	request, err := w.Requests.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := request.markCancelled(); err != nil {
		return nil, err
	}
	if err := w.Requests.UpdateRequest(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to update request: %w", err)
	}

	w.record(ctx, request, AuditRequestCanceled, actorID, "")
	return request, nil
}

// =============================================================================
// DRY RUN
// =============================================================================

// CheckConflicts runs the detector against the stored calendar without
// creating anything. Used by clients that warn before submitting.
func (w *Workflow) CheckConflicts(ctx context.Context, staffID StaffID, candidates []TimeInterval) (ConflictReport, error) {
	from, to, ok := DatesOf(candidates)
	if !ok {
		return ConflictReport{}, nil
	}
	committed, _, err := w.Calendar.LoadCommittedEntries(ctx, staffID, from, to)
	if err != nil {
		return ConflictReport{}, fmt.Errorf("failed to load committed entries: %w", err)
	}
	return FindConflicts(staffID, candidates, committed), nil
}

func (w *Workflow) record(ctx context.Context, r *Request, action AuditAction, actorID, detail string) {
	at := time.Now().UTC()

	// Audit failures are logged by implementations, never fatal to the
	// transition that already happened.
	_ = w.audit().AppendAudit(ctx, AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: at,
		ActorID:   actorID,
		Action:    action,
		RequestID: r.ID,
		StaffID:   r.StaffID,
		Detail:    detail,
	})

	w.notifier().Notify(ctx, TransitionEvent{
		Request: r,
		Action:  action,
		ActorID: actorID,
		At:      at,
	})
}
