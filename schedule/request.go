/*
request.go - Request aggregate and lifecycle state machine

PURPOSE:
  A Request is a proposal to claim calendar time: a work shift, a time-off
  span, or a batch of PT availability slots. All three share the same shape
  (staff, candidate intervals, status) and the same lifecycle:

      PENDING ──▶ APPROVED    (workflow commits the candidates)
              ──▶ REJECTED    (candidates discarded, reason recorded)
              ──▶ CANCELLED   (requester/manager withdrew it)

  All three outcomes are terminal. There is no re-entry into PENDING and no
  transition out of a terminal state; the first successful transition wins
  any race and the loser gets InvalidTransitionError.

CONFLICT SNAPSHOT:
  Creation runs the conflict detector against the committed entries the
  caller supplies and attaches the report to the request. The snapshot is
  what the requester saw, not a live view - the workflow re-checks at
  approval time because the calendar may have moved.

GUARANTEE:
  Creating a request never mutates the committed calendar. Only approval
  does, and only through the workflow.

SEE ALSO:
  - workflow.go: The only mutator of request status
  - conflict.go: Report computation
*/
package schedule

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// REQUEST - A proposal to claim calendar time
// =============================================================================

// RequestKind tags the request variant. Variant-specific detail (time-off
// type, slot capacities, linked contracts) rides in Meta; the engine only
// needs the shared shape.
type RequestKind string

const (
	KindWorkShift      RequestKind = "work_shift"
	KindTimeOff        RequestKind = "time_off"
	KindPTAvailability RequestKind = "pt_availability"
)

// Source returns the calendar-entry source committed entries of this kind
// carry.
func (k RequestKind) Source() EntrySource {
	switch k {
	case KindTimeOff:
		return SourceTimeOff
	case KindPTAvailability:
		return SourcePTSlot
	default:
		return SourceWorkShift
	}
}

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
	RequestCancelled RequestStatus = "cancelled"
)

// IsTerminal reports whether no further transition is legal.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestApproved || s == RequestRejected || s == RequestCancelled
}

// Request is the aggregate shared by all three variants. Requests are
// retained after reaching a terminal state; nothing hard-deletes them.
type Request struct {
	ID       RequestID
	Kind     RequestKind
	StaffID  StaffID
	BranchID BranchID

	// Candidate intervals proposed by this request. Promoted to committed
	// entries on approval, discarded on rejection/cancellation.
	Candidates []TimeInterval

	// Report is the conflict snapshot: computed at creation, refreshed by
	// the workflow at approval time.
	Report ConflictReport

	Status RequestStatus

	// Approval tracking
	ApprovedBy      string
	ApprovedAt      *time.Time
	ApprovalNote    string
	RejectionReason string

	// Metadata
	Reason      string
	RequestedBy string
	Meta        map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewRequestInput carries everything needed to open a request.
type NewRequestInput struct {
	Kind        RequestKind
	StaffID     StaffID
	BranchID    BranchID
	Candidates  []TimeInterval
	Reason      string
	RequestedBy string
	Meta        map[string]string
}

// NewRequest creates a PENDING request, snapshotting the conflict report
// against the committed entries supplied by the caller. The committed
// calendar is not touched.
func NewRequest(in NewRequestInput, committed []StaffCalendarEntry) *Request {
	now := time.Now().UTC()
	return &Request{
		ID:          RequestID(uuid.NewString()),
		Kind:        in.Kind,
		StaffID:     in.StaffID,
		BranchID:    in.BranchID,
		Candidates:  in.Candidates,
		Report:      FindConflicts(in.StaffID, in.Candidates, committed),
		Status:      RequestPending,
		Reason:      in.Reason,
		RequestedBy: in.RequestedBy,
		Meta:        in.Meta,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// =============================================================================
// STATE TRANSITIONS - Only the workflow calls these
// =============================================================================

func (r *Request) transition(to RequestStatus) error {
	if r.Status != RequestPending {
		return &InvalidTransitionError{RequestID: r.ID, From: r.Status, To: to}
	}
	r.Status = to
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Request) markApproved(approverID, note string, at time.Time) error {
	if err := r.transition(RequestApproved); err != nil {
		return err
	}
	r.ApprovedBy = approverID
	r.ApprovedAt = &at
	r.ApprovalNote = note
	return nil
}

func (r *Request) markRejected(approverID, reason string) error {
	if reason == "" {
		return ErrRejectionReasonRequired
	}
	if err := r.transition(RequestRejected); err != nil {
		return err
	}
	r.ApprovedBy = approverID
	r.RejectionReason = reason
	return nil
}

func (r *Request) markCancelled() error {
	return r.transition(RequestCancelled)
}

// CommittedEntries materializes the candidates as committed calendar rows.
// Called by the workflow on approval.
func (r *Request) CommittedEntries(at time.Time) []StaffCalendarEntry {
	entries := make([]StaffCalendarEntry, len(r.Candidates))
	for i, iv := range r.Candidates {
		entries[i] = StaffCalendarEntry{
			ID:        EntryID(uuid.NewString()),
			StaffID:   r.StaffID,
			BranchID:  r.BranchID,
			Source:    r.Kind.Source(),
			Status:    EntryCommitted,
			Interval:  iv,
			RequestID: r.ID,
			CreatedAt: at,
		}
	}
	return entries
}
