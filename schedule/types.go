/*
Package schedule provides the core staff scheduling engine.

PURPOSE:
  This package contains domain-agnostic types and algorithms for reconciling
  competing claims on a staff member's calendar. Work shifts, time-off and
  personal-training availability all reduce to the same primitive: a set of
  candidate intervals checked against the committed calendar, carried through
  a pending/approved/rejected request lifecycle.

KEY CONCEPTS IN THIS FILE (types.go):
  - StaffCalendarEntry: An interval bound to a staff member, with a source
    (work_shift, time_off, pt_slot) and a commit status
  - CalendarVersion: Per-staff optimistic-concurrency token
  - Staff/Branch/Entry IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Snapshot semantics: the engine operates on committed entries the caller
     loads and passes in; it owns no hidden global calendar
  2. Only COMMITTED entries block new proposals
  3. Type safety: strong typing for IDs prevents mixing staff/branch IDs

SEE ALSO:
  - interval.go: Half-open time intervals and overlap
  - conflict.go: Conflict detection over committed entries
  - request.go: Request aggregate and lifecycle
  - workflow.go: Approval workflow and the commit step
*/
package schedule

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type StaffID string
type BranchID string
type EntryID string
type RequestID string
type TemplateID string

// =============================================================================
// CALENDAR ENTRY - A claim on a staff member's calendar
// =============================================================================

// EntrySource identifies which kind of request produced a calendar entry.
type EntrySource string

const (
	SourceWorkShift EntrySource = "work_shift"
	SourceTimeOff   EntrySource = "time_off"
	SourcePTSlot    EntrySource = "pt_slot"
)

// EntryStatus is the commit state of a calendar entry. Only committed
// entries participate in conflict detection.
type EntryStatus string

const (
	EntryCommitted EntryStatus = "committed"
	EntryTentative EntryStatus = "tentative"
)

// StaffCalendarEntry is one interval on a staff member's calendar.
type StaffCalendarEntry struct {
	ID        EntryID
	StaffID   StaffID
	BranchID  BranchID
	Source    EntrySource
	Status    EntryStatus
	Interval  TimeInterval
	RequestID RequestID // request whose approval committed this entry, if any
	CreatedAt time.Time
}

// IsBlocking reports whether the entry blocks new proposals.
func (e StaffCalendarEntry) IsBlocking() bool {
	return e.Status == EntryCommitted
}

// =============================================================================
// CALENDAR VERSION - Optimistic concurrency token
// =============================================================================

// CalendarVersion is a monotonically increasing per-staff counter bumped on
// every commit. Loading entries returns the version observed; committing with
// a stale version fails, so two concurrent approvals cannot both pass a
// conflict check against the same snapshot and then double-book.
type CalendarVersion int64

// FilterCommitted returns only the blocking entries for the given staff
// member. Conflict detection callers use this when the entry slice they hold
// may mix staff members or tentative rows.
func FilterCommitted(staffID StaffID, entries []StaffCalendarEntry) []StaffCalendarEntry {
	var out []StaffCalendarEntry
	for _, e := range entries {
		if e.StaffID == staffID && e.IsBlocking() {
			out = append(out, e)
		}
	}
	return out
}
