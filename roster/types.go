/*
Package roster implements gym-chain staff scheduling on top of the schedule
engine.

PURPOSE:
  Maps the three concrete request variants of the gym domain onto the
  engine's shared request shape:

    WorkShift             - manager-assigned, authoritative, committed
                            immediately (no approval), own operational
                            lifecycle (scheduled -> in_progress -> completed)
    TimeOffRequest        - whole-day spans, approval-gated
    PTAvailabilityRequest - trainer slot batches with per-slot capacity,
                            approval-gated

  Variant-specific fields (time-off type, slot capacities, linked service
  contracts) ride in the engine request's Meta map; this package owns the
  encoding.

SEE ALSO:
  - service.go: Orchestration through the approval workflow
  - report.go: Scheduled-hours and utilization summaries
*/
package roster

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fitgrid/roster-engine/schedule"
)

// =============================================================================
// WORK SHIFT - Manager-assigned, authoritative
// =============================================================================

type ShiftID string

type ShiftStatus string

const (
	ShiftScheduled  ShiftStatus = "scheduled"
	ShiftInProgress ShiftStatus = "in_progress"
	ShiftCompleted  ShiftStatus = "completed"
	ShiftCancelled  ShiftStatus = "cancelled"
)

// WorkShift is one assigned shift. The blocking claim on the calendar is a
// committed StaffCalendarEntry; this record carries the operational status.
type WorkShift struct {
	ID         ShiftID
	StaffID    schedule.StaffID
	BranchID   schedule.BranchID
	Interval   schedule.TimeInterval
	Status     ShiftStatus
	EntryID    schedule.EntryID    // the calendar entry this shift committed
	TemplateID schedule.TemplateID // non-empty when generated from a template
	Notes      string
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// shiftTransitions is the operational state machine. Monotonic: completed
// and cancelled are terminal.
var shiftTransitions = map[ShiftStatus][]ShiftStatus{
	ShiftScheduled:  {ShiftInProgress, ShiftCancelled},
	ShiftInProgress: {ShiftCompleted, ShiftCancelled},
}

func (s *WorkShift) transition(to ShiftStatus) error {
	for _, allowed := range shiftTransitions[s.Status] {
		if allowed == to {
			s.Status = to
			s.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return &InvalidShiftTransitionError{ShiftID: s.ID, From: s.Status, To: to}
}

// InvalidShiftTransitionError wraps the engine's transition sentinel with
// shift context.
type InvalidShiftTransitionError struct {
	ShiftID ShiftID
	From    ShiftStatus
	To      ShiftStatus
}

func (e *InvalidShiftTransitionError) Error() string {
	return fmt.Sprintf("shift %s: cannot transition %s -> %s", e.ShiftID, e.From, e.To)
}

func (e *InvalidShiftTransitionError) Unwrap() error { return schedule.ErrInvalidTransition }

// ErrShiftNotFound is returned when a referenced shift doesn't exist.
var ErrShiftNotFound = fmt.Errorf("shift not found")

// ShiftStore persists work shifts.
type ShiftStore interface {
	SaveShift(ctx context.Context, s *WorkShift) error
	GetShift(ctx context.Context, id ShiftID) (*WorkShift, error)
	UpdateShift(ctx context.Context, s *WorkShift) error
	ListShiftsByStaff(ctx context.Context, staffID schedule.StaffID) ([]*WorkShift, error)
}

// =============================================================================
// TIME OFF
// =============================================================================

type TimeOffType string

const (
	TimeOffVacation TimeOffType = "vacation"
	TimeOffSick     TimeOffType = "sick"
	TimeOffPersonal TimeOffType = "personal"
	TimeOffOther    TimeOffType = "other"
)

// =============================================================================
// PT AVAILABILITY
// =============================================================================

// PTSlot is one offered personal-training window with a class-size cap.
type PTSlot struct {
	Interval    schedule.TimeInterval
	MaxCapacity int
}

// PTStatusLabel maps engine statuses to the wire labels the PT screens use.
// The PT variant historically calls its initial state "pending_approval".
func PTStatusLabel(s schedule.RequestStatus) string {
	if s == schedule.RequestPending {
		return "pending_approval"
	}
	return string(s)
}

// =============================================================================
// META ENCODING - Variant detail on the shared request shape
// =============================================================================

const (
	metaTimeOffType    = "timeoff_type"
	metaSlotCapacities = "slot_capacities"
	metaContractIDs    = "contract_ids"
	metaNotes          = "notes"
	metaTemplateID     = "template_id"
)

func encodeCapacities(slots []PTSlot) string {
	caps := make([]string, len(slots))
	for i, s := range slots {
		caps[i] = strconv.Itoa(s.MaxCapacity)
	}
	return strings.Join(caps, ",")
}

// DecodeCapacities recovers per-slot capacities from a stored request.
// Index-aligned with the request's candidate intervals; missing or
// malformed values decode as 0.
func DecodeCapacities(r *schedule.Request) []int {
	raw := r.Meta[metaSlotCapacities]
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	caps := make([]int, len(parts))
	for i, p := range parts {
		caps[i], _ = strconv.Atoi(p)
	}
	return caps
}

// DecodeContractIDs recovers linked service-contract IDs.
func DecodeContractIDs(r *schedule.Request) []string {
	raw := r.Meta[metaContractIDs]
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// TimeOffTypeOf recovers the time-off type of a stored request.
func TimeOffTypeOf(r *schedule.Request) TimeOffType {
	return TimeOffType(r.Meta[metaTimeOffType])
}
