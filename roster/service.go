/*
service.go - Roster orchestration over the schedule engine

PURPOSE:
  The application-facing service for the gym domain. Translates domain
  inputs (shift assignments, day ranges, PT slot batches) into engine
  candidates, drives them through the conflict detector and approval
  workflow, and maintains the operational shift records.

TWO PATHS ONTO THE CALENDAR:
  - ScheduleShift commits immediately: shifts assigned by a manager are
    authoritative and not subject to approval. The conflict report is still
    computed and returned so the caller can surface double-booking.
  - RequestTimeOff / RequestPTAvailability open PENDING requests; only the
    approval workflow commits them.

TEMPLATE GENERATION:
  GenerateShiftsFromTemplate expands a recurrence rule and feeds each
  produced interval through the same conflict check, skipping dates that
  already hold a committed entry. Expansion is idempotent; the skip makes
  repeated generation runs safe.

SEE ALSO:
  - schedule/workflow.go: The approval half of the pipeline
  - api/scheduler.go: Periodic generation for auto-generate templates
*/
package roster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fitgrid/roster-engine/schedule"
)

// ErrInvalidCapacity is returned for a PT slot with a non-positive capacity.
var ErrInvalidCapacity = errors.New("slot capacity must be positive")

// Service wires the engine to the gym domain.
type Service struct {
	Workflow *schedule.Workflow
	Calendar schedule.CalendarStore
	Shifts   ShiftStore
	Template schedule.TemplateStore
}

// =============================================================================
// WORK SHIFTS
// =============================================================================

type ScheduleShiftInput struct {
	StaffID   schedule.StaffID
	BranchID  schedule.BranchID
	Date      schedule.Date
	StartTime string // "HH:MM"
	EndTime   string // "HH:MM"
	Notes     string
	CreatedBy string
}

// ScheduleShift assigns a shift directly: the calendar entry is committed
// without approval. The returned report tells the caller about overlaps
// with existing committed entries; it never blocks the assignment.
func (s *Service) ScheduleShift(ctx context.Context, in ScheduleShiftInput) (*WorkShift, schedule.ConflictReport, error) {
	interval, err := schedule.NewInterval(in.Date, in.StartTime, in.EndTime)
	if err != nil {
		return nil, schedule.ConflictReport{}, err
	}
	return s.commitShift(ctx, in.StaffID, in.BranchID, interval, "", in.Notes, in.CreatedBy)
}

func (s *Service) commitShift(
	ctx context.Context,
	staffID schedule.StaffID,
	branchID schedule.BranchID,
	interval schedule.TimeInterval,
	templateID schedule.TemplateID,
	notes, createdBy string,
) (*WorkShift, schedule.ConflictReport, error) {
	committed, version, err := s.Calendar.LoadCommittedEntries(ctx, staffID, interval.Date, interval.Date)
	if err != nil {
		return nil, schedule.ConflictReport{}, fmt.Errorf("failed to load committed entries: %w", err)
	}
	report := schedule.FindConflicts(staffID, []schedule.TimeInterval{interval}, committed)

	now := time.Now().UTC()
	entry := schedule.StaffCalendarEntry{
		ID:        schedule.EntryID(uuid.NewString()),
		StaffID:   staffID,
		BranchID:  branchID,
		Source:    schedule.SourceWorkShift,
		Status:    schedule.EntryCommitted,
		Interval:  interval,
		CreatedAt: now,
	}
	if err := s.Calendar.CommitEntries(ctx, staffID, []schedule.StaffCalendarEntry{entry}, version); err != nil {
		return nil, report, err
	}

	shift := &WorkShift{
		ID:         ShiftID(uuid.NewString()),
		StaffID:    staffID,
		BranchID:   branchID,
		Interval:   interval,
		Status:     ShiftScheduled,
		EntryID:    entry.ID,
		TemplateID: templateID,
		Notes:      notes,
		CreatedBy:  createdBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Shifts.SaveShift(ctx, shift); err != nil {
		return nil, report, fmt.Errorf("failed to save shift: %w", err)
	}
	return shift, report, nil
}

// StartShift moves a scheduled shift to in_progress.
func (s *Service) StartShift(ctx context.Context, id ShiftID) (*WorkShift, error) {
	return s.transitionShift(ctx, id, ShiftInProgress)
}

// CompleteShift moves an in_progress shift to completed.
func (s *Service) CompleteShift(ctx context.Context, id ShiftID) (*WorkShift, error) {
	return s.transitionShift(ctx, id, ShiftCompleted)
}

// CancelShift cancels a shift and releases its calendar entry so the time
// stops blocking new proposals. The entry is retained as tentative.
func (s *Service) CancelShift(ctx context.Context, id ShiftID) (*WorkShift, error) {
	shift, err := s.transitionShift(ctx, id, ShiftCancelled)
	if err != nil {
		return nil, err
	}
	if shift.EntryID != "" {
		if err := s.Calendar.ReleaseEntries(ctx, shift.StaffID, []schedule.EntryID{shift.EntryID}); err != nil {
			return nil, fmt.Errorf("failed to release calendar entry: %w", err)
		}
	}
	return shift, nil
}

func (s *Service) transitionShift(ctx context.Context, id ShiftID, to ShiftStatus) (*WorkShift, error) {
	shift, err := s.Shifts.GetShift(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := shift.transition(to); err != nil {
		return nil, err
	}
	if err := s.Shifts.UpdateShift(ctx, shift); err != nil {
		return nil, fmt.Errorf("failed to update shift: %w", err)
	}
	return shift, nil
}

// =============================================================================
// TIME OFF
// =============================================================================

type TimeOffInput struct {
	StaffID     schedule.StaffID
	BranchID    schedule.BranchID
	Type        TimeOffType
	From        schedule.Date
	To          schedule.Date
	Reason      string
	RequestedBy string
}

// RequestTimeOff opens a PENDING time-off request spanning whole days.
// Each day occupies 00:00-24:00, so any same-day shift conflicts.
func (s *Service) RequestTimeOff(ctx context.Context, in TimeOffInput) (*schedule.Request, error) {
	if in.To.Before(in.From) {
		return nil, &schedule.InvalidRangeError{
			Start:  in.From.String(),
			End:    in.To.String(),
			Detail: "end date before start date",
		}
	}

	var candidates []schedule.TimeInterval
	for _, d := range schedule.DatesInRange(in.From, in.To) {
		candidates = append(candidates, schedule.FullDay(d))
	}

	return s.Workflow.Submit(ctx, schedule.NewRequestInput{
		Kind:        schedule.KindTimeOff,
		StaffID:     in.StaffID,
		BranchID:    in.BranchID,
		Candidates:  candidates,
		Reason:      in.Reason,
		RequestedBy: in.RequestedBy,
		Meta:        map[string]string{metaTimeOffType: string(in.Type)},
	})
}

// =============================================================================
// PT AVAILABILITY
// =============================================================================

type PTAvailabilityInput struct {
	StaffID            schedule.StaffID
	BranchID           schedule.BranchID
	Slots              []PTSlot
	LinkedContractIDs  []string
	Notes              string
	RequestedBy        string
}

// RequestPTAvailability opens a PENDING availability request. Each slot is
// an independent candidate; the aggregate conflict report is snapshotted at
// creation and re-validated by the workflow at approval time.
func (s *Service) RequestPTAvailability(ctx context.Context, in PTAvailabilityInput) (*schedule.Request, error) {
	if len(in.Slots) == 0 {
		return nil, &schedule.InvalidRangeError{Detail: "at least one slot is required"}
	}
	candidates := make([]schedule.TimeInterval, len(in.Slots))
	for i, slot := range in.Slots {
		if slot.MaxCapacity <= 0 {
			return nil, fmt.Errorf("slot %d: %w", i, ErrInvalidCapacity)
		}
		candidates[i] = slot.Interval
	}

	meta := map[string]string{
		metaSlotCapacities: encodeCapacities(in.Slots),
		metaNotes:          in.Notes,
	}
	if len(in.LinkedContractIDs) > 0 {
		meta[metaContractIDs] = joinIDs(in.LinkedContractIDs)
	}

	return s.Workflow.Submit(ctx, schedule.NewRequestInput{
		Kind:        schedule.KindPTAvailability,
		StaffID:     in.StaffID,
		BranchID:    in.BranchID,
		Candidates:  candidates,
		Reason:      in.Notes,
		RequestedBy: in.RequestedBy,
		Meta:        meta,
	})
}

// =============================================================================
// TEMPLATE GENERATION
// =============================================================================

// GenerationResult reports one generation run.
type GenerationResult struct {
	TemplateID schedule.TemplateID
	Created    []*WorkShift
	Skipped    []schedule.TimeInterval // dates already holding a committed entry
}

// GenerateShiftsFromTemplate expands a template as of today and commits a
// shift for every produced interval that is conflict-free. Intervals
// overlapping an existing committed entry are skipped, which is what makes
// repeated runs over the same horizon safe.
func (s *Service) GenerateShiftsFromTemplate(ctx context.Context, id schedule.TemplateID, today schedule.Date, actorID string) (*GenerationResult, error) {
	template, err := s.Template.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	intervals, err := schedule.Expand(template, today)
	if err != nil {
		return nil, err
	}

	result := &GenerationResult{TemplateID: id}
	for _, interval := range intervals {
		committed, _, err := s.Calendar.LoadCommittedEntries(ctx, template.StaffID, interval.Date, interval.Date)
		if err != nil {
			return nil, fmt.Errorf("failed to load committed entries: %w", err)
		}
		if schedule.FindConflicts(template.StaffID, []schedule.TimeInterval{interval}, committed).HasConflicts {
			result.Skipped = append(result.Skipped, interval)
			continue
		}

		shift, _, err := s.commitShift(ctx, template.StaffID, template.BranchID, interval, template.ID, "", actorID)
		if err != nil {
			return nil, err
		}
		result.Created = append(result.Created, shift)
	}
	return result, nil
}

func joinIDs(ids []string) string {
	out := ids[0]
	for _, id := range ids[1:] {
		out += "," + id
	}
	return out
}
