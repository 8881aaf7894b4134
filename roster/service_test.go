package roster_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitgrid/roster-engine/roster"
	"github.com/fitgrid/roster-engine/schedule"
	"github.com/fitgrid/roster-engine/store/sqlite"
)

func newService(t *testing.T) (*roster.Service, *sqlite.Store) {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	workflow := &schedule.Workflow{Calendar: st, Requests: st, Audit: st}
	return &roster.Service{
		Workflow: workflow,
		Calendar: st,
		Shifts:   st,
		Template: st,
	}, st
}

func day(d int) schedule.Date {
	return schedule.NewDate(2024, time.June, d)
}

// =============================================================================
// WORK SHIFTS
// =============================================================================

func TestScheduleShift(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)

	// WHEN a manager assigns a shift
	shift, report, err := svc.ScheduleShift(ctx, roster.ScheduleShiftInput{
		StaffID:   "staff-1",
		BranchID:  "branch-1",
		Date:      day(3),
		StartTime: "09:00",
		EndTime:   "17:00",
		CreatedBy: "manager-1",
	})
	require.NoError(t, err)

	// THEN the shift is scheduled with no conflicts reported
	assert.False(t, report.HasConflicts)
	assert.Equal(t, roster.ShiftScheduled, shift.Status)
	assert.NotEmpty(t, shift.EntryID)

	// AND the calendar entry is committed immediately, no approval involved
	entries, _, err := st.LoadCommittedEntries(ctx, "staff-1", day(3), day(3))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, schedule.SourceWorkShift, entries[0].Source)
	assert.Equal(t, shift.EntryID, entries[0].ID)
}

func TestScheduleShift_ReportsOverlapButCommits(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)

	_, _, err := svc.ScheduleShift(ctx, roster.ScheduleShiftInput{
		StaffID: "staff-1", BranchID: "branch-1",
		Date: day(3), StartTime: "09:00", EndTime: "17:00",
	})
	require.NoError(t, err)

	// WHEN a second shift overlaps the first
	_, report, err := svc.ScheduleShift(ctx, roster.ScheduleShiftInput{
		StaffID: "staff-1", BranchID: "branch-1",
		Date: day(3), StartTime: "16:00", EndTime: "20:00",
	})
	require.NoError(t, err)

	// THEN the overlap is reported but the assignment still lands
	assert.True(t, report.HasConflicts)
	assert.Equal(t, 1, report.Count)

	entries, _, err := st.LoadCommittedEntries(ctx, "staff-1", day(3), day(3))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestScheduleShift_InvalidWindow(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, _, err := svc.ScheduleShift(ctx, roster.ScheduleShiftInput{
		StaffID: "staff-1", BranchID: "branch-1",
		Date: day(3), StartTime: "17:00", EndTime: "09:00",
	})
	assert.ErrorIs(t, err, schedule.ErrInvalidRange)
}

func TestShiftLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	shift, _, err := svc.ScheduleShift(ctx, roster.ScheduleShiftInput{
		StaffID: "staff-1", BranchID: "branch-1",
		Date: day(3), StartTime: "09:00", EndTime: "17:00",
	})
	require.NoError(t, err)

	// scheduled -> in_progress -> completed
	started, err := svc.StartShift(ctx, shift.ID)
	require.NoError(t, err)
	assert.Equal(t, roster.ShiftInProgress, started.Status)

	completed, err := svc.CompleteShift(ctx, shift.ID)
	require.NoError(t, err)
	assert.Equal(t, roster.ShiftCompleted, completed.Status)

	// completed is terminal
	_, err = svc.CancelShift(ctx, shift.ID)
	assert.ErrorIs(t, err, schedule.ErrInvalidTransition)

	var transErr *roster.InvalidShiftTransitionError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, roster.ShiftCompleted, transErr.From)
}

func TestCompleteShift_SkippingStart(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	shift, _, err := svc.ScheduleShift(ctx, roster.ScheduleShiftInput{
		StaffID: "staff-1", BranchID: "branch-1",
		Date: day(3), StartTime: "09:00", EndTime: "17:00",
	})
	require.NoError(t, err)

	_, err = svc.CompleteShift(ctx, shift.ID)
	assert.ErrorIs(t, err, schedule.ErrInvalidTransition)
}

func TestCancelShift_ReleasesCalendarTime(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	// GIVEN a scheduled shift
	shift, _, err := svc.ScheduleShift(ctx, roster.ScheduleShiftInput{
		StaffID: "staff-1", BranchID: "branch-1",
		Date: day(3), StartTime: "09:00", EndTime: "17:00",
	})
	require.NoError(t, err)

	// WHEN it is cancelled
	cancelled, err := svc.CancelShift(ctx, shift.ID)
	require.NoError(t, err)
	assert.Equal(t, roster.ShiftCancelled, cancelled.Status)

	// THEN the time no longer blocks new proposals
	report, err := svc.Workflow.CheckConflicts(ctx, "staff-1",
		[]schedule.TimeInterval{schedule.MustInterval(day(3), "10:00", "12:00")})
	require.NoError(t, err)
	assert.False(t, report.HasConflicts)

	// AND a replacement shift schedules cleanly
	_, report, err = svc.ScheduleShift(ctx, roster.ScheduleShiftInput{
		StaffID: "staff-1", BranchID: "branch-1",
		Date: day(3), StartTime: "09:00", EndTime: "17:00",
	})
	require.NoError(t, err)
	assert.False(t, report.HasConflicts)
}

func TestShiftNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.StartShift(ctx, "no-such-shift")
	assert.ErrorIs(t, err, roster.ErrShiftNotFound)
}

// =============================================================================
// TIME OFF
// =============================================================================

func TestRequestTimeOff_WholeDaysBlockShifts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	// GIVEN a committed shift on the middle day of the requested span
	_, _, err := svc.ScheduleShift(ctx, roster.ScheduleShiftInput{
		StaffID: "staff-1", BranchID: "branch-1",
		Date: day(11), StartTime: "09:00", EndTime: "17:00",
	})
	require.NoError(t, err)

	// WHEN requesting time off spanning that day
	request, err := svc.RequestTimeOff(ctx, roster.TimeOffInput{
		StaffID:     "staff-1",
		BranchID:    "branch-1",
		Type:        roster.TimeOffVacation,
		From:        day(10),
		To:          day(12),
		Reason:      "family trip",
		RequestedBy: "staff-1",
	})
	require.NoError(t, err)

	// THEN the request spans three full days and reports the shift conflict
	require.Len(t, request.Candidates, 3)
	for _, c := range request.Candidates {
		assert.Equal(t, 0, c.StartMinute)
		assert.Equal(t, schedule.MinutesPerDay, c.EndMinute)
	}
	assert.True(t, request.Report.HasConflicts)
	assert.Equal(t, 1, request.Report.Count)
	assert.Equal(t, 1, request.Report.Conflicts[0].CandidateIndex)
	assert.Equal(t, roster.TimeOffVacation, roster.TimeOffTypeOf(request))
}

func TestRequestTimeOff_ApprovedBlocksLaterShifts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	request, err := svc.RequestTimeOff(ctx, roster.TimeOffInput{
		StaffID: "staff-1", BranchID: "branch-1",
		Type: roster.TimeOffSick, From: day(10), To: day(12),
	})
	require.NoError(t, err)

	_, err = svc.Workflow.Approve(ctx, request.ID, "manager-1", "")
	require.NoError(t, err)

	// A shift inside the approved span now reports a conflict.
	_, report, err := svc.ScheduleShift(ctx, roster.ScheduleShiftInput{
		StaffID: "staff-1", BranchID: "branch-1",
		Date: day(11), StartTime: "09:00", EndTime: "17:00",
	})
	require.NoError(t, err)
	assert.True(t, report.HasConflicts)
	assert.Equal(t, schedule.SourceTimeOff, report.Conflicts[0].Entry.Source)
}

func TestRequestTimeOff_InvertedRange(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.RequestTimeOff(ctx, roster.TimeOffInput{
		StaffID: "staff-1", BranchID: "branch-1",
		Type: roster.TimeOffPersonal, From: day(12), To: day(10),
	})
	assert.ErrorIs(t, err, schedule.ErrInvalidRange)
}

// =============================================================================
// PT AVAILABILITY
// =============================================================================

func TestRequestPTAvailability(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)

	request, err := svc.RequestPTAvailability(ctx, roster.PTAvailabilityInput{
		StaffID:  "trainer-1",
		BranchID: "branch-1",
		Slots: []roster.PTSlot{
			{Interval: schedule.MustInterval(day(3), "16:00", "17:00"), MaxCapacity: 4},
			{Interval: schedule.MustInterval(day(3), "17:00", "18:00"), MaxCapacity: 1},
		},
		LinkedContractIDs: []string{"contract-9", "contract-12"},
		Notes:             "evening sessions",
		RequestedBy:       "trainer-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "pending_approval", roster.PTStatusLabel(request.Status))

	// Variant detail survives the persistence round trip.
	stored, err := st.GetRequest(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 1}, roster.DecodeCapacities(stored))
	assert.Equal(t, []string{"contract-9", "contract-12"}, roster.DecodeContractIDs(stored))
	require.Len(t, stored.Candidates, 2)
}

func TestRequestPTAvailability_Invalid(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.RequestPTAvailability(ctx, roster.PTAvailabilityInput{
		StaffID: "trainer-1", BranchID: "branch-1",
	})
	assert.ErrorIs(t, err, schedule.ErrInvalidRange)

	_, err = svc.RequestPTAvailability(ctx, roster.PTAvailabilityInput{
		StaffID: "trainer-1", BranchID: "branch-1",
		Slots: []roster.PTSlot{
			{Interval: schedule.MustInterval(day(3), "16:00", "17:00"), MaxCapacity: 0},
		},
	})
	assert.ErrorIs(t, err, roster.ErrInvalidCapacity)
}

// =============================================================================
// TEMPLATE GENERATION
// =============================================================================

func TestGenerateShiftsFromTemplate(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)

	tpl := &schedule.ShiftTemplate{
		ID:          "tpl-1",
		StaffID:     "staff-1",
		BranchID:    "branch-1",
		Weekdays:    []time.Weekday{time.Monday, time.Wednesday},
		StartTime:   "09:00",
		EndTime:     "17:00",
		AdvanceDays: 7,
		EndDate:     day(30),
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, st.SaveTemplate(ctx, tpl))

	// GIVEN one target date already holds a committed shift
	_, _, err := svc.ScheduleShift(ctx, roster.ScheduleShiftInput{
		StaffID: "staff-1", BranchID: "branch-1",
		Date: day(5), StartTime: "08:00", EndTime: "12:00",
	})
	require.NoError(t, err)

	// WHEN generating from Monday 2024-06-03 with a 7-day horizon
	result, err := svc.GenerateShiftsFromTemplate(ctx, tpl.ID, day(3), "scheduler")
	require.NoError(t, err)

	// THEN Mon 3 and Mon 10 are created, the booked Wed 5 is skipped
	require.Len(t, result.Created, 2)
	require.Len(t, result.Skipped, 1)
	assert.True(t, result.Skipped[0].Date.Equal(day(5)))
	for _, sh := range result.Created {
		assert.Equal(t, tpl.ID, sh.TemplateID)
		assert.Equal(t, roster.ShiftScheduled, sh.Status)
	}

	// AND a second run over the same horizon creates nothing
	again, err := svc.GenerateShiftsFromTemplate(ctx, tpl.ID, day(3), "scheduler")
	require.NoError(t, err)
	assert.Empty(t, again.Created)
	assert.Len(t, again.Skipped, 3)
}

func TestGenerateShiftsFromTemplate_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.GenerateShiftsFromTemplate(ctx, "missing", day(3), "scheduler")
	assert.ErrorIs(t, err, schedule.ErrTemplateNotFound)
}

func TestGenerateShiftsFromTemplate_ExpiredWindow(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)

	tpl := &schedule.ShiftTemplate{
		ID: "tpl-old", StaffID: "staff-1", BranchID: "branch-1",
		Weekdays: []time.Weekday{time.Monday}, StartTime: "09:00", EndTime: "17:00",
		AdvanceDays: 7, EndDate: day(1),
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.SaveTemplate(ctx, tpl))

	_, err := svc.GenerateShiftsFromTemplate(ctx, tpl.ID, day(3), "scheduler")
	assert.ErrorIs(t, err, schedule.ErrInvalidTemplate)
}
