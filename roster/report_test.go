package roster_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitgrid/roster-engine/roster"
	"github.com/fitgrid/roster-engine/schedule"
)

func entry(staff schedule.StaffID, source schedule.EntrySource, iv schedule.TimeInterval) schedule.StaffCalendarEntry {
	return schedule.StaffCalendarEntry{
		ID:       schedule.EntryID(string(staff) + iv.String()),
		StaffID:  staff,
		BranchID: "branch-1",
		Source:   source,
		Status:   schedule.EntryCommitted,
		Interval: iv,
	}
}

func TestHoursOf_ExactDecimal(t *testing.T) {
	// 45 minutes is exactly 0.75 hours, no float drift.
	iv := schedule.MustInterval(schedule.NewDate(2024, time.June, 3), "16:00", "16:45")
	assert.True(t, roster.HoursOf(iv).Equal(decimal.RequireFromString("0.75")))
}

func TestSummarize(t *testing.T) {
	d := schedule.NewDate(2024, time.June, 3)
	entries := []schedule.StaffCalendarEntry{
		entry("staff-1", schedule.SourceWorkShift, schedule.MustInterval(d, "09:00", "17:00")),
		entry("staff-1", schedule.SourcePTSlot, schedule.MustInterval(d, "17:00", "18:30")),
		entry("staff-1", schedule.SourceTimeOff, schedule.FullDay(d.AddDays(1))),
		entry("staff-2", schedule.SourceWorkShift, schedule.MustInterval(d, "12:00", "16:00")),
	}

	summaries := roster.Summarize(entries)
	require.Len(t, summaries, 2)

	first := summaries[0]
	assert.Equal(t, schedule.StaffID("staff-1"), first.StaffID)
	assert.True(t, first.ShiftHours.Equal(decimal.NewFromInt(8)), "got %s", first.ShiftHours)
	assert.True(t, first.PTSlotHours.Equal(decimal.RequireFromString("1.5")), "got %s", first.PTSlotHours)
	assert.Equal(t, 1, first.TimeOffDays)
	assert.True(t, first.TotalHours().Equal(decimal.RequireFromString("9.5")))

	second := summaries[1]
	assert.Equal(t, schedule.StaffID("staff-2"), second.StaffID)
	assert.True(t, second.ShiftHours.Equal(decimal.NewFromInt(4)))
}

func TestSummarize_SkipsTentative(t *testing.T) {
	d := schedule.NewDate(2024, time.June, 3)
	released := entry("staff-1", schedule.SourceWorkShift, schedule.MustInterval(d, "09:00", "17:00"))
	released.Status = schedule.EntryTentative

	summaries := roster.Summarize([]schedule.StaffCalendarEntry{released})
	assert.Empty(t, summaries)
}

func TestUtilizationRate(t *testing.T) {
	rate := roster.UtilizationRate(decimal.NewFromInt(30), decimal.NewFromInt(40))
	assert.True(t, rate.Equal(decimal.RequireFromString("0.75")), "got %s", rate)

	assert.True(t, roster.UtilizationRate(decimal.NewFromInt(30), decimal.Zero).IsZero())
}
