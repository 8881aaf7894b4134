/*
report.go - Scheduled-hours and utilization summaries

PURPOSE:
  Rolls committed calendar entries up into the numbers the dashboards show:
  hours of shifts and PT availability per staff member, days off, and a
  branch-level utilization rate.

PRECISION:
  Hours are decimal, not float: a 45-minute slot is exactly 0.75 hours and
  sums of many slots must not drift.
*/
package roster

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/fitgrid/roster-engine/schedule"
)

var minutesPerHour = decimal.NewFromInt(60)

// HoursOf converts an interval's length to decimal hours.
func HoursOf(iv schedule.TimeInterval) decimal.Decimal {
	return decimal.NewFromInt(int64(iv.Minutes())).Div(minutesPerHour)
}

// StaffSummary aggregates one staff member's committed calendar.
type StaffSummary struct {
	StaffID     schedule.StaffID
	ShiftHours  decimal.Decimal
	PTSlotHours decimal.Decimal
	TimeOffDays int
}

// TotalHours is shift plus PT hours; time off is counted in days, not hours.
func (s StaffSummary) TotalHours() decimal.Decimal {
	return s.ShiftHours.Add(s.PTSlotHours)
}

// Summarize rolls committed entries up per staff member. Tentative entries
// (released shifts) are excluded. Output is sorted by staff ID.
func Summarize(entries []schedule.StaffCalendarEntry) []StaffSummary {
	byStaff := make(map[schedule.StaffID]*StaffSummary)
	for _, e := range entries {
		if !e.IsBlocking() {
			continue
		}
		summary, ok := byStaff[e.StaffID]
		if !ok {
			summary = &StaffSummary{
				StaffID:     e.StaffID,
				ShiftHours:  decimal.Zero,
				PTSlotHours: decimal.Zero,
			}
			byStaff[e.StaffID] = summary
		}
		switch e.Source {
		case schedule.SourceWorkShift:
			summary.ShiftHours = summary.ShiftHours.Add(HoursOf(e.Interval))
		case schedule.SourcePTSlot:
			summary.PTSlotHours = summary.PTSlotHours.Add(HoursOf(e.Interval))
		case schedule.SourceTimeOff:
			summary.TimeOffDays++
		}
	}

	out := make([]StaffSummary, 0, len(byStaff))
	for _, s := range byStaff {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StaffID < out[j].StaffID })
	return out
}

// UtilizationRate is scheduled hours over capacity hours, as a fraction.
// Zero capacity yields zero rather than a division error.
func UtilizationRate(scheduled, capacity decimal.Decimal) decimal.Decimal {
	if capacity.IsZero() {
		return decimal.Zero
	}
	return scheduled.Div(capacity)
}
