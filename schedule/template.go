/*
template.go - Recurring shift templates and their expansion

PURPOSE:
  A ShiftTemplate describes a repeating shift (days of week + time of day)
  for one staff member. Expand turns it into concrete dated intervals within
  a bounded horizon; each interval is then fed through the normal conflict
  check / request pipeline. The generator itself never commits anything.

HORIZON:
  Expansion covers [today, min(today+AdvanceDays, EndDate)] inclusive.

DETERMINISM:
  Expand is a pure function of (template, today): re-running it yields the
  same dates. Skipping dates that already hold a committed shift is the
  caller's job, via the conflict detector.

SEE ALSO:
  - roster/service.go: Expansion driven through the request pipeline
  - api/scheduler.go: Background expansion of auto-generate templates
*/
package schedule

import (
	"time"
)

// ShiftTemplate is a recurring shift pattern. It is a factory for candidate
// intervals, not itself schedulable.
type ShiftTemplate struct {
	ID       TemplateID
	StaffID  StaffID
	BranchID BranchID

	// Recurrence rule: which weekdays, at what time of day.
	Weekdays  []time.Weekday
	StartTime string // "HH:MM"
	EndTime   string // "HH:MM"

	// AutoGenerate marks the template for the background generator.
	AutoGenerate bool

	// AdvanceDays bounds how far ahead instances are produced.
	AdvanceDays int

	// EndDate is the last date instances may fall on, inclusive.
	EndDate Date

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expand produces one interval per matching weekday between today and
// min(today+AdvanceDays, EndDate) inclusive. Pure: same inputs, same dates.
//
// Fails with *InvalidTemplateError when EndDate precedes today or
// AdvanceDays is not positive, and with the template's *InvalidRangeError
// wrapped when the time-of-day window is malformed.
func Expand(t *ShiftTemplate, today Date) ([]TimeInterval, error) {
	if t.AdvanceDays <= 0 {
		return nil, &InvalidTemplateError{TemplateID: t.ID, Detail: "advance days must be positive"}
	}
	if t.EndDate.Before(today) {
		return nil, &InvalidTemplateError{TemplateID: t.ID, Detail: "end date is in the past"}
	}
	if len(t.Weekdays) == 0 {
		return nil, &InvalidTemplateError{TemplateID: t.ID, Detail: "no weekdays selected"}
	}

	// Validate the time window once; reuse the parsed bounds per date.
	probe, err := NewInterval(today, t.StartTime, t.EndTime)
	if err != nil {
		return nil, &InvalidTemplateError{TemplateID: t.ID, Detail: err.Error()}
	}

	wanted := make(map[time.Weekday]bool, len(t.Weekdays))
	for _, wd := range t.Weekdays {
		wanted[wd] = true
	}

	horizon := MinDate(today.AddDays(t.AdvanceDays), t.EndDate)

	var out []TimeInterval
	for _, d := range DatesInRange(today, horizon) {
		if !wanted[d.Weekday()] {
			continue
		}
		out = append(out, TimeInterval{
			Date:        d,
			StartMinute: probe.StartMinute,
			EndMinute:   probe.EndMinute,
		})
	}
	return out, nil
}
