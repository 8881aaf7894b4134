package schedule_test

import (
	"errors"
	"testing"
	"time"

	"github.com/fitgrid/roster-engine/schedule"
)

func mondayTemplate() *schedule.ShiftTemplate {
	return &schedule.ShiftTemplate{
		ID:          "tpl-1",
		StaffID:     "staff-1",
		BranchID:    "branch-1",
		Weekdays:    []time.Weekday{time.Monday},
		StartTime:   "09:00",
		EndTime:     "17:00",
		AdvanceDays: 7,
		EndDate:     date(30),
	}
}

func TestExpand_WeeklyWindow(t *testing.T) {
	// Today is Monday 2024-06-03 with a 7-day horizon, so both this Monday
	// and next Monday (06-10) fall inside [today, today+7] inclusive.
	tpl := mondayTemplate()
	today := date(3)

	got, err := schedule.Expand(tpl, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 intervals, got %d", len(got))
	}
	if !got[0].Date.Equal(date(3)) || !got[1].Date.Equal(date(10)) {
		t.Errorf("expected 2024-06-03 and 2024-06-10, got %v and %v", got[0].Date, got[1].Date)
	}
	for _, iv := range got {
		if iv.StartMinute != 9*60 || iv.EndMinute != 17*60 {
			t.Errorf("expected 09:00-17:00, got %s", iv)
		}
	}
}

func TestExpand_EndDateClampsHorizon(t *testing.T) {
	tpl := mondayTemplate()
	tpl.EndDate = date(9) // Sunday before the second Monday

	got, err := schedule.Expand(tpl, date(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(got))
	}
}

func TestExpand_MultipleWeekdays(t *testing.T) {
	tpl := mondayTemplate()
	tpl.Weekdays = []time.Weekday{time.Monday, time.Wednesday, time.Friday}

	got, err := schedule.Expand(tpl, date(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Mon 3, Wed 5, Fri 7, Mon 10 within [06-03, 06-10].
	if len(got) != 4 {
		t.Fatalf("expected 4 intervals, got %d", len(got))
	}
}

func TestExpand_Deterministic(t *testing.T) {
	tpl := mondayTemplate()
	first, err := schedule.Expand(tpl, date(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := schedule.Expand(tpl, date(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("expansion not deterministic: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("interval %d differs: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestExpand_Invalid(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*schedule.ShiftTemplate)
	}{
		{"zero advance days", func(t *schedule.ShiftTemplate) { t.AdvanceDays = 0 }},
		{"end date in the past", func(t *schedule.ShiftTemplate) { t.EndDate = date(1) }},
		{"no weekdays", func(t *schedule.ShiftTemplate) { t.Weekdays = nil }},
		{"bad time window", func(t *schedule.ShiftTemplate) { t.StartTime, t.EndTime = "17:00", "09:00" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tpl := mondayTemplate()
			tc.mutate(tpl)

			_, err := schedule.Expand(tpl, date(3))
			if !errors.Is(err, schedule.ErrInvalidTemplate) {
				t.Errorf("expected ErrInvalidTemplate, got %v", err)
			}
			var tplErr *schedule.InvalidTemplateError
			if !errors.As(err, &tplErr) {
				t.Errorf("expected *InvalidTemplateError, got %T", err)
			}
		})
	}
}
