/*
interval.go - Half-open time intervals on a calendar date

PURPOSE:
  The atomic unit of scheduling: a [start, end) range of minutes on a single
  date. Everything the engine reconciles - shifts, whole days off, PT slots -
  is expressed as one or more of these.

HALF-OPEN SEMANTICS:
  Intervals are half-open: [start, end). A shift ending at 17:00 and a slot
  starting at 17:00 do NOT overlap. This makes back-to-back scheduling the
  default rather than a special case.

NORMALIZATION:
  Callers hand us wall-clock strings ("09:00", "17:30"); NewInterval converts
  them to minutes since midnight and validates the range. "24:00" is legal as
  an end time (minute 1440) so a whole day is representable; it is never legal
  as a start.

INVARIANT:
  0 <= StartMinute < EndMinute <= 1440

SEE ALSO:
  - conflict.go: Overlap scanning against committed entries
  - template.go: Recurrence expansion producing intervals
*/
package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the exclusive upper bound for interval end minutes.
const MinutesPerDay = 24 * 60

// TimeInterval is a half-open [StartMinute, EndMinute) range on a date.
type TimeInterval struct {
	Date        Date
	StartMinute int
	EndMinute   int
}

// NewInterval builds an interval from "HH:MM" wall-clock strings.
// Fails with *InvalidRangeError when either time is malformed, outside
// 00:00-24:00, or end is not strictly after start. Input is never clamped
// or repaired.
func NewInterval(date Date, start, end string) (TimeInterval, error) {
	startMin, err := parseClock(start)
	if err != nil {
		return TimeInterval{}, &InvalidRangeError{Start: start, End: end, Detail: err.Error()}
	}
	endMin, err := parseClock(end)
	if err != nil {
		return TimeInterval{}, &InvalidRangeError{Start: start, End: end, Detail: err.Error()}
	}
	return NewIntervalMinutes(date, startMin, endMin)
}

// NewIntervalMinutes builds an interval from minute offsets directly.
func NewIntervalMinutes(date Date, startMin, endMin int) (TimeInterval, error) {
	if startMin < 0 || endMin > MinutesPerDay || startMin >= endMin {
		return TimeInterval{}, &InvalidRangeError{
			Start:  formatClock(startMin),
			End:    formatClock(endMin),
			Detail: "end must be after start within 00:00-24:00",
		}
	}
	return TimeInterval{Date: date, StartMinute: startMin, EndMinute: endMin}, nil
}

// MustInterval is NewInterval for fixtures and tests; panics on invalid input.
func MustInterval(date Date, start, end string) TimeInterval {
	iv, err := NewInterval(date, start, end)
	if err != nil {
		panic(err)
	}
	return iv
}

// FullDay returns the 00:00-24:00 interval for a date. Time-off occupies
// whole days with this, so any same-day shift proposal conflicts.
func FullDay(date Date) TimeInterval {
	return TimeInterval{Date: date, StartMinute: 0, EndMinute: MinutesPerDay}
}

// Overlaps reports whether two intervals share any time. Intervals on
// different dates never overlap; touching boundaries (a.End == b.Start) do
// not count.
func (iv TimeInterval) Overlaps(other TimeInterval) bool {
	if !iv.Date.Equal(other.Date) {
		return false
	}
	return iv.StartMinute < other.EndMinute && other.StartMinute < iv.EndMinute
}

// Minutes returns the interval's duration in minutes.
func (iv TimeInterval) Minutes() int {
	return iv.EndMinute - iv.StartMinute
}

// Start and End render the bounds as "HH:MM" ("24:00" for end-of-day).
func (iv TimeInterval) Start() string { return formatClock(iv.StartMinute) }
func (iv TimeInterval) End() string   { return formatClock(iv.EndMinute) }

func (iv TimeInterval) String() string {
	return fmt.Sprintf("%s %s-%s", iv.Date, iv.Start(), iv.End())
}

// parseClock converts "HH:MM" to minutes since midnight. "24:00" is allowed.
func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("time %q is not HH:MM", s)
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("time %q is not HH:MM", s)
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("time %q is not HH:MM", s)
	}
	if mm < 0 || mm > 59 || hh < 0 || hh > 24 || (hh == 24 && mm != 0) {
		return 0, fmt.Errorf("time %q outside 00:00-24:00", s)
	}
	return hh*60 + mm, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
