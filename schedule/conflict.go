/*
conflict.go - Conflict detection against the committed calendar

PURPOSE:
  Given candidate intervals for a staff member, scan the committed entries
  the caller loaded and report every overlap. The detector decides nothing:
  it produces a report, and policy above it decides whether to block, warn,
  or override.

ALGORITHM:
  Linear scan per candidate. Callers are expected to pre-filter entries by
  staff and date range for efficiency; no ordering is assumed on input.
  Entries for other staff and tentative entries are skipped, boundary
  touches are not conflicts (half-open intervals), and ALL overlapping
  entries per candidate are reported, not just the first.

FAILURE SEMANTICS:
  Never errors. An empty report (HasConflicts=false) is the normal outcome.

SEE ALSO:
  - request.go: Snapshots a report onto each new request
  - workflow.go: Re-runs detection at approval time
*/
package schedule

// Conflict pairs one candidate interval with one committed entry it overlaps.
type Conflict struct {
	CandidateIndex int
	Entry          StaffCalendarEntry
}

// ConflictReport is the outcome of checking candidates against the
// committed calendar.
type ConflictReport struct {
	HasConflicts bool
	Count        int
	Conflicts    []Conflict
}

// FindConflicts checks each candidate interval against the committed entries
// for the given staff member. Multiple overlapping entries against one
// candidate are all reported.
func FindConflicts(staffID StaffID, candidates []TimeInterval, committed []StaffCalendarEntry) ConflictReport {
	var report ConflictReport
	for i, candidate := range candidates {
		for _, entry := range committed {
			if entry.StaffID != staffID || !entry.IsBlocking() {
				continue
			}
			if candidate.Overlaps(entry.Interval) {
				report.Conflicts = append(report.Conflicts, Conflict{
					CandidateIndex: i,
					Entry:          entry,
				})
			}
		}
	}
	report.Count = len(report.Conflicts)
	report.HasConflicts = report.Count > 0
	return report
}

// DatesOf returns the inclusive date range spanned by a set of candidates,
// for callers loading committed entries before a check. ok is false when
// there are no candidates.
func DatesOf(candidates []TimeInterval) (from, to Date, ok bool) {
	if len(candidates) == 0 {
		return Date{}, Date{}, false
	}
	from, to = candidates[0].Date, candidates[0].Date
	for _, c := range candidates[1:] {
		if c.Date.Before(from) {
			from = c.Date
		}
		if c.Date.After(to) {
			to = c.Date
		}
	}
	return from, to, true
}
