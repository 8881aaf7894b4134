// Package store provides in-memory implementations of the schedule
// persistence interfaces, for tests and the dev server.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fitgrid/roster-engine/schedule"
)

// =============================================================================
// MEMORY STORE - CalendarStore + RequestStore + TemplateStore + AuditLog
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	entries   map[schedule.StaffID][]schedule.StaffCalendarEntry
	versions  map[schedule.StaffID]schedule.CalendarVersion
	requests  map[schedule.RequestID]schedule.Request
	templates map[schedule.TemplateID]schedule.ShiftTemplate
	auditLog  []schedule.AuditEntry
}

func NewMemory() *Memory {
	return &Memory{
		entries:   make(map[schedule.StaffID][]schedule.StaffCalendarEntry),
		versions:  make(map[schedule.StaffID]schedule.CalendarVersion),
		requests:  make(map[schedule.RequestID]schedule.Request),
		templates: make(map[schedule.TemplateID]schedule.ShiftTemplate),
	}
}

var (
	_ schedule.CalendarStore = (*Memory)(nil)
	_ schedule.RequestStore  = (*Memory)(nil)
	_ schedule.TemplateStore = (*Memory)(nil)
	_ schedule.AuditLog      = (*Memory)(nil)
)

// =============================================================================
// CALENDAR STORE
// =============================================================================

func (m *Memory) LoadCommittedEntries(_ context.Context, staffID schedule.StaffID, from, to schedule.Date) ([]schedule.StaffCalendarEntry, schedule.CalendarVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []schedule.StaffCalendarEntry
	for _, e := range m.entries[staffID] {
		if !e.IsBlocking() {
			continue
		}
		if from.BeforeOrEqual(e.Interval.Date) && e.Interval.Date.BeforeOrEqual(to) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Interval.Date.Equal(result[j].Interval.Date) {
			return result[i].Interval.Date.Before(result[j].Interval.Date)
		}
		return result[i].Interval.StartMinute < result[j].Interval.StartMinute
	})
	return result, m.versions[staffID], nil
}

func (m *Memory) CommitEntries(_ context.Context, staffID schedule.StaffID, entries []schedule.StaffCalendarEntry, expected schedule.CalendarVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.versions[staffID]
	if current != expected {
		return &schedule.StaleConflictCheckError{StaffID: staffID, Expected: expected, Actual: current}
	}

	m.entries[staffID] = append(m.entries[staffID], entries...)
	m.versions[staffID] = current + 1
	return nil
}

func (m *Memory) ReleaseEntries(_ context.Context, staffID schedule.StaffID, ids []schedule.EntryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[schedule.EntryID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	released := false
	entries := m.entries[staffID]
	for i := range entries {
		if wanted[entries[i].ID] && entries[i].Status == schedule.EntryCommitted {
			entries[i].Status = schedule.EntryTentative
			released = true
		}
	}
	if released {
		m.versions[staffID]++
	}
	return nil
}

// AllEntries returns every entry for a staff member, unfiltered. Test helper.
func (m *Memory) AllEntries(staffID schedule.StaffID) []schedule.StaffCalendarEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]schedule.StaffCalendarEntry, len(m.entries[staffID]))
	copy(out, m.entries[staffID])
	return out
}

// =============================================================================
// REQUEST STORE
// =============================================================================

func (m *Memory) SaveRequest(_ context.Context, r *schedule.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = cloneRequest(r)
	return nil
}

func (m *Memory) GetRequest(_ context.Context, id schedule.RequestID) (*schedule.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.requests[id]
	if !ok {
		return nil, schedule.ErrRequestNotFound
	}
	r := cloneRequest(&stored)
	return &r, nil
}

func (m *Memory) UpdateRequest(_ context.Context, r *schedule.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.requests[r.ID]; !ok {
		return schedule.ErrRequestNotFound
	}
	m.requests[r.ID] = cloneRequest(r)
	return nil
}

func (m *Memory) ListPendingRequests(_ context.Context) ([]*schedule.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*schedule.Request
	for id := range m.requests {
		stored := m.requests[id]
		if stored.Status == schedule.RequestPending {
			r := cloneRequest(&stored)
			result = append(result, &r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *Memory) ListRequestsByStaff(_ context.Context, staffID schedule.StaffID) ([]*schedule.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*schedule.Request
	for id := range m.requests {
		stored := m.requests[id]
		if stored.StaffID == staffID {
			r := cloneRequest(&stored)
			result = append(result, &r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// cloneRequest deep-copies so callers never share slices with the store,
// simulating real persistence round-trips.
func cloneRequest(r *schedule.Request) schedule.Request {
	c := *r
	c.Candidates = append([]schedule.TimeInterval(nil), r.Candidates...)
	c.Report.Conflicts = append([]schedule.Conflict(nil), r.Report.Conflicts...)
	if r.Meta != nil {
		c.Meta = make(map[string]string, len(r.Meta))
		for k, v := range r.Meta {
			c.Meta[k] = v
		}
	}
	if r.ApprovedAt != nil {
		at := *r.ApprovedAt
		c.ApprovedAt = &at
	}
	return c
}

// =============================================================================
// TEMPLATE STORE
// =============================================================================

func (m *Memory) SaveTemplate(_ context.Context, t *schedule.ShiftTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[t.ID] = cloneTemplate(t)
	return nil
}

func (m *Memory) GetTemplate(_ context.Context, id schedule.TemplateID) (*schedule.ShiftTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.templates[id]
	if !ok {
		return nil, schedule.ErrTemplateNotFound
	}
	t := cloneTemplate(&stored)
	return &t, nil
}

func (m *Memory) ListTemplates(_ context.Context) ([]*schedule.ShiftTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listTemplatesLocked(func(*schedule.ShiftTemplate) bool { return true }), nil
}

func (m *Memory) ListAutoGenerateTemplates(_ context.Context) ([]*schedule.ShiftTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listTemplatesLocked(func(t *schedule.ShiftTemplate) bool { return t.AutoGenerate }), nil
}

func (m *Memory) listTemplatesLocked(keep func(*schedule.ShiftTemplate) bool) []*schedule.ShiftTemplate {
	var result []*schedule.ShiftTemplate
	for id := range m.templates {
		stored := m.templates[id]
		if keep(&stored) {
			t := cloneTemplate(&stored)
			result = append(result, &t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func cloneTemplate(t *schedule.ShiftTemplate) schedule.ShiftTemplate {
	c := *t
	c.Weekdays = append([]time.Weekday(nil), t.Weekdays...)
	return c
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (m *Memory) AppendAudit(_ context.Context, entry schedule.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auditLog = append(m.auditLog, entry)
	return nil
}

// AuditEntries returns a copy of the audit trail. Test helper.
func (m *Memory) AuditEntries() []schedule.AuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]schedule.AuditEntry, len(m.auditLog))
	copy(out, m.auditLog)
	return out
}
