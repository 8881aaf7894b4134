/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements the schedule persistence seams (CalendarStore, RequestStore,
  TemplateStore, AuditLog) and the roster ShiftStore using SQLite. The same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  calendar_entries:  Claims on staff calendars; committed rows block
  calendar_versions: Per-staff optimistic-concurrency counters
  requests:          Request aggregates (candidates/report as JSON columns)
  shift_templates:   Recurrence rules
  shifts:            Operational work-shift records
  audit_log:         Append-only who-did-what trail

OPTIMISTIC CONCURRENCY:
  CommitEntries runs one SQL transaction: compare the stored per-staff
  version with the version the caller checked conflicts against, insert the
  entries, bump the counter. A mismatch rolls back and surfaces as
  StaleConflictCheckError. Releasing entries bumps the counter too, so a
  release racing an approval is also caught.

RETENTION:
  Nothing here deletes. Requests keep their terminal rows, cancelled shifts
  keep their calendar entries as tentative, and the audit log only appends.

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block,
  single writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/roster.db")   // ":memory:" for tests
  if err != nil { ... }
  defer store.Close()

SEE ALSO:
  - schedule/store.go: Interface definitions
  - schedule/store/memory.go: In-memory implementation for engine tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fitgrid/roster-engine/roster"
	"github.com/fitgrid/roster-engine/schedule"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ schedule.CalendarStore = (*Store)(nil)
	_ schedule.RequestStore  = (*Store)(nil)
	_ schedule.TemplateStore = (*Store)(nil)
	_ schedule.AuditLog      = (*Store)(nil)
	_ roster.ShiftStore      = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schemaSQL := `
	CREATE TABLE IF NOT EXISTS calendar_entries (
		id TEXT PRIMARY KEY,
		staff_id TEXT NOT NULL,
		branch_id TEXT NOT NULL,
		source TEXT NOT NULL,
		status TEXT NOT NULL,
		date TEXT NOT NULL,
		start_minute INTEGER NOT NULL,
		end_minute INTEGER NOT NULL,
		request_id TEXT,
		created_at TEXT NOT NULL
	);

	-- Hot path: conflict checks load committed entries by staff and date
	CREATE INDEX IF NOT EXISTS idx_entries_staff_date
		ON calendar_entries(staff_id, date) WHERE status = 'committed';
	CREATE INDEX IF NOT EXISTS idx_entries_request
		ON calendar_entries(request_id) WHERE request_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS calendar_versions (
		staff_id TEXT PRIMARY KEY,
		version INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		staff_id TEXT NOT NULL,
		branch_id TEXT NOT NULL,
		status TEXT NOT NULL,
		candidates_json TEXT NOT NULL,
		report_json TEXT NOT NULL,
		reason TEXT,
		requested_by TEXT,
		approved_by TEXT,
		approved_at TEXT,
		approval_note TEXT,
		rejection_reason TEXT,
		meta_json TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status);
	CREATE INDEX IF NOT EXISTS idx_requests_staff ON requests(staff_id);

	CREATE TABLE IF NOT EXISTS shift_templates (
		id TEXT PRIMARY KEY,
		staff_id TEXT NOT NULL,
		branch_id TEXT NOT NULL,
		weekdays TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		auto_generate INTEGER NOT NULL,
		advance_days INTEGER NOT NULL,
		end_date TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		staff_id TEXT NOT NULL,
		branch_id TEXT NOT NULL,
		date TEXT NOT NULL,
		start_minute INTEGER NOT NULL,
		end_minute INTEGER NOT NULL,
		status TEXT NOT NULL,
		entry_id TEXT,
		template_id TEXT,
		notes TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_shifts_staff ON shifts(staff_id, date);

	-- Append-only: no UPDATE or DELETE ever touches this table
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		ts TEXT NOT NULL,
		actor_id TEXT,
		action TEXT NOT NULL,
		request_id TEXT,
		staff_id TEXT,
		detail TEXT
	);
	`
	_, err := s.db.Exec(schemaSQL)
	return err
}

const timeLayout = time.RFC3339Nano

// =============================================================================
// CALENDAR STORE
// =============================================================================

func (s *Store) LoadCommittedEntries(ctx context.Context, staffID schedule.StaffID, from, to schedule.Date) ([]schedule.StaffCalendarEntry, schedule.CalendarVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, staff_id, branch_id, source, status, date, start_minute, end_minute,
		       COALESCE(request_id, ''), created_at
		FROM calendar_entries
		WHERE staff_id = ? AND status = 'committed' AND date >= ? AND date <= ?
		ORDER BY date, start_minute`,
		string(staffID), from.String(), to.String())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load entries: %w", err)
	}
	defer rows.Close()

	var entries []schedule.StaffCalendarEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	version, err := s.versionFor(ctx, s.db, staffID)
	if err != nil {
		return nil, 0, err
	}
	return entries, version, nil
}

func (s *Store) CommitEntries(ctx context.Context, staffID schedule.StaffID, entries []schedule.StaffCalendarEntry, expected schedule.CalendarVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := s.versionFor(ctx, tx, staffID)
	if err != nil {
		return err
	}
	if current != expected {
		return &schedule.StaleConflictCheckError{StaffID: staffID, Expected: expected, Actual: current}
	}

	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO calendar_entries
				(id, staff_id, branch_id, source, status, date, start_minute, end_minute, request_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(e.ID), string(e.StaffID), string(e.BranchID), string(e.Source), string(e.Status),
			e.Interval.Date.String(), e.Interval.StartMinute, e.Interval.EndMinute,
			nullable(string(e.RequestID)), e.CreatedAt.UTC().Format(timeLayout))
		if err != nil {
			return fmt.Errorf("failed to insert entry: %w", err)
		}
	}

	if err := s.bumpVersion(ctx, tx, staffID, current); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ReleaseEntries(ctx context.Context, staffID schedule.StaffID, ids []schedule.EntryID) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, string(staffID))
	for _, id := range ids {
		args = append(args, string(id))
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE calendar_entries SET status = 'tentative'
		WHERE staff_id = ? AND status = 'committed' AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to release entries: %w", err)
	}

	if affected, _ := res.RowsAffected(); affected > 0 {
		current, err := s.versionFor(ctx, tx, staffID)
		if err != nil {
			return err
		}
		if err := s.bumpVersion(ctx, tx, staffID, current); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) versionFor(ctx context.Context, q querier, staffID schedule.StaffID) (schedule.CalendarVersion, error) {
	var version int64
	err := q.QueryRowContext(ctx,
		`SELECT version FROM calendar_versions WHERE staff_id = ?`, string(staffID)).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load calendar version: %w", err)
	}
	return schedule.CalendarVersion(version), nil
}

func (s *Store) bumpVersion(ctx context.Context, q querier, staffID schedule.StaffID, current schedule.CalendarVersion) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO calendar_versions (staff_id, version) VALUES (?, ?)
		ON CONFLICT(staff_id) DO UPDATE SET version = excluded.version`,
		string(staffID), int64(current)+1)
	if err != nil {
		return fmt.Errorf("failed to bump calendar version: %w", err)
	}
	return nil
}

func scanEntry(rows *sql.Rows) (schedule.StaffCalendarEntry, error) {
	var (
		e                        schedule.StaffCalendarEntry
		dateStr, createdAt       string
		id, staff, branch        string
		source, status, reqID    string
		startMinute, endMinute   int
	)
	if err := rows.Scan(&id, &staff, &branch, &source, &status, &dateStr, &startMinute, &endMinute, &reqID, &createdAt); err != nil {
		return e, fmt.Errorf("failed to scan entry: %w", err)
	}
	date, err := schedule.ParseDate(dateStr)
	if err != nil {
		return e, err
	}
	created, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return e, fmt.Errorf("failed to parse entry timestamp: %w", err)
	}
	e = schedule.StaffCalendarEntry{
		ID:        schedule.EntryID(id),
		StaffID:   schedule.StaffID(staff),
		BranchID:  schedule.BranchID(branch),
		Source:    schedule.EntrySource(source),
		Status:    schedule.EntryStatus(status),
		Interval:  schedule.TimeInterval{Date: date, StartMinute: startMinute, EndMinute: endMinute},
		RequestID: schedule.RequestID(reqID),
		CreatedAt: created,
	}
	return e, nil
}

// =============================================================================
// REQUEST STORE - Candidates and report persisted as JSON columns
// =============================================================================

type intervalJSON struct {
	Date  string `json:"date"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

type conflictJSON struct {
	CandidateIndex int    `json:"candidate_index"`
	EntryID        string `json:"entry_id"`
	StaffID        string `json:"staff_id"`
	BranchID       string `json:"branch_id"`
	Source         string `json:"source"`
	Interval       intervalJSON `json:"interval"`
	RequestID      string `json:"request_id,omitempty"`
}

func toIntervalJSON(iv schedule.TimeInterval) intervalJSON {
	return intervalJSON{Date: iv.Date.String(), Start: iv.StartMinute, End: iv.EndMinute}
}

func fromIntervalJSON(j intervalJSON) (schedule.TimeInterval, error) {
	date, err := schedule.ParseDate(j.Date)
	if err != nil {
		return schedule.TimeInterval{}, err
	}
	return schedule.TimeInterval{Date: date, StartMinute: j.Start, EndMinute: j.End}, nil
}

func marshalCandidates(candidates []schedule.TimeInterval) (string, error) {
	rows := make([]intervalJSON, len(candidates))
	for i, c := range candidates {
		rows[i] = toIntervalJSON(c)
	}
	b, err := json.Marshal(rows)
	return string(b), err
}

func unmarshalCandidates(raw string) ([]schedule.TimeInterval, error) {
	var rows []intervalJSON
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, fmt.Errorf("failed to decode candidates: %w", err)
	}
	out := make([]schedule.TimeInterval, len(rows))
	for i, r := range rows {
		iv, err := fromIntervalJSON(r)
		if err != nil {
			return nil, err
		}
		out[i] = iv
	}
	return out, nil
}

func marshalReport(report schedule.ConflictReport) (string, error) {
	rows := make([]conflictJSON, len(report.Conflicts))
	for i, c := range report.Conflicts {
		rows[i] = conflictJSON{
			CandidateIndex: c.CandidateIndex,
			EntryID:        string(c.Entry.ID),
			StaffID:        string(c.Entry.StaffID),
			BranchID:       string(c.Entry.BranchID),
			Source:         string(c.Entry.Source),
			Interval:       toIntervalJSON(c.Entry.Interval),
			RequestID:      string(c.Entry.RequestID),
		}
	}
	b, err := json.Marshal(rows)
	return string(b), err
}

func unmarshalReport(raw string) (schedule.ConflictReport, error) {
	var rows []conflictJSON
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return schedule.ConflictReport{}, fmt.Errorf("failed to decode report: %w", err)
	}
	var report schedule.ConflictReport
	for _, r := range rows {
		iv, err := fromIntervalJSON(r.Interval)
		if err != nil {
			return schedule.ConflictReport{}, err
		}
		report.Conflicts = append(report.Conflicts, schedule.Conflict{
			CandidateIndex: r.CandidateIndex,
			Entry: schedule.StaffCalendarEntry{
				ID:        schedule.EntryID(r.EntryID),
				StaffID:   schedule.StaffID(r.StaffID),
				BranchID:  schedule.BranchID(r.BranchID),
				Source:    schedule.EntrySource(r.Source),
				Status:    schedule.EntryCommitted,
				Interval:  iv,
				RequestID: schedule.RequestID(r.RequestID),
			},
		})
	}
	report.Count = len(report.Conflicts)
	report.HasConflicts = report.Count > 0
	return report, nil
}

func (s *Store) SaveRequest(ctx context.Context, r *schedule.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeRequest(ctx, r, `
		INSERT INTO requests
			(id, kind, staff_id, branch_id, status, candidates_json, report_json, reason,
			 requested_by, approved_by, approved_at, approval_note, rejection_reason,
			 meta_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
}

func (s *Store) UpdateRequest(ctx context.Context, r *schedule.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM requests WHERE id = ?`, string(r.ID)).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return schedule.ErrRequestNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check request: %w", err)
	}
	return s.writeRequest(ctx, r, `
		INSERT OR REPLACE INTO requests
			(id, kind, staff_id, branch_id, status, candidates_json, report_json, reason,
			 requested_by, approved_by, approved_at, approval_note, rejection_reason,
			 meta_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
}

func (s *Store) writeRequest(ctx context.Context, r *schedule.Request, query string) error {
	candidates, err := marshalCandidates(r.Candidates)
	if err != nil {
		return fmt.Errorf("failed to encode candidates: %w", err)
	}
	report, err := marshalReport(r.Report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	meta := ""
	if len(r.Meta) > 0 {
		b, err := json.Marshal(r.Meta)
		if err != nil {
			return fmt.Errorf("failed to encode meta: %w", err)
		}
		meta = string(b)
	}
	var approvedAt any
	if r.ApprovedAt != nil {
		approvedAt = r.ApprovedAt.UTC().Format(timeLayout)
	}

	_, err = s.db.ExecContext(ctx, query,
		string(r.ID), string(r.Kind), string(r.StaffID), string(r.BranchID), string(r.Status),
		candidates, report, r.Reason, r.RequestedBy, r.ApprovedBy, approvedAt,
		r.ApprovalNote, r.RejectionReason, nullable(meta),
		r.CreatedAt.UTC().Format(timeLayout), r.UpdatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to write request: %w", err)
	}
	return nil
}

const requestColumns = `
	id, kind, staff_id, branch_id, status, candidates_json, report_json,
	COALESCE(reason, ''), COALESCE(requested_by, ''), COALESCE(approved_by, ''),
	approved_at, COALESCE(approval_note, ''), COALESCE(rejection_reason, ''),
	COALESCE(meta_json, ''), created_at, updated_at`

func (s *Store) GetRequest(ctx context.Context, id schedule.RequestID) (*schedule.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = ?`, string(id))
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, schedule.ErrRequestNotFound
	}
	return r, err
}

func (s *Store) ListPendingRequests(ctx context.Context) ([]*schedule.Request, error) {
	return s.listRequests(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE status = ? ORDER BY created_at`,
		string(schedule.RequestPending))
}

func (s *Store) ListRequestsByStaff(ctx context.Context, staffID schedule.StaffID) ([]*schedule.Request, error) {
	return s.listRequests(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE staff_id = ? ORDER BY created_at`,
		string(staffID))
}

func (s *Store) listRequests(ctx context.Context, query string, args ...any) ([]*schedule.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var out []*schedule.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*schedule.Request, error) {
	var (
		id, kind, staff, branch, status            string
		candidatesRaw, reportRaw                   string
		reason, requestedBy, approvedBy            string
		approvedAt                                 sql.NullString
		approvalNote, rejectionReason, metaRaw     string
		createdAt, updatedAt                       string
	)
	err := row.Scan(&id, &kind, &staff, &branch, &status, &candidatesRaw, &reportRaw,
		&reason, &requestedBy, &approvedBy, &approvedAt, &approvalNote, &rejectionReason,
		&metaRaw, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	candidates, err := unmarshalCandidates(candidatesRaw)
	if err != nil {
		return nil, err
	}
	report, err := unmarshalReport(reportRaw)
	if err != nil {
		return nil, err
	}

	r := &schedule.Request{
		ID:              schedule.RequestID(id),
		Kind:            schedule.RequestKind(kind),
		StaffID:         schedule.StaffID(staff),
		BranchID:        schedule.BranchID(branch),
		Status:          schedule.RequestStatus(status),
		Candidates:      candidates,
		Report:          report,
		Reason:          reason,
		RequestedBy:     requestedBy,
		ApprovedBy:      approvedBy,
		ApprovalNote:    approvalNote,
		RejectionReason: rejectionReason,
	}
	if metaRaw != "" {
		if err := json.Unmarshal([]byte(metaRaw), &r.Meta); err != nil {
			return nil, fmt.Errorf("failed to decode meta: %w", err)
		}
	}
	if approvedAt.Valid {
		t, err := time.Parse(timeLayout, approvedAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse approved_at: %w", err)
		}
		r.ApprovedAt = &t
	}
	if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if r.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return r, nil
}

// =============================================================================
// TEMPLATE STORE - Weekdays stored as a comma-joined int list
// =============================================================================

func (s *Store) SaveTemplate(ctx context.Context, t *schedule.ShiftTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO shift_templates
			(id, staff_id, branch_id, weekdays, start_time, end_time, auto_generate,
			 advance_days, end_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(t.ID), string(t.StaffID), string(t.BranchID), encodeWeekdays(t.Weekdays),
		t.StartTime, t.EndTime, boolToInt(t.AutoGenerate), t.AdvanceDays, t.EndDate.String(),
		t.CreatedAt.UTC().Format(timeLayout), t.UpdatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	return nil
}

func (s *Store) GetTemplate(ctx context.Context, id schedule.TemplateID) (*schedule.ShiftTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, staff_id, branch_id, weekdays, start_time, end_time, auto_generate,
		       advance_days, end_date, created_at, updated_at
		FROM shift_templates WHERE id = ?`, string(id))
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, schedule.ErrTemplateNotFound
	}
	return t, err
}

func (s *Store) ListTemplates(ctx context.Context) ([]*schedule.ShiftTemplate, error) {
	return s.listTemplates(ctx, `
		SELECT id, staff_id, branch_id, weekdays, start_time, end_time, auto_generate,
		       advance_days, end_date, created_at, updated_at
		FROM shift_templates ORDER BY id`)
}

func (s *Store) ListAutoGenerateTemplates(ctx context.Context) ([]*schedule.ShiftTemplate, error) {
	return s.listTemplates(ctx, `
		SELECT id, staff_id, branch_id, weekdays, start_time, end_time, auto_generate,
		       advance_days, end_date, created_at, updated_at
		FROM shift_templates WHERE auto_generate = 1 ORDER BY id`)
}

func (s *Store) listTemplates(ctx context.Context, query string) ([]*schedule.ShiftTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var out []*schedule.ShiftTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTemplate(row rowScanner) (*schedule.ShiftTemplate, error) {
	var (
		id, staff, branch, weekdays, startTime, endTime string
		autoGenerate, advanceDays                       int
		endDate, createdAt, updatedAt                   string
	)
	err := row.Scan(&id, &staff, &branch, &weekdays, &startTime, &endTime,
		&autoGenerate, &advanceDays, &endDate, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	end, err := schedule.ParseDate(endDate)
	if err != nil {
		return nil, err
	}
	t := &schedule.ShiftTemplate{
		ID:           schedule.TemplateID(id),
		StaffID:      schedule.StaffID(staff),
		BranchID:     schedule.BranchID(branch),
		Weekdays:     decodeWeekdays(weekdays),
		StartTime:    startTime,
		EndTime:      endTime,
		AutoGenerate: autoGenerate == 1,
		AdvanceDays:  advanceDays,
		EndDate:      end,
	}
	if t.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if t.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return t, nil
}

func encodeWeekdays(days []time.Weekday) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(int(d))
	}
	return strings.Join(parts, ",")
}

func decodeWeekdays(raw string) []time.Weekday {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	days := make([]time.Weekday, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			continue
		}
		days = append(days, time.Weekday(n))
	}
	return days
}

// =============================================================================
// SHIFT STORE
// =============================================================================

func (s *Store) SaveShift(ctx context.Context, sh *roster.WorkShift) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeShift(ctx, sh)
}

func (s *Store) UpdateShift(ctx context.Context, sh *roster.WorkShift) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM shifts WHERE id = ?`, string(sh.ID)).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return roster.ErrShiftNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check shift: %w", err)
	}
	return s.writeShift(ctx, sh)
}

func (s *Store) writeShift(ctx context.Context, sh *roster.WorkShift) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO shifts
			(id, staff_id, branch_id, date, start_minute, end_minute, status, entry_id,
			 template_id, notes, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(sh.ID), string(sh.StaffID), string(sh.BranchID),
		sh.Interval.Date.String(), sh.Interval.StartMinute, sh.Interval.EndMinute,
		string(sh.Status), nullable(string(sh.EntryID)), nullable(string(sh.TemplateID)),
		sh.Notes, sh.CreatedBy,
		sh.CreatedAt.UTC().Format(timeLayout), sh.UpdatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to write shift: %w", err)
	}
	return nil
}

func (s *Store) GetShift(ctx context.Context, id roster.ShiftID) (*roster.WorkShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, staff_id, branch_id, date, start_minute, end_minute, status,
		       COALESCE(entry_id, ''), COALESCE(template_id, ''), COALESCE(notes, ''),
		       COALESCE(created_by, ''), created_at, updated_at
		FROM shifts WHERE id = ?`, string(id))
	sh, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, roster.ErrShiftNotFound
	}
	return sh, err
}

func (s *Store) ListShiftsByStaff(ctx context.Context, staffID schedule.StaffID) ([]*roster.WorkShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, staff_id, branch_id, date, start_minute, end_minute, status,
		       COALESCE(entry_id, ''), COALESCE(template_id, ''), COALESCE(notes, ''),
		       COALESCE(created_by, ''), created_at, updated_at
		FROM shifts WHERE staff_id = ? ORDER BY date, start_minute`, string(staffID))
	if err != nil {
		return nil, fmt.Errorf("failed to list shifts: %w", err)
	}
	defer rows.Close()

	var out []*roster.WorkShift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func scanShift(row rowScanner) (*roster.WorkShift, error) {
	var (
		id, staff, branch, dateStr, status      string
		startMinute, endMinute                  int
		entryID, templateID, notes, createdBy   string
		createdAt, updatedAt                    string
	)
	err := row.Scan(&id, &staff, &branch, &dateStr, &startMinute, &endMinute, &status,
		&entryID, &templateID, &notes, &createdBy, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	date, err := schedule.ParseDate(dateStr)
	if err != nil {
		return nil, err
	}
	sh := &roster.WorkShift{
		ID:         roster.ShiftID(id),
		StaffID:    schedule.StaffID(staff),
		BranchID:   schedule.BranchID(branch),
		Interval:   schedule.TimeInterval{Date: date, StartMinute: startMinute, EndMinute: endMinute},
		Status:     roster.ShiftStatus(status),
		EntryID:    schedule.EntryID(entryID),
		TemplateID: schedule.TemplateID(templateID),
		Notes:      notes,
		CreatedBy:  createdBy,
	}
	if sh.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if sh.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return sh, nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (s *Store) AppendAudit(ctx context.Context, entry schedule.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, ts, actor_id, action, request_id, staff_id, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Timestamp.UTC().Format(timeLayout), entry.ActorID,
		string(entry.Action), string(entry.RequestID), string(entry.StaffID), entry.Detail)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
