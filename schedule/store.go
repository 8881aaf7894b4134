/*
store.go - Persistence and collaborator interfaces

PURPOSE:
  Defines the seams between the engine and the surrounding application.
  The engine performs no I/O of its own: committed entries are loaded and
  persisted through CalendarStore, requests through RequestStore, and the
  caller picks the implementation (in-memory, SQLite, ...).

OPTIMISTIC CONCURRENCY:
  LoadCommittedEntries returns the per-staff CalendarVersion observed.
  CommitEntries takes that version back and fails with ErrStaleConflictCheck
  when the calendar moved in between, so check-then-commit is safe without
  the engine holding locks. Callers embedding this in a concurrent service
  should still serialize approvals per staff member; the version check is
  the backstop, not the scheduler.

COLLABORATORS (consumed, not implemented, here):
  Authorizer: supplies the approve/cancel policy decision
  Notifier:   one-way event sink for state transitions

IMPLEMENTATIONS:
  - schedule/store: in-memory, for tests and the dev server
  - store/sqlite:   production SQLite

SEE ALSO:
  - workflow.go: The only writer through these interfaces
*/
package schedule

import (
	"context"
	"time"
)

// =============================================================================
// CALENDAR STORE - The committed calendar resource
// =============================================================================

// CalendarStore owns the authoritative committed calendar. The engine only
// ever sees snapshots of it.
type CalendarStore interface {
	// LoadCommittedEntries returns the committed entries for a staff member
	// in [from, to], plus the calendar version observed.
	LoadCommittedEntries(ctx context.Context, staffID StaffID, from, to Date) ([]StaffCalendarEntry, CalendarVersion, error)

	// CommitEntries appends committed entries atomically, guarded by the
	// version the caller checked conflicts against. Returns an error
	// wrapping ErrStaleConflictCheck when the version no longer matches.
	CommitEntries(ctx context.Context, staffID StaffID, entries []StaffCalendarEntry, expected CalendarVersion) error

	// ReleaseEntries demotes entries to tentative so they stop blocking
	// proposals, bumping the calendar version. Entries are retained, not
	// deleted; the calendar is append-only in the same way the audit log is.
	// Unknown IDs are ignored.
	ReleaseEntries(ctx context.Context, staffID StaffID, ids []EntryID) error
}

// =============================================================================
// REQUEST STORE
// =============================================================================

// RequestStore persists request aggregates. Requests reach terminal states
// but are never deleted; history is part of the audit story.
type RequestStore interface {
	SaveRequest(ctx context.Context, r *Request) error

	// GetRequest returns an error wrapping ErrRequestNotFound when absent.
	GetRequest(ctx context.Context, id RequestID) (*Request, error)

	// UpdateRequest replaces the stored aggregate after a transition.
	UpdateRequest(ctx context.Context, r *Request) error

	ListPendingRequests(ctx context.Context) ([]*Request, error)
	ListRequestsByStaff(ctx context.Context, staffID StaffID) ([]*Request, error)
}

// =============================================================================
// TEMPLATE STORE
// =============================================================================

type TemplateStore interface {
	SaveTemplate(ctx context.Context, t *ShiftTemplate) error

	// GetTemplate returns an error wrapping ErrTemplateNotFound when absent.
	GetTemplate(ctx context.Context, id TemplateID) (*ShiftTemplate, error)

	ListTemplates(ctx context.Context) ([]*ShiftTemplate, error)

	// ListAutoGenerateTemplates returns templates the background generator
	// should expand.
	ListAutoGenerateTemplates(ctx context.Context) ([]*ShiftTemplate, error)
}

// =============================================================================
// AUDIT LOG - Who did what when, append-only
// =============================================================================

type AuditAction string

const (
	AuditRequestCreated  AuditAction = "request_created"
	AuditRequestApproved AuditAction = "request_approved"
	AuditRequestRejected AuditAction = "request_rejected"
	AuditRequestCanceled AuditAction = "request_canceled"
	AuditShiftsGenerated AuditAction = "shifts_generated"
)

type AuditEntry struct {
	ID        string
	Timestamp time.Time
	ActorID   string
	Action    AuditAction
	RequestID RequestID
	StaffID   StaffID
	Detail    string
}

// AuditLog stores audit entries. Append-only, no updates, no deletes.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
}

// NopAuditLog discards audit entries, for callers that track audit elsewhere.
type NopAuditLog struct{}

func (NopAuditLog) AppendAudit(ctx context.Context, entry AuditEntry) error { return nil }

// =============================================================================
// COLLABORATORS
// =============================================================================

// Authorizer is the identity/policy seam: can this actor approve or cancel
// for this staff member and branch. The engine never calls it; the API layer
// does, before invoking the workflow.
type Authorizer interface {
	CanApprove(ctx context.Context, actorID string, staffID StaffID, branchID BranchID) (bool, error)
	CanCancel(ctx context.Context, actorID string, r *Request) (bool, error)
}

// AllowAll authorizes everything. Dev-server default.
type AllowAll struct{}

func (AllowAll) CanApprove(ctx context.Context, actorID string, staffID StaffID, branchID BranchID) (bool, error) {
	return true, nil
}

func (AllowAll) CanCancel(ctx context.Context, actorID string, r *Request) (bool, error) {
	return true, nil
}

// TransitionEvent is what the Notifier receives after a state change. The
// refreshed report lets a client surface conflicts approved by override.
type TransitionEvent struct {
	Request *Request
	Action  AuditAction
	ActorID string
	At      time.Time
}

// Notifier is a one-way consumer of transition events; no response expected.
// Delivery mechanics (mail, push, websockets) live outside the engine.
type Notifier interface {
	Notify(ctx context.Context, event TransitionEvent)
}

// NopNotifier drops events.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, event TransitionEvent) {}
