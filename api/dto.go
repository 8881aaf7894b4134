/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers and the domain layer, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/fitgrid/roster-engine/roster"
	"github.com/fitgrid/roster-engine/schedule"
)

// =============================================================================
// INTERVALS AND CALENDAR ENTRIES
// =============================================================================

// IntervalDTO is a dated "HH:MM" range.
type IntervalDTO struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func intervalDTO(iv schedule.TimeInterval) IntervalDTO {
	return IntervalDTO{Date: iv.Date.String(), Start: iv.Start(), End: iv.End()}
}

func (d IntervalDTO) toInterval() (schedule.TimeInterval, error) {
	date, err := schedule.ParseDate(d.Date)
	if err != nil {
		return schedule.TimeInterval{}, &schedule.InvalidRangeError{Start: d.Start, End: d.End, Detail: err.Error()}
	}
	return schedule.NewInterval(date, d.Start, d.End)
}

type EntryDTO struct {
	ID        string      `json:"id"`
	StaffID   string      `json:"staff_id"`
	BranchID  string      `json:"branch_id"`
	Source    string      `json:"source"`
	Status    string      `json:"status"`
	Interval  IntervalDTO `json:"interval"`
	RequestID string      `json:"request_id,omitempty"`
}

func entryDTO(e schedule.StaffCalendarEntry) EntryDTO {
	return EntryDTO{
		ID:        string(e.ID),
		StaffID:   string(e.StaffID),
		BranchID:  string(e.BranchID),
		Source:    string(e.Source),
		Status:    string(e.Status),
		Interval:  intervalDTO(e.Interval),
		RequestID: string(e.RequestID),
	}
}

// =============================================================================
// CONFLICT REPORTS
// =============================================================================

type ConflictDTO struct {
	CandidateIndex int      `json:"candidate_index"`
	Entry          EntryDTO `json:"entry"`
}

type ConflictReportDTO struct {
	HasConflicts bool          `json:"has_conflicts"`
	Count        int           `json:"count"`
	Conflicts    []ConflictDTO `json:"conflicts"`
}

func reportDTO(r schedule.ConflictReport) ConflictReportDTO {
	out := ConflictReportDTO{HasConflicts: r.HasConflicts, Count: r.Count}
	for _, c := range r.Conflicts {
		out.Conflicts = append(out.Conflicts, ConflictDTO{
			CandidateIndex: c.CandidateIndex,
			Entry:          entryDTO(c.Entry),
		})
	}
	return out
}

type CheckConflictsRequest struct {
	Intervals []IntervalDTO `json:"intervals"`
}

// =============================================================================
// REQUESTS
// =============================================================================

// RequestDTO is the wire shape of a request aggregate. Status uses the PT
// label ("pending_approval") for PT availability requests.
type RequestDTO struct {
	ID              string            `json:"id"`
	Kind            string            `json:"kind"`
	StaffID         string            `json:"staff_id"`
	BranchID        string            `json:"branch_id"`
	Status          string            `json:"status"`
	Candidates      []IntervalDTO     `json:"candidates"`
	Report          ConflictReportDTO `json:"conflict_report"`
	Reason          string            `json:"reason,omitempty"`
	RequestedBy     string            `json:"requested_by,omitempty"`
	ApprovedBy      string            `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time        `json:"approved_at,omitempty"`
	ApprovalNote    string            `json:"approval_note,omitempty"`
	RejectionReason string            `json:"rejection_reason,omitempty"`
	TimeOffType     string            `json:"time_off_type,omitempty"`
	SlotCapacities  []int             `json:"slot_capacities,omitempty"`
	ContractIDs     []string          `json:"linked_service_contract_ids,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func requestDTO(r *schedule.Request) RequestDTO {
	status := string(r.Status)
	if r.Kind == schedule.KindPTAvailability {
		status = roster.PTStatusLabel(r.Status)
	}

	dto := RequestDTO{
		ID:              string(r.ID),
		Kind:            string(r.Kind),
		StaffID:         string(r.StaffID),
		BranchID:        string(r.BranchID),
		Status:          status,
		Report:          reportDTO(r.Report),
		Reason:          r.Reason,
		RequestedBy:     r.RequestedBy,
		ApprovedBy:      r.ApprovedBy,
		ApprovedAt:      r.ApprovedAt,
		ApprovalNote:    r.ApprovalNote,
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	for _, c := range r.Candidates {
		dto.Candidates = append(dto.Candidates, intervalDTO(c))
	}
	switch r.Kind {
	case schedule.KindTimeOff:
		dto.TimeOffType = string(roster.TimeOffTypeOf(r))
	case schedule.KindPTAvailability:
		dto.SlotCapacities = roster.DecodeCapacities(r)
		dto.ContractIDs = roster.DecodeContractIDs(r)
	}
	return dto
}

type CreateTimeOffRequest struct {
	Type        string `json:"type"`
	From        string `json:"from"`
	To          string `json:"to"`
	Reason      string `json:"reason"`
	RequestedBy string `json:"requested_by"`
}

type PTSlotDTO struct {
	Date        string `json:"date"`
	Start       string `json:"start"`
	End         string `json:"end"`
	MaxCapacity int    `json:"max_capacity"`
}

type CreatePTAvailabilityRequest struct {
	Slots             []PTSlotDTO `json:"slots"`
	LinkedContractIDs []string    `json:"linked_service_contract_ids"`
	Notes             string      `json:"notes"`
	RequestedBy       string      `json:"requested_by"`
}

type ApproveRequest struct {
	ApproverID string `json:"approver_id"`
	Note       string `json:"note"`

	// Override must be true to approve when the re-check reports conflicts.
	Override bool `json:"override"`
}

type RejectRequest struct {
	ApproverID string `json:"approver_id"`
	Reason     string `json:"reason"`
}

type CancelRequest struct {
	ActorID string `json:"actor_id"`
}

// =============================================================================
// SHIFTS
// =============================================================================

type CreateShiftRequest struct {
	BranchID  string `json:"branch_id"`
	Date      string `json:"date"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Notes     string `json:"notes"`
	CreatedBy string `json:"created_by"`
}

type ShiftDTO struct {
	ID         string      `json:"id"`
	StaffID    string      `json:"staff_id"`
	BranchID   string      `json:"branch_id"`
	Interval   IntervalDTO `json:"interval"`
	Status     string      `json:"status"`
	TemplateID string      `json:"template_id,omitempty"`
	Notes      string      `json:"notes,omitempty"`
	CreatedBy  string      `json:"created_by,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

func shiftDTO(s *roster.WorkShift) ShiftDTO {
	return ShiftDTO{
		ID:         string(s.ID),
		StaffID:    string(s.StaffID),
		BranchID:   string(s.BranchID),
		Interval:   intervalDTO(s.Interval),
		Status:     string(s.Status),
		TemplateID: string(s.TemplateID),
		Notes:      s.Notes,
		CreatedBy:  s.CreatedBy,
		CreatedAt:  s.CreatedAt,
	}
}

// CreateShiftResponse carries the shift plus the conflict report: direct
// assignment always succeeds, but double-booking is never silent.
type CreateShiftResponse struct {
	Shift  ShiftDTO          `json:"shift"`
	Report ConflictReportDTO `json:"conflict_report"`
}

// =============================================================================
// TEMPLATES
// =============================================================================

type TemplateDTO struct {
	ID           string `json:"id"`
	StaffID      string `json:"staff_id"`
	BranchID     string `json:"branch_id"`
	Weekdays     []int  `json:"weekdays"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	AutoGenerate bool   `json:"auto_generate"`
	AdvanceDays  int    `json:"advance_days"`
	EndDate      string `json:"end_date"`
}

type GenerateShiftsRequest struct {
	// Today overrides the generation anchor date; defaults to today.
	Today   string `json:"today,omitempty"`
	ActorID string `json:"actor_id"`
}

type GenerationResultDTO struct {
	TemplateID string        `json:"template_id"`
	Created    []ShiftDTO    `json:"created"`
	Skipped    []IntervalDTO `json:"skipped"`
}

// =============================================================================
// SUMMARIES
// =============================================================================

type StaffSummaryDTO struct {
	StaffID     string `json:"staff_id"`
	ShiftHours  string `json:"shift_hours"`
	PTSlotHours string `json:"pt_slot_hours"`
	TotalHours  string `json:"total_hours"`
	TimeOffDays int    `json:"time_off_days"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`

	// Report rides along on conflict-override refusals so the client can
	// show what would be double-booked.
	Report *ConflictReportDTO `json:"conflict_report,omitempty"`
}
