/*
handlers.go - HTTP API handlers for the roster engine

PURPOSE:
  Exposes the scheduling engine via REST. Handles HTTP request/response,
  JSON serialization, and delegates to the domain layer. Everything here is
  a thin client of the core: the handlers hold no scheduling logic beyond
  the override gate.

ENDPOINTS:
  Staff calendar:
    GET  /api/staff/{id}/calendar?from=&to=   Committed entries
    GET  /api/staff/{id}/summary?from=&to=    Scheduled-hours rollup
    POST /api/staff/{id}/conflicts/check      Dry-run conflict detection
    POST /api/staff/{id}/shifts               Assign a shift (no approval)
    POST /api/staff/{id}/time-off             Open a time-off request
    POST /api/staff/{id}/pt-availability      Open a PT availability request
    GET  /api/staff/{id}/requests             Request history

  Requests:
    GET  /api/requests/pending
    GET  /api/requests/{id}
    POST /api/requests/{id}/approve           Override gate lives here
    POST /api/requests/{id}/reject
    POST /api/requests/{id}/cancel

  Shifts:
    POST /api/shifts/{id}/start|complete|cancel

  Templates:
    GET/POST /api/templates
    POST     /api/templates/{id}/generate

OVERRIDE GATE:
  The engine allows approving over conflicts; policy here makes it explicit.
  Approve first dry-runs the detector: conflicts plus override=false is a
  409 carrying the report, conflicts plus override=true goes through.

ERROR HANDLING:
  400 validation, 404 not found, 409 transition/stale conflicts (stale is
  flagged retryable), 500 everything else.

SEE ALSO:
  - dto.go: Wire shapes
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fitgrid/roster-engine/roster"
	"github.com/fitgrid/roster-engine/schedule"
	"github.com/fitgrid/roster-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Service  *roster.Service
	Workflow *schedule.Workflow
	Auth     schedule.Authorizer
	Log      *zap.Logger
}

// NewHandler wires the domain service and workflow over the given store.
func NewHandler(store *sqlite.Store, logger *zap.Logger) *Handler {
	workflow := &schedule.Workflow{
		Calendar: store,
		Requests: store,
		Audit:    store,
		Notifier: &ZapNotifier{Log: logger},
	}
	return &Handler{
		Store:    store,
		Workflow: workflow,
		Service: &roster.Service{
			Workflow: workflow,
			Calendar: store,
			Shifts:   store,
			Template: store,
		},
		Auth: schedule.AllowAll{},
		Log:  logger,
	}
}

// =============================================================================
// STAFF CALENDAR
// =============================================================================

func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	staffID := schedule.StaffID(chi.URLParam(r, "id"))
	from, to, err := dateRangeParams(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	entries, _, err := h.Store.LoadCommittedEntries(r.Context(), staffID, from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]EntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryDTO(e))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetStaffSummary(w http.ResponseWriter, r *http.Request) {
	staffID := schedule.StaffID(chi.URLParam(r, "id"))
	from, to, err := dateRangeParams(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	entries, _, err := h.Store.LoadCommittedEntries(r.Context(), staffID, from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}

	summaries := roster.Summarize(entries)
	if len(summaries) == 0 {
		h.writeJSON(w, http.StatusOK, StaffSummaryDTO{StaffID: string(staffID), ShiftHours: "0", PTSlotHours: "0", TotalHours: "0"})
		return
	}
	s := summaries[0]
	h.writeJSON(w, http.StatusOK, StaffSummaryDTO{
		StaffID:     string(s.StaffID),
		ShiftHours:  s.ShiftHours.String(),
		PTSlotHours: s.PTSlotHours.String(),
		TotalHours:  s.TotalHours().String(),
		TimeOffDays: s.TimeOffDays,
	})
}

func (h *Handler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	staffID := schedule.StaffID(chi.URLParam(r, "id"))

	var body CheckConflictsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeBadRequest(w, "invalid JSON body")
		return
	}

	candidates := make([]schedule.TimeInterval, 0, len(body.Intervals))
	for _, d := range body.Intervals {
		iv, err := d.toInterval()
		if err != nil {
			h.writeError(w, err)
			return
		}
		candidates = append(candidates, iv)
	}

	report, err := h.Workflow.CheckConflicts(r.Context(), staffID, candidates)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, reportDTO(report))
}

// =============================================================================
// SHIFTS
// =============================================================================

func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	staffID := schedule.StaffID(chi.URLParam(r, "id"))

	var body CreateShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeBadRequest(w, "invalid JSON body")
		return
	}
	date, err := schedule.ParseDate(body.Date)
	if err != nil {
		h.writeBadRequest(w, err.Error())
		return
	}

	shift, report, err := h.Service.ScheduleShift(r.Context(), roster.ScheduleShiftInput{
		StaffID:   staffID,
		BranchID:  schedule.BranchID(body.BranchID),
		Date:      date,
		StartTime: body.Start,
		EndTime:   body.End,
		Notes:     body.Notes,
		CreatedBy: body.CreatedBy,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, CreateShiftResponse{Shift: shiftDTO(shift), Report: reportDTO(report)})
}

func (h *Handler) StartShift(w http.ResponseWriter, r *http.Request)    { h.shiftTransition(w, r, h.Service.StartShift) }
func (h *Handler) CompleteShift(w http.ResponseWriter, r *http.Request) { h.shiftTransition(w, r, h.Service.CompleteShift) }
func (h *Handler) CancelShift(w http.ResponseWriter, r *http.Request)   { h.shiftTransition(w, r, h.Service.CancelShift) }

func (h *Handler) shiftTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id roster.ShiftID) (*roster.WorkShift, error)) {
	shift, err := fn(r.Context(), roster.ShiftID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, shiftDTO(shift))
}

// =============================================================================
// REQUEST CREATION
// =============================================================================

func (h *Handler) CreateTimeOff(w http.ResponseWriter, r *http.Request) {
	staffID := schedule.StaffID(chi.URLParam(r, "id"))

	var body CreateTimeOffRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeBadRequest(w, "invalid JSON body")
		return
	}
	from, err := schedule.ParseDate(body.From)
	if err != nil {
		h.writeBadRequest(w, err.Error())
		return
	}
	to, err := schedule.ParseDate(body.To)
	if err != nil {
		h.writeBadRequest(w, err.Error())
		return
	}

	request, err := h.Service.RequestTimeOff(r.Context(), roster.TimeOffInput{
		StaffID:     staffID,
		BranchID:    schedule.BranchID(r.URL.Query().Get("branch")),
		Type:        roster.TimeOffType(body.Type),
		From:        from,
		To:          to,
		Reason:      body.Reason,
		RequestedBy: body.RequestedBy,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, requestDTO(request))
}

func (h *Handler) CreatePTAvailability(w http.ResponseWriter, r *http.Request) {
	staffID := schedule.StaffID(chi.URLParam(r, "id"))

	var body CreatePTAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeBadRequest(w, "invalid JSON body")
		return
	}

	slots := make([]roster.PTSlot, 0, len(body.Slots))
	for _, s := range body.Slots {
		iv, err := IntervalDTO{Date: s.Date, Start: s.Start, End: s.End}.toInterval()
		if err != nil {
			h.writeError(w, err)
			return
		}
		slots = append(slots, roster.PTSlot{Interval: iv, MaxCapacity: s.MaxCapacity})
	}

	request, err := h.Service.RequestPTAvailability(r.Context(), roster.PTAvailabilityInput{
		StaffID:           staffID,
		BranchID:          schedule.BranchID(r.URL.Query().Get("branch")),
		Slots:             slots,
		LinkedContractIDs: body.LinkedContractIDs,
		Notes:             body.Notes,
		RequestedBy:       body.RequestedBy,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, requestDTO(request))
}

func (h *Handler) ListStaffRequests(w http.ResponseWriter, r *http.Request) {
	staffID := schedule.StaffID(chi.URLParam(r, "id"))
	requests, err := h.Store.ListRequestsByStaff(r.Context(), staffID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, requestDTOs(requests))
}

// =============================================================================
// APPROVAL WORKFLOW
// =============================================================================

func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Store.ListPendingRequests(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, requestDTOs(requests))
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	request, err := h.Store.GetRequest(r.Context(), schedule.RequestID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, requestDTO(request))
}

func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	id := schedule.RequestID(chi.URLParam(r, "id"))

	var body ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeBadRequest(w, "invalid JSON body")
		return
	}

	request, err := h.Store.GetRequest(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !h.authorized(w, r, body.ApproverID, request) {
		return
	}

	// Override gate: re-check before approving so a conflicted approval is
	// always an explicit decision. The engine itself never blocks on
	// conflicts.
	report, err := h.Workflow.CheckConflicts(r.Context(), request.StaffID, request.Candidates)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if report.HasConflicts && !body.Override {
		dto := reportDTO(report)
		h.writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:  "approval would double-book; set override to approve anyway",
			Report: &dto,
		})
		return
	}

	approved, err := h.Workflow.Approve(r.Context(), id, body.ApproverID, body.Note)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, requestDTO(approved))
}

func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	id := schedule.RequestID(chi.URLParam(r, "id"))

	var body RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeBadRequest(w, "invalid JSON body")
		return
	}

	request, err := h.Store.GetRequest(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !h.authorized(w, r, body.ApproverID, request) {
		return
	}

	rejected, err := h.Workflow.Reject(r.Context(), id, body.ApproverID, body.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, requestDTO(rejected))
}

func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	id := schedule.RequestID(chi.URLParam(r, "id"))

	var body CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeBadRequest(w, "invalid JSON body")
		return
	}

	request, err := h.Store.GetRequest(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	ok, err := h.Auth.CanCancel(r.Context(), body.ActorID, request)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !ok {
		h.writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "not allowed to cancel this request"})
		return
	}

	cancelled, err := h.Workflow.Cancel(r.Context(), id, body.ActorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, requestDTO(cancelled))
}

func (h *Handler) authorized(w http.ResponseWriter, r *http.Request, actorID string, request *schedule.Request) bool {
	ok, err := h.Auth.CanApprove(r.Context(), actorID, request.StaffID, request.BranchID)
	if err != nil {
		h.writeError(w, err)
		return false
	}
	if !ok {
		h.writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "not allowed to decide this request"})
		return false
	}
	return true
}

// =============================================================================
// TEMPLATES
// =============================================================================

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.Store.ListTemplates(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]TemplateDTO, 0, len(templates))
	for _, t := range templates {
		out = append(out, templateDTO(t))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var body TemplateDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeBadRequest(w, "invalid JSON body")
		return
	}
	template, err := templateFromDTO(body)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.Store.SaveTemplate(r.Context(), template); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, templateDTO(template))
}

func (h *Handler) GenerateShifts(w http.ResponseWriter, r *http.Request) {
	id := schedule.TemplateID(chi.URLParam(r, "id"))

	var body GenerateShiftsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeBadRequest(w, "invalid JSON body")
		return
	}

	today := schedule.Today()
	if body.Today != "" {
		parsed, err := schedule.ParseDate(body.Today)
		if err != nil {
			h.writeBadRequest(w, err.Error())
			return
		}
		today = parsed
	}

	result, err := h.Service.GenerateShiftsFromTemplate(r.Context(), id, today, body.ActorID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	dto := GenerationResultDTO{TemplateID: string(result.TemplateID)}
	for _, s := range result.Created {
		dto.Created = append(dto.Created, shiftDTO(s))
	}
	for _, iv := range result.Skipped {
		dto.Skipped = append(dto.Skipped, intervalDTO(iv))
	}
	h.writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// HELPERS
// =============================================================================

func requestDTOs(requests []*schedule.Request) []RequestDTO {
	out := make([]RequestDTO, 0, len(requests))
	for _, r := range requests {
		out = append(out, requestDTO(r))
	}
	return out
}

func templateDTO(t *schedule.ShiftTemplate) TemplateDTO {
	days := make([]int, len(t.Weekdays))
	for i, d := range t.Weekdays {
		days[i] = int(d)
	}
	return TemplateDTO{
		ID:           string(t.ID),
		StaffID:      string(t.StaffID),
		BranchID:     string(t.BranchID),
		Weekdays:     days,
		StartTime:    t.StartTime,
		EndTime:      t.EndTime,
		AutoGenerate: t.AutoGenerate,
		AdvanceDays:  t.AdvanceDays,
		EndDate:      t.EndDate.String(),
	}
}

func templateFromDTO(d TemplateDTO) (*schedule.ShiftTemplate, error) {
	endDate, err := schedule.ParseDate(d.EndDate)
	if err != nil {
		return nil, &schedule.InvalidTemplateError{TemplateID: schedule.TemplateID(d.ID), Detail: err.Error()}
	}
	days := make([]time.Weekday, len(d.Weekdays))
	for i, n := range d.Weekdays {
		days[i] = time.Weekday(n)
	}
	id := d.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	return &schedule.ShiftTemplate{
		ID:           schedule.TemplateID(id),
		StaffID:      schedule.StaffID(d.StaffID),
		BranchID:     schedule.BranchID(d.BranchID),
		Weekdays:     days,
		StartTime:    d.StartTime,
		EndTime:      d.EndTime,
		AutoGenerate: d.AutoGenerate,
		AdvanceDays:  d.AdvanceDays,
		EndDate:      endDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func dateRangeParams(r *http.Request) (schedule.Date, schedule.Date, error) {
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if fromStr == "" || toStr == "" {
		// Default to a four-week window around today.
		today := schedule.Today()
		return today.AddDays(-7), today.AddDays(21), nil
	}
	from, err := schedule.ParseDate(fromStr)
	if err != nil {
		return schedule.Date{}, schedule.Date{}, &schedule.InvalidRangeError{Detail: err.Error()}
	}
	to, err := schedule.ParseDate(toStr)
	if err != nil {
		return schedule.Date{}, schedule.Date{}, &schedule.InvalidRangeError{Detail: err.Error()}
	}
	return from, to, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Log.Error("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeBadRequest(w http.ResponseWriter, msg string) {
	h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case schedule.IsClientError(err):
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case schedule.IsNotFound(err) || errors.Is(err, roster.ErrShiftNotFound):
		h.writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, schedule.ErrInvalidTransition):
		h.writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	case schedule.IsRetryable(err):
		h.writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Retryable: true})
	case errors.Is(err, roster.ErrInvalidCapacity):
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		h.Log.Error("internal error", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
