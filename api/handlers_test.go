package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fitgrid/roster-engine/store/sqlite"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewRouter(NewHandler(st, zap.NewNop()))
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

// =============================================================================
// SHIFTS
// =============================================================================

func TestAPI_CreateShift(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/staff/staff-1/shifts", CreateShiftRequest{
		BranchID: "branch-1", Date: "2024-06-03", Start: "09:00", End: "17:00",
		CreatedBy: "manager-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[CreateShiftResponse](t, rec)
	assert.Equal(t, "scheduled", resp.Shift.Status)
	assert.False(t, resp.Report.HasConflicts)

	// The committed entry shows up on the calendar.
	rec = doJSON(t, router, http.MethodGet, "/api/staff/staff-1/calendar?from=2024-06-03&to=2024-06-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]EntryDTO](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, "work_shift", entries[0].Source)
}

func TestAPI_CreateShift_InvalidWindow(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/staff/staff-1/shifts", CreateShiftRequest{
		BranchID: "branch-1", Date: "2024-06-03", Start: "17:00", End: "09:00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_ShiftLifecycle(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/staff/staff-1/shifts", CreateShiftRequest{
		BranchID: "branch-1", Date: "2024-06-03", Start: "09:00", End: "17:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	shiftID := decode[CreateShiftResponse](t, rec).Shift.ID

	rec = doJSON(t, router, http.MethodPost, "/api/shifts/"+shiftID+"/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "in_progress", decode[ShiftDTO](t, rec).Status)

	rec = doJSON(t, router, http.MethodPost, "/api/shifts/"+shiftID+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// completed is terminal
	rec = doJSON(t, router, http.MethodPost, "/api/shifts/"+shiftID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_ShiftNotFound(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/api/shifts/missing/start", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// TIME OFF AND APPROVAL
// =============================================================================

func TestAPI_TimeOffApprovalFlow(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/staff/staff-1/time-off", CreateTimeOffRequest{
		Type: "vacation", From: "2024-06-10", To: "2024-06-12",
		Reason: "family trip", RequestedBy: "staff-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[RequestDTO](t, rec)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "vacation", created.TimeOffType)
	assert.Len(t, created.Candidates, 3)

	rec = doJSON(t, router, http.MethodGet, "/api/requests/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]RequestDTO](t, rec), 1)

	rec = doJSON(t, router, http.MethodPost, "/api/requests/"+created.ID+"/approve", ApproveRequest{
		ApproverID: "manager-1", Note: "enjoy",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	approved := decode[RequestDTO](t, rec)
	assert.Equal(t, "approved", approved.Status)
	assert.Equal(t, "manager-1", approved.ApprovedBy)

	// All three days are now committed time-off entries.
	rec = doJSON(t, router, http.MethodGet, "/api/staff/staff-1/calendar?from=2024-06-10&to=2024-06-12", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]EntryDTO](t, rec)
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, "time_off", e.Source)
	}

	// Deciding a settled request is a conflict.
	rec = doJSON(t, router, http.MethodPost, "/api/requests/"+created.ID+"/reject", RejectRequest{
		ApproverID: "manager-2", Reason: "too late",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_RejectRequiresReason(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/staff/staff-1/time-off", CreateTimeOffRequest{
		Type: "sick", From: "2024-06-10", To: "2024-06-10",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[RequestDTO](t, rec).ID

	rec = doJSON(t, router, http.MethodPost, "/api/requests/"+id+"/reject", RejectRequest{
		ApproverID: "manager-1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_CancelRequest(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/staff/staff-1/time-off", CreateTimeOffRequest{
		Type: "personal", From: "2024-06-10", To: "2024-06-10", RequestedBy: "staff-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[RequestDTO](t, rec).ID

	rec = doJSON(t, router, http.MethodPost, "/api/requests/"+id+"/cancel", CancelRequest{ActorID: "staff-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode[RequestDTO](t, rec).Status)

	// Cancelled requests never reach the calendar.
	rec = doJSON(t, router, http.MethodGet, "/api/staff/staff-1/calendar?from=2024-06-10&to=2024-06-10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]EntryDTO](t, rec))
}

func TestAPI_RequestNotFound(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/api/requests/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// PT AVAILABILITY AND THE OVERRIDE GATE
// =============================================================================

func TestAPI_ApproveOverrideGate(t *testing.T) {
	router := newTestRouter(t)

	// GIVEN a committed shift 09:00-17:00
	rec := doJSON(t, router, http.MethodPost, "/api/staff/trainer-1/shifts", CreateShiftRequest{
		BranchID: "branch-1", Date: "2024-06-03", Start: "09:00", End: "17:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// AND a pending PT slot 16:00-18:00 overlapping its tail
	rec = doJSON(t, router, http.MethodPost, "/api/staff/trainer-1/pt-availability", CreatePTAvailabilityRequest{
		Slots: []PTSlotDTO{
			{Date: "2024-06-03", Start: "16:00", End: "18:00", MaxCapacity: 4},
		},
		RequestedBy: "trainer-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[RequestDTO](t, rec)
	assert.Equal(t, "pending_approval", created.Status)
	assert.Equal(t, 1, created.Report.Count)
	assert.Equal(t, []int{4}, created.SlotCapacities)

	// WHEN approving without the override flag
	rec = doJSON(t, router, http.MethodPost, "/api/requests/"+created.ID+"/approve", ApproveRequest{
		ApproverID: "manager-1",
	})

	// THEN the gate refuses with the report attached
	require.Equal(t, http.StatusConflict, rec.Code)
	refusal := decode[ErrorResponse](t, rec)
	require.NotNil(t, refusal.Report)
	assert.Equal(t, 1, refusal.Report.Count)

	// WHEN approving with override=true
	rec = doJSON(t, router, http.MethodPost, "/api/requests/"+created.ID+"/approve", ApproveRequest{
		ApproverID: "manager-1", Note: "peak demand", Override: true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN shift and slot coexist on the calendar
	rec = doJSON(t, router, http.MethodGet, "/api/staff/trainer-1/calendar?from=2024-06-03&to=2024-06-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]EntryDTO](t, rec), 2)
}

func TestAPI_CheckConflicts(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/staff/staff-1/shifts", CreateShiftRequest{
		BranchID: "branch-1", Date: "2024-06-03", Start: "09:00", End: "17:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/staff/staff-1/conflicts/check", CheckConflictsRequest{
		Intervals: []IntervalDTO{
			{Date: "2024-06-03", Start: "16:00", End: "18:00"},
			{Date: "2024-06-04", Start: "09:00", End: "17:00"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[ConflictReportDTO](t, rec)
	assert.True(t, report.HasConflicts)
	assert.Equal(t, 1, report.Count)
	assert.Equal(t, 0, report.Conflicts[0].CandidateIndex)
}

// =============================================================================
// TEMPLATES
// =============================================================================

func TestAPI_TemplateGeneration(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/templates/", TemplateDTO{
		StaffID:     "staff-1",
		BranchID:    "branch-1",
		Weekdays:    []int{1}, // Monday
		StartTime:   "09:00",
		EndTime:     "17:00",
		AdvanceDays: 7,
		EndDate:     "2024-06-30",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tpl := decode[TemplateDTO](t, rec)
	require.NotEmpty(t, tpl.ID)

	rec = doJSON(t, router, http.MethodPost, "/api/templates/"+tpl.ID+"/generate", GenerateShiftsRequest{
		Today: "2024-06-03", ActorID: "manager-1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[GenerationResultDTO](t, rec)
	assert.Len(t, result.Created, 2)
	assert.Empty(t, result.Skipped)

	// Repeated generation over the same horizon creates nothing new.
	rec = doJSON(t, router, http.MethodPost, "/api/templates/"+tpl.ID+"/generate", GenerateShiftsRequest{
		Today: "2024-06-03", ActorID: "manager-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	result = decode[GenerationResultDTO](t, rec)
	assert.Empty(t, result.Created)
	assert.Len(t, result.Skipped, 2)
}

func TestAPI_GenerateUnknownTemplate(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/api/templates/missing/generate", GenerateShiftsRequest{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// SUMMARY
// =============================================================================

func TestAPI_StaffSummary(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/staff/staff-1/shifts", CreateShiftRequest{
		BranchID: "branch-1", Date: "2024-06-03", Start: "09:00", End: "17:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/staff/staff-1/summary?from=2024-06-01&to=2024-06-30", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[StaffSummaryDTO](t, rec)
	assert.Equal(t, "8", summary.ShiftHours)
	assert.Equal(t, "8", summary.TotalHours)
}
