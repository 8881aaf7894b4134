package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fitgrid/roster-engine/schedule"
	"github.com/fitgrid/roster-engine/store/sqlite"
)

func TestGenerationScheduler_RunNow(t *testing.T) {
	ctx := context.Background()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	h := NewHandler(st, zap.NewNop())

	now := time.Now().UTC()
	everyday := []time.Weekday{
		time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
		time.Thursday, time.Friday, time.Saturday,
	}
	require.NoError(t, st.SaveTemplate(ctx, &schedule.ShiftTemplate{
		ID: "tpl-auto", StaffID: "staff-1", BranchID: "branch-1",
		Weekdays: everyday, StartTime: "09:00", EndTime: "17:00",
		AutoGenerate: true, AdvanceDays: 3, EndDate: schedule.Today().AddDays(30),
		CreatedAt: now, UpdatedAt: now,
	}))
	// Not auto-generate: the scheduler must leave it alone.
	require.NoError(t, st.SaveTemplate(ctx, &schedule.ShiftTemplate{
		ID: "tpl-manual", StaffID: "staff-2", BranchID: "branch-1",
		Weekdays: everyday, StartTime: "09:00", EndTime: "17:00",
		AdvanceDays: 3, EndDate: schedule.Today().AddDays(30),
		CreatedAt: now, UpdatedAt: now,
	}))

	gs := NewGenerationScheduler(h.Service, st, zap.NewNop())
	gs.RunNow()

	// Every day in [today, today+3] gets a shift.
	shifts, err := st.ListShiftsByStaff(ctx, "staff-1")
	require.NoError(t, err)
	assert.Len(t, shifts, 4)

	untouched, err := st.ListShiftsByStaff(ctx, "staff-2")
	require.NoError(t, err)
	assert.Empty(t, untouched)

	// A second pass skips every already-booked date.
	gs.RunNow()
	shifts, err = st.ListShiftsByStaff(ctx, "staff-1")
	require.NoError(t, err)
	assert.Len(t, shifts, 4)
}

func TestGenerationScheduler_StartStop(t *testing.T) {
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	gs := NewGenerationScheduler(NewHandler(st, zap.NewNop()).Service, st, zap.NewNop())
	gs.CheckInterval = time.Hour

	gs.Start()
	gs.Stop()
}
