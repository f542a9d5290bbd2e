package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nahidn4p/segdl/internal/types"
)

func ptr(t time.Time) *time.Time { return &t }

func TestTick_BeforeStart_PausesAndMarksScheduled(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	task := &types.Task{
		Status:         types.StatusDownloading,
		ScheduledStart: ptr(base),
	}

	action := Tick(task, base.Add(-1*time.Second))
	require.Equal(t, ActionPause, action)
	require.Equal(t, types.StatusScheduled, task.Status)
}

func TestTick_WithinWindow_Starts(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	task := &types.Task{
		Status:         types.StatusScheduled,
		ScheduledStart: ptr(base),
		ScheduledEnd:   ptr(base.Add(60 * time.Second)),
	}

	action := Tick(task, base.Add(1*time.Second))
	require.Equal(t, ActionStart, action)
	require.Equal(t, types.StatusDownloading, task.Status)
}

func TestTick_RepeatWithEnd_RollsWindowForwardAfterEnd(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	task := &types.Task{
		Status:         types.StatusScheduled,
		ScheduledStart: ptr(base),
		ScheduledEnd:   ptr(base.Add(60 * time.Second)),
		RepeatInterval: 3600,
	}

	// At T-1: scheduled.
	action := Tick(task, base.Add(-1*time.Second))
	require.Equal(t, ActionNone, action)
	require.Equal(t, types.StatusScheduled, task.Status)

	// At T+1: downloading.
	action = Tick(task, base.Add(1*time.Second))
	require.Equal(t, ActionStart, action)
	require.Equal(t, types.StatusDownloading, task.Status)

	// At T+61: window closed, repeat rolls start/end forward by 3600s.
	action = Tick(task, base.Add(61*time.Second))
	require.Equal(t, ActionPause, action)
	require.Equal(t, types.StatusScheduled, task.Status)
	require.WithinDuration(t, base.Add(3600*time.Second), *task.ScheduledStart, time.Second)
	require.WithinDuration(t, base.Add(3660*time.Second), *task.ScheduledEnd, time.Second)
}

func TestTick_RepeatWithoutEnd_SchedulesNextStartOnEntry(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	task := &types.Task{
		Status:         types.StatusQueued,
		ScheduledStart: ptr(base),
		RepeatInterval: 3600,
	}

	action := Tick(task, base.Add(1*time.Second))
	require.Equal(t, ActionStart, action)
	require.Equal(t, types.StatusDownloading, task.Status)
	require.WithinDuration(t, base.Add(3600*time.Second), *task.ScheduledStart, time.Second)
}

func TestTick_AfterEndNoRepeat_ClearsScheduleAndPauses(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	task := &types.Task{
		Status:         types.StatusDownloading,
		ScheduledStart: ptr(base),
		ScheduledEnd:   ptr(base.Add(60 * time.Second)),
	}

	action := Tick(task, base.Add(61*time.Second))
	require.Equal(t, ActionPause, action)
	require.Equal(t, types.StatusPaused, task.Status)
	require.Nil(t, task.ScheduledStart)
	require.Nil(t, task.ScheduledEnd)
}

func TestTick_NoSchedule_RevertsScheduledToQueued(t *testing.T) {
	task := &types.Task{Status: types.StatusScheduled}
	action := Tick(task, time.Now())
	require.Equal(t, ActionNone, action)
	require.Equal(t, types.StatusQueued, task.Status)
}

func TestTick_ClearsErrorOnReEntry(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	task := &types.Task{
		Status:         types.StatusError,
		Error:          "connection reset",
		ScheduledStart: ptr(base),
		ScheduledEnd:   ptr(base.Add(60 * time.Second)),
	}

	action := Tick(task, base.Add(1*time.Second))
	require.Equal(t, ActionStart, action)
	require.Equal(t, types.StatusDownloading, task.Status)
	require.Empty(t, task.Error)
}
