// Package scheduler implements the time-driven task state machine:
// TaskScheduler in SPEC_FULL.md §4.6. There is no Go teacher file for
// this - it is ported from original_source/main.py's
// _enforce_schedule/_advance_schedule into the surrounding repo's idiom
// (a package function operating on one task at a time, called by the
// TaskManager's tick loop instead of a GUI timer).
package scheduler

import (
	"time"

	"github.com/nahidn4p/segdl/internal/types"
)

// Action tells the caller what side effect a Tick decided on; the
// scheduler itself never starts or pauses goroutines directly so it stays
// independently testable.
type Action int

const (
	ActionNone Action = iota
	ActionStart
	ActionPause
)

// Tick evaluates one task's schedule against now and returns the action
// the caller must perform. It mutates task.Status, ScheduledStart, and
// ScheduledEnd in place per SPEC_FULL.md §4.6.
func Tick(task *types.Task, now time.Time) Action {
	if task.ScheduledStart == nil && task.ScheduledEnd == nil {
		if task.Status == types.StatusScheduled {
			task.Status = types.StatusQueued
		}
		return ActionNone
	}

	advanceRepeats(task, now)

	start := task.ScheduledStart
	end := task.ScheduledEnd

	switch {
	case start != nil && now.Before(*start):
		return beforeStart(task)
	case withinWindow(start, end, now):
		return withinSchedule(task)
	case end != nil && !now.Before(*end):
		return afterEnd(task, now)
	default:
		return ActionNone
	}
}

func withinWindow(start, end *time.Time, now time.Time) bool {
	if start != nil && now.Before(*start) {
		return false
	}
	if end != nil && !now.Before(*end) {
		return false
	}
	return true
}

// advanceRepeats rolls a fully-elapsed repeat window forward until it
// contains or lies ahead of now (SPEC_FULL.md §4.6 step 1).
func advanceRepeats(task *types.Task, now time.Time) {
	if task.RepeatInterval <= 0 || task.ScheduledStart == nil {
		return
	}
	interval := time.Duration(task.RepeatInterval) * time.Second

	windowElapsed := func() bool {
		if task.ScheduledEnd != nil {
			return !now.Before(*task.ScheduledEnd)
		}
		next := task.ScheduledStart.Add(interval)
		return !now.Before(next)
	}

	for windowElapsed() {
		newStart := task.ScheduledStart.Add(interval)
		task.ScheduledStart = &newStart
		if task.ScheduledEnd != nil {
			newEnd := task.ScheduledEnd.Add(interval)
			task.ScheduledEnd = &newEnd
		}
	}
}

func beforeStart(task *types.Task) Action {
	action := ActionNone
	if task.Status == types.StatusDownloading {
		action = ActionPause
	}
	task.Status = types.StatusScheduled
	return action
}

func withinSchedule(task *types.Task) Action {
	switch task.Status {
	case types.StatusQueued, types.StatusPaused, types.StatusScheduled, types.StatusError:
		task.Error = ""
		task.Status = types.StatusDownloading
		if task.RepeatInterval > 0 && task.ScheduledEnd == nil && task.ScheduledStart != nil {
			next := task.ScheduledStart.Add(time.Duration(task.RepeatInterval) * time.Second)
			task.ScheduledStart = &next
		}
		return ActionStart
	default:
		return ActionNone
	}
}

func afterEnd(task *types.Task, now time.Time) Action {
	action := ActionNone
	if task.Status == types.StatusDownloading || task.Status == types.StatusStarting {
		action = ActionPause
	}

	if task.RepeatInterval > 0 {
		interval := time.Duration(task.RepeatInterval) * time.Second
		newStart := task.ScheduledStart.Add(interval)
		task.ScheduledStart = &newStart
		if task.ScheduledEnd != nil {
			newEnd := task.ScheduledEnd.Add(interval)
			task.ScheduledEnd = &newEnd
		}
		task.Status = types.StatusScheduled
		return action
	}

	task.ScheduledStart = nil
	task.ScheduledEnd = nil
	if task.Status != types.StatusCompleted {
		task.Status = types.StatusPaused
	}
	return action
}
