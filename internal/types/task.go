package types

import (
	"errors"
	"time"
)

// Status is the task lifecycle state.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusScheduled   Status = "scheduled"
	StatusStarting    Status = "starting"
	StatusDownloading Status = "downloading"
	StatusPaused      Status = "paused"
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
)

// MediaType identifies a streaming media kind handled by the HLS pipeline.
type MediaType string

const MediaTypeHLS MediaType = "hls"

// MediaInfo carries the extra fields needed to drive the HLS pipeline
// instead of the segmented file downloader.
type MediaInfo struct {
	MediaType  MediaType         `json:"media_type"`
	ManifestURL string           `json:"manifest_url"`
	SourceURL  string            `json:"source_url,omitempty"`
	Title      string            `json:"title,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// MediaState tracks HLS segment progress.
type MediaState struct {
	SegmentsTotal int `json:"segments_total"`
	SegmentsDone  int `json:"segments_done"`
}

// Task is the unit of work tracked by the TaskStore and driven by the
// TaskManager/TaskScheduler. See SPEC_FULL.md §3 for the full invariant
// list; the fields below mirror that data model directly.
type Task struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	DestFolder string `json:"dest_folder"`
	Filename   string `json:"filename"`

	Threads    int    `json:"threads"`
	TotalSize  int64  `json:"total_size"`
	Downloaded int64  `json:"downloaded"`
	Status     Status `json:"status"`
	Error      string `json:"error,omitempty"`
	TempRoot   string `json:"temp_root"`

	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd   *time.Time `json:"scheduled_end,omitempty"`
	RepeatInterval int64      `json:"repeat_interval"`

	Media      *MediaInfo  `json:"media,omitempty"`
	MediaState *MediaState `json:"media_state,omitempty"`

	Headers map[string]string `json:"headers,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// SpeedBps is a transient, in-memory-only field surfaced for progress
	// reporting; it is never persisted.
	SpeedBps float64 `json:"-"`
}

// IsMedia reports whether this task is driven by the HLS pipeline rather
// than the segmented file downloader.
func (t *Task) IsMedia() bool {
	return t.Media != nil
}

// ErrInvalidSchedule is returned when a schedule update violates the
// invariants in SPEC_FULL.md §3 (end <= start, or a repeat interval
// without a start time).
var ErrInvalidSchedule = errors.New("invalid schedule")

// ValidateSchedule checks the (start, end, repeat) triple per spec §3/§7.
func ValidateSchedule(start, end *time.Time, repeatSeconds int64) error {
	if end != nil && start != nil && !end.After(*start) {
		return ErrInvalidSchedule
	}
	if repeatSeconds > 0 && start == nil {
		return ErrInvalidSchedule
	}
	return nil
}
