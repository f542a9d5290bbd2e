package store

import (
	"encoding/json"
	"os"

	"github.com/nahidn4p/segdl/internal/types"
)

// legacyTask mirrors the field names DownloadTask.to_dict produced in the
// JSON-backed predecessor of this store (original_source/downloader.py).
type legacyTask struct {
	URL             string            `json:"url"`
	DestFolder      string            `json:"dest_folder"`
	Threads         int               `json:"threads"`
	Filename        string            `json:"filename"`
	TotalSize       int64             `json:"total_size"`
	Downloaded      int64             `json:"downloaded"`
	Status          string            `json:"status"`
	Error           string            `json:"error"`
	TempRoot        string            `json:"temp_root"`
	ScheduledStart  *string           `json:"scheduled_start"`
	ScheduledEnd    *string           `json:"scheduled_end"`
	RepeatInterval  int64             `json:"repeat_interval"`
	MediaInfo       *types.MediaInfo  `json:"media_info"`
	MediaState      *types.MediaState `json:"media_state"`
}

// migrateFromJSON imports a pre-SQLite JSON task snapshot, but only when
// the store is currently empty - mirroring
// original_source/main.py:migrate_from_json, which treats any existing
// row as evidence migration already ran.
func (s *TaskStore) migrateFromJSON(path string) error {
	if path == "" || !fileExists(path) {
		return nil
	}

	existing, err := s.LoadAll()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var legacyTasks []legacyTask
	if err := json.Unmarshal(raw, &legacyTasks); err != nil {
		return err
	}

	for _, lt := range legacyTasks {
		if lt.Status == string(types.StatusCompleted) {
			continue
		}
		task := &types.Task{
			URL:            lt.URL,
			DestFolder:     lt.DestFolder,
			Filename:       lt.Filename,
			Threads:        lt.Threads,
			TotalSize:      lt.TotalSize,
			Downloaded:     lt.Downloaded,
			Status:         types.Status(lt.Status),
			Error:          lt.Error,
			TempRoot:       lt.TempRoot,
			RepeatInterval: lt.RepeatInterval,
			Media:          lt.MediaInfo,
			MediaState:     lt.MediaState,
		}
		if task.Status == "" {
			task.Status = types.StatusPaused
		}
		if task.Threads <= 0 {
			task.Threads = 4
		}
		if err := s.Upsert(task); err != nil {
			return err
		}
	}
	return nil
}
