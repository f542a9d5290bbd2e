package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nahidn4p/segdl/internal/types"
)

// timeLayout is used for every TEXT-typed timestamp column, always in
// UTC. LoadAll/LoadUnfinished order by this text: values from different
// seconds sort chronologically, but RFC3339Nano drops trailing zeros of
// the fraction, so two values within the same second can sort out of
// order.
const timeLayout = time.RFC3339Nano

// TaskStore is the durable SQLite-backed task store: TaskStore in
// SPEC_FULL.md §4.7.
type TaskStore struct {
	db *DB
}

// Open opens the task store at path and imports a legacy JSON snapshot
// at legacyJSONPath on first run, if the database is empty and the file
// exists (original_source/main.py:migrate_from_json).
func Open(path, legacyJSONPath string) (*TaskStore, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	s := &TaskStore{db: db}
	if err := s.migrateFromJSON(legacyJSONPath); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *TaskStore) Close() error { return s.db.Close() }

// Upsert inserts or updates task, keyed by (url, dest_folder). A fresh
// task with an empty ID is assigned a new UUID. CreatedAt is preserved on
// update; UpdatedAt always advances to now.
func (s *TaskStore) Upsert(task *types.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	mediaJSON, err := marshalOptional(task.Media)
	if err != nil {
		return fmt.Errorf("marshal media: %w", err)
	}
	mediaStateJSON, err := marshalOptional(task.MediaState)
	if err != nil {
		return fmt.Errorf("marshal media state: %w", err)
	}
	headersJSON, err := marshalOptional(task.Headers)
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}

	return s.db.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO downloads (
				id, url, dest_folder, filename, threads, total_size, downloaded,
				status, error, temp_root, media_json, media_state_json, headers_json,
				scheduled_start, scheduled_end, repeat_interval, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(url, dest_folder) DO UPDATE SET
				filename=excluded.filename,
				threads=excluded.threads,
				total_size=excluded.total_size,
				downloaded=excluded.downloaded,
				status=excluded.status,
				error=excluded.error,
				temp_root=excluded.temp_root,
				media_json=excluded.media_json,
				media_state_json=excluded.media_state_json,
				headers_json=excluded.headers_json,
				scheduled_start=excluded.scheduled_start,
				scheduled_end=excluded.scheduled_end,
				repeat_interval=excluded.repeat_interval,
				updated_at=excluded.updated_at
		`,
			task.ID, task.URL, task.DestFolder, task.Filename, task.Threads, task.TotalSize, task.Downloaded,
			string(task.Status), task.Error, task.TempRoot, mediaJSON, mediaStateJSON, headersJSON,
			formatTimePtr(task.ScheduledStart), formatTimePtr(task.ScheduledEnd), task.RepeatInterval,
			task.CreatedAt.Format(timeLayout), task.UpdatedAt.Format(timeLayout),
		)
		return err
	})
}

// Delete removes a task by ID. Deleting an unknown ID is not an error -
// callers already hold the authoritative in-memory task list.
func (s *TaskStore) Delete(id string) error {
	_, err := s.db.conn.Exec("DELETE FROM downloads WHERE id = ?", id)
	return err
}

// LoadUnfinished returns every task whose status is not completed,
// newest first (original_source/main.py:load_tasks).
func (s *TaskStore) LoadUnfinished() ([]*types.Task, error) {
	rows, err := s.db.conn.Query(`
		SELECT id, url, dest_folder, filename, threads, total_size, downloaded,
			status, error, temp_root, media_json, media_state_json, headers_json,
			scheduled_start, scheduled_end, repeat_interval, created_at, updated_at
		FROM downloads
		WHERE status != 'completed'
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

// LoadAll returns every task regardless of status, newest first.
func (s *TaskStore) LoadAll() ([]*types.Task, error) {
	rows, err := s.db.conn.Query(`
		SELECT id, url, dest_folder, filename, threads, total_size, downloaded,
			status, error, temp_root, media_json, media_state_json, headers_json,
			scheduled_start, scheduled_end, repeat_interval, created_at, updated_at
		FROM downloads
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func scanTasks(rows *sql.Rows) ([]*types.Task, error) {
	var tasks []*types.Task
	for rows.Next() {
		var t types.Task
		var status string
		var errStr, tempRoot sql.NullString
		var mediaJSON, mediaStateJSON, headersJSON sql.NullString
		var scheduledStart, scheduledEnd sql.NullString
		var createdAt, updatedAt string

		if err := rows.Scan(
			&t.ID, &t.URL, &t.DestFolder, &t.Filename, &t.Threads, &t.TotalSize, &t.Downloaded,
			&status, &errStr, &tempRoot, &mediaJSON, &mediaStateJSON, &headersJSON,
			&scheduledStart, &scheduledEnd, &t.RepeatInterval, &createdAt, &updatedAt,
		); err != nil {
			return nil, err
		}

		t.Status = types.Status(status)
		t.Error = errStr.String
		t.TempRoot = tempRoot.String

		if mediaJSON.Valid && mediaJSON.String != "" {
			t.Media = &types.MediaInfo{}
			if err := json.Unmarshal([]byte(mediaJSON.String), t.Media); err != nil {
				return nil, fmt.Errorf("unmarshal media for task %s: %w", t.ID, err)
			}
		}
		if mediaStateJSON.Valid && mediaStateJSON.String != "" {
			t.MediaState = &types.MediaState{}
			if err := json.Unmarshal([]byte(mediaStateJSON.String), t.MediaState); err != nil {
				return nil, fmt.Errorf("unmarshal media state for task %s: %w", t.ID, err)
			}
		}
		if headersJSON.Valid && headersJSON.String != "" {
			if err := json.Unmarshal([]byte(headersJSON.String), &t.Headers); err != nil {
				return nil, fmt.Errorf("unmarshal headers for task %s: %w", t.ID, err)
			}
		}

		if scheduledStart.Valid && scheduledStart.String != "" {
			parsed, err := time.Parse(timeLayout, scheduledStart.String)
			if err != nil {
				return nil, err
			}
			t.ScheduledStart = &parsed
		}
		if scheduledEnd.Valid && scheduledEnd.String != "" {
			parsed, err := time.Parse(timeLayout, scheduledEnd.String)
			if err != nil {
				return nil, err
			}
			t.ScheduledEnd = &parsed
		}

		created, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, err
		}
		t.CreatedAt = created
		updated, err := time.Parse(timeLayout, updatedAt)
		if err != nil {
			return nil, err
		}
		t.UpdatedAt = updated

		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}

func marshalOptional(v any) (any, error) {
	if isNilInterfaceOrEmptyMap(v) {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func isNilInterfaceOrEmptyMap(v any) bool {
	switch x := v.(type) {
	case *types.MediaInfo:
		return x == nil
	case *types.MediaState:
		return x == nil
	case map[string]string:
		return len(x) == 0
	}
	return false
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(timeLayout)
}
