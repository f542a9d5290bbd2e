package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nahidn4p/segdl/internal/types"
)

func openTestStore(t *testing.T) *TaskStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "tasks.db")
	s, err := Open(dbPath, "")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsert_AssignsIDAndTimestamps(t *testing.T) {
	s := openTestStore(t)

	task := &types.Task{URL: "https://example.com/a.bin", DestFolder: "/tmp/dl", Filename: "a.bin", Threads: 4}
	require.NoError(t, s.Upsert(task))
	require.NotEmpty(t, task.ID)
	require.False(t, task.CreatedAt.IsZero())
	require.False(t, task.UpdatedAt.IsZero())
}

func TestUpsert_IsKeyedByURLAndDestFolder(t *testing.T) {
	s := openTestStore(t)

	task := &types.Task{URL: "https://example.com/a.bin", DestFolder: "/tmp/dl", Filename: "a.bin", Threads: 4}
	require.NoError(t, s.Upsert(task))
	firstID := task.ID

	again := &types.Task{URL: "https://example.com/a.bin", DestFolder: "/tmp/dl", Filename: "a.bin", Threads: 8, Downloaded: 100}
	require.NoError(t, s.Upsert(again))

	all, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, firstID, all[0].ID)
	require.Equal(t, 8, all[0].Threads)
	require.Equal(t, int64(100), all[0].Downloaded)
}

func TestLoadUnfinished_ExcludesCompleted(t *testing.T) {
	s := openTestStore(t)

	queued := &types.Task{URL: "https://example.com/a.bin", DestFolder: "/a", Filename: "a.bin", Status: types.StatusQueued}
	done := &types.Task{URL: "https://example.com/b.bin", DestFolder: "/b", Filename: "b.bin", Status: types.StatusCompleted}
	require.NoError(t, s.Upsert(queued))
	require.NoError(t, s.Upsert(done))

	unfinished, err := s.LoadUnfinished()
	require.NoError(t, err)
	require.Len(t, unfinished, 1)
	require.Equal(t, "https://example.com/a.bin", unfinished[0].URL)
}

func TestUpsert_RoundTripsMediaAndHeaders(t *testing.T) {
	s := openTestStore(t)

	task := &types.Task{
		URL:        "https://example.com/index.m3u8",
		DestFolder: "/videos",
		Filename:   "video.ts",
		Media:      &types.MediaInfo{MediaType: types.MediaTypeHLS, ManifestURL: "https://example.com/index.m3u8"},
		MediaState: &types.MediaState{SegmentsTotal: 10, SegmentsDone: 3},
		Headers:    map[string]string{"Authorization": "Bearer xyz"},
	}
	require.NoError(t, s.Upsert(task))

	all, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, types.MediaTypeHLS, all[0].Media.MediaType)
	require.Equal(t, 3, all[0].MediaState.SegmentsDone)
	require.Equal(t, "Bearer xyz", all[0].Headers["Authorization"])
}

func TestDelete_RemovesTask(t *testing.T) {
	s := openTestStore(t)

	task := &types.Task{URL: "https://example.com/a.bin", DestFolder: "/a", Filename: "a.bin"}
	require.NoError(t, s.Upsert(task))
	require.NoError(t, s.Delete(task.ID))

	all, err := s.LoadAll()
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestOpen_MigratesLegacyJSONOnlyWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "tasks.json")

	legacy := []map[string]any{
		{"url": "https://example.com/a.bin", "dest_folder": "/a", "filename": "a.bin", "status": "paused", "threads": 4},
		{"url": "https://example.com/done.bin", "dest_folder": "/a", "filename": "done.bin", "status": "completed", "threads": 4},
	}
	data, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(jsonPath, data, 0o644))

	dbPath := filepath.Join(dir, "tasks.db")
	s, err := Open(dbPath, jsonPath)
	require.NoError(t, err)
	defer s.Close()

	all, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "https://example.com/a.bin", all[0].URL)
}
