package manager

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nahidn4p/segdl/internal/store"
	"github.com/nahidn4p/segdl/internal/types"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "tasks.db")
	st, err := store.Open(dbPath, "")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	runtime := &types.RuntimeConfig{InsecureSkipVerify: false}
	return New(st, runtime, t.TempDir())
}

func TestAdd_PersistsAndRegistersTask(t *testing.T) {
	mgr := newTestManager(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	task, err := mgr.Add(srv.URL+"/file.bin", t.TempDir(), AddOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, task.ID)
	require.Equal(t, types.StatusQueued, task.Status)

	got, err := mgr.Get(task.ID)
	require.NoError(t, err)
	require.Equal(t, task.ID, got.ID)
}

func TestAdd_RejectsDuplicateURL(t *testing.T) {
	mgr := newTestManager(t)
	folder := t.TempDir()

	_, err := mgr.Add("https://example.com/a.bin", folder, AddOptions{})
	require.NoError(t, err)

	_, err = mgr.Add("https://example.com/a.bin", folder, AddOptions{})
	require.ErrorIs(t, err, types.ErrDuplicateTask)
}

func TestAddOptions_AutoStart_CompletesDownload(t *testing.T) {
	mgr := newTestManager(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	destDir := t.TempDir()
	task, err := mgr.Add(srv.URL+"/file.bin", destDir, AddOptions{Filename: "file.bin", AutoStart: true})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, _ := mgr.Get(task.ID)
		return got != nil && got.Status == types.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	data, err := os.ReadFile(filepath.Join(destDir, "file.bin"))
	require.NoError(t, err)
	require.Equal(t, "hello world", string(data))
}

func TestPause_StopsInFlightDownload(t *testing.T) {
	mgr := newTestManager(t)

	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000000")
		flusher, _ := w.(http.Flusher)
		for i := 0; i < 1000; i++ {
			w.Write(make([]byte, 1000))
			if flusher != nil {
				flusher.Flush()
			}
			select {
			case <-block:
				return
			case <-time.After(5 * time.Millisecond):
			}
		}
	}))
	defer srv.Close()
	defer close(block)

	destDir := t.TempDir()
	task, err := mgr.Add(srv.URL+"/big.bin", destDir, AddOptions{Filename: "big.bin", AutoStart: true})
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, mgr.Pause(task.ID))

	require.Eventually(t, func() bool {
		got, _ := mgr.Get(task.ID)
		return got != nil && got.Status == types.StatusPaused
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRemove_DeletesFromStoreAndRegistry(t *testing.T) {
	mgr := newTestManager(t)

	task, err := mgr.Add("https://example.com/a.bin", t.TempDir(), AddOptions{})
	require.NoError(t, err)

	require.NoError(t, mgr.Remove(task.ID))

	_, err = mgr.Get(task.ID)
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestEnqueueFromRequest_Media_DerivesFilenameFromTitle(t *testing.T) {
	mgr := newTestManager(t)

	req := types.Request{
		Kind: types.RequestKindMedia,
		Media: &types.MediaRequest{
			ManifestURL: "https://example.com/stream/index.m3u8",
			Title:       "My Cool Video",
		},
	}

	task, err := mgr.EnqueueFromRequest(req, t.TempDir())
	require.NoError(t, err)
	require.True(t, task.IsMedia())
	require.Equal(t, "My_Cool_Video.ts", task.Filename)
}
