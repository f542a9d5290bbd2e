package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nahidn4p/segdl/internal/types"
)

func newTask(destDir, tempRoot, url string, threads int) *types.Task {
	return &types.Task{
		ID:         "task-1",
		URL:        url,
		DestFolder: destDir,
		Filename:   "file.bin",
		Threads:    threads,
		TempRoot:   tempRoot,
		Status:     types.StatusDownloading,
	}
}

func TestRunSegmented_Success(t *testing.T) {
	body := strings.Repeat("A", 1_000_000)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "file.bin", time.Time{}, strings.NewReader(body))
	}))
	defer srv.Close()

	destDir := t.TempDir()
	tempRoot := t.TempDir()
	task := newTask(destDir, tempRoot, srv.URL, 4)

	d := NewDownloader(&types.RuntimeConfig{})
	err := d.Run(context.Background(), task, nil, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(destDir, "file.bin"))
	require.NoError(t, err)
	require.Equal(t, body, string(data))

	entries, statErr := os.ReadDir(partsDir(task))
	require.True(t, os.IsNotExist(statErr) || len(entries) == 0)
}

func TestRunSegmented_ResumeSkipsCompletedParts(t *testing.T) {
	body := strings.Repeat("B", 400_000)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "file.bin", time.Time{}, strings.NewReader(body))
	}))
	defer srv.Close()

	destDir := t.TempDir()
	tempRoot := t.TempDir()
	task := newTask(destDir, tempRoot, srv.URL, 2)

	require.NoError(t, os.MkdirAll(partsDir(task), 0o755))
	half := int64(len(body)) / 2
	require.NoError(t, os.WriteFile(partPath(task, 0), []byte(body[:half]), 0o644))

	d := NewDownloader(&types.RuntimeConfig{})
	err := d.Run(context.Background(), task, nil, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(destDir, "file.bin"))
	require.NoError(t, err)
	require.Equal(t, body, string(data))
	require.Equal(t, int64(len(body)), task.Downloaded)
}

func TestRunSingleStream_UnknownSize(t *testing.T) {
	body := strings.Repeat("C", 50_000)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Del("Content-Length")
		w.Header().Set("Transfer-Encoding", "chunked")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	destDir := t.TempDir()
	tempRoot := t.TempDir()
	task := newTask(destDir, tempRoot, srv.URL, 4)

	d := NewDownloader(&types.RuntimeConfig{})
	err := d.Run(context.Background(), task, nil, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(destDir, "file.bin"))
	require.NoError(t, err)
	require.Equal(t, body, string(data))
}

func TestPause_PreservesPartFiles(t *testing.T) {
	body := strings.Repeat("D", 4_000_000)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Accept-Ranges", "bytes")
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", fmt.Sprintf("%d", len(body)))
			w.WriteHeader(http.StatusOK)
			return
		}
		flusher, _ := w.(http.Flusher)
		data := []byte(body)
		w.WriteHeader(http.StatusOK)
		for i := 0; i < len(data); i += 4096 {
			end := i + 4096
			if end > len(data) {
				end = len(data)
			}
			_, _ = w.Write(data[i:end])
			if flusher != nil {
				flusher.Flush()
			}
			time.Sleep(2 * time.Millisecond)
		}
	}))
	defer srv.Close()

	destDir := t.TempDir()
	tempRoot := t.TempDir()
	task := newTask(destDir, tempRoot, srv.URL, 1)
	task.TotalSize = int64(len(body))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	d := NewDownloader(&types.RuntimeConfig{})
	err := d.Run(ctx, task, nil, nil)
	require.ErrorIs(t, err, types.ErrPaused)

	entries, statErr := os.ReadDir(partsDir(task))
	require.NoError(t, statErr)
	require.NotEmpty(t, entries)
}
