package hls

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nahidn4p/segdl/internal/types"
)

func TestPipeline_Run_MediaPlaylist(t *testing.T) {
	segments := []string{"hello ", "world", "!"}

	mux := http.NewServeMux()
	mux.HandleFunc("/index.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXTINF:1,\nseg0.ts\n#EXTINF:1,\nseg1.ts\n#EXTINF:1,\nseg2.ts\n#EXT-X-ENDLIST\n")
	})
	for i, s := range segments {
		body := s
		mux.HandleFunc(fmt.Sprintf("/seg%d.ts", i), func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, body)
		})
	}
	srv := httptest.NewServer(mux)
	defer srv.Close()

	task := &types.Task{
		Media: &types.MediaInfo{ManifestURL: srv.URL + "/index.m3u8"},
	}

	destDir := t.TempDir()
	dest := filepath.Join(destDir, "video.ts")

	p := NewPipeline(srv.Client())
	err := p.Run(context.Background(), task, dest, nil)
	require.NoError(t, err)
	require.Equal(t, 3, task.MediaState.SegmentsDone)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "hello world!", string(data))

	_, err = os.Stat(dest + ".downloading")
	require.True(t, os.IsNotExist(err))
}

func TestPipeline_Run_MasterPicksHighestBandwidth(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/master.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=100\nlow.m3u8\n#EXT-X-STREAM-INF:BANDWIDTH=900\nhigh.m3u8\n")
	})
	mux.HandleFunc("/low.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXTINF:1,\nlow0.ts\n")
	})
	mux.HandleFunc("/high.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXTINF:1,\nhigh0.ts\n")
	})
	mux.HandleFunc("/high0.ts", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "high-quality-bytes")
	})
	mux.HandleFunc("/low0.ts", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "low-quality-bytes")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	task := &types.Task{
		Media: &types.MediaInfo{ManifestURL: srv.URL + "/master.m3u8"},
	}
	destDir := t.TempDir()
	dest := filepath.Join(destDir, "video.ts")

	p := NewPipeline(srv.Client())
	err := p.Run(context.Background(), task, dest, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "high-quality-bytes", string(data))
}
