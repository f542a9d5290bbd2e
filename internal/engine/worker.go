// Package engine implements the segmented file downloader: SegmentWorker
// and FileSegmentedDownloader from SPEC_FULL.md §4.3/§4.4.
package engine

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/nahidn4p/segdl/internal/logging"
	"github.com/nahidn4p/segdl/internal/types"
)

// segmentRange is a closed byte interval [Start, End] assigned to one
// SegmentWorker.
type segmentRange struct {
	Index int
	Start int64
	End   int64
}

func (r segmentRange) size() int64 { return r.End - r.Start + 1 }

// segmentWorker downloads one segmentRange to a part file, reporting
// progress via an atomic byte counter shared with the owning downloader.
type segmentWorker struct {
	client    *http.Client
	runtime   *types.RuntimeConfig
	url       string
	headers   map[string]string
	partPath  string
	rng       segmentRange
	totalDone *int64 // shared downloaded counter, atomic
}

// run downloads the segment, honoring ctx cancellation between chunks.
// It returns types.ErrPaused if cancelled mid-transfer.
func (w *segmentWorker) run(ctx context.Context) error {
	if info, err := os.Stat(w.partPath); err == nil {
		if info.Size() == w.rng.size() {
			atomic.AddInt64(w.totalDone, info.Size())
			return nil
		}
		// Partial/mismatched part file: overwrite from scratch.
		_ = os.Remove(w.partPath)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.url, nil)
	if err != nil {
		return err
	}
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", w.rng.Start, w.rng.End))

	resp, err := w.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return types.ErrPaused
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("%w: segment %d got status %d", types.ErrUnexpectedStatus, w.rng.Index, resp.StatusCode)
	}

	file, err := os.OpenFile(w.partPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	buf := make([]byte, w.runtime.GetWorkerBufferSize())
	for {
		select {
		case <-ctx.Done():
			return types.ErrPaused
		default:
		}

		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := file.Write(buf[:n]); werr != nil {
				return werr
			}
			atomic.AddInt64(w.totalDone, int64(n))
		}
		if rerr != nil {
			if rerr.Error() == "EOF" {
				return nil
			}
			if ctx.Err() != nil {
				return types.ErrPaused
			}
			return rerr
		}
	}
}

func logWorkerStart(rng segmentRange) {
	logging.Debug("segment worker %d: [%d-%d] (%d bytes)", rng.Index, rng.Start, rng.End, rng.size())
}
