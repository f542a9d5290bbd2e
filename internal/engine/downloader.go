package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nahidn4p/segdl/internal/httpclient"
	"github.com/nahidn4p/segdl/internal/types"
)

// ProgressFunc is invoked periodically while a task runs, surfacing bytes
// downloaded and current speed for the caller to persist/report.
type ProgressFunc func(downloaded int64, speedBps float64)

// Downloader orchestrates a single-file segmented or single-stream
// transfer: FileSegmentedDownloader in SPEC_FULL.md §4.4.
type Downloader struct {
	Client  *http.Client
	Runtime *types.RuntimeConfig
}

// NewDownloader builds a Downloader with a tuned HTTP client for the given
// runtime tuning.
func NewDownloader(runtime *types.RuntimeConfig) *Downloader {
	return &Downloader{
		Client:  httpclient.New(runtime),
		Runtime: runtime,
	}
}

func partsDir(task *types.Task) string {
	return filepath.Join(task.TempRoot, task.Filename+".parts")
}

func destPath(task *types.Task) string {
	return filepath.Join(task.DestFolder, task.Filename)
}

// PartsDir returns the directory holding task's in-progress part files,
// exported for callers (TaskManager.Remove) that need to clean it up
// without re-deriving the naming convention.
func PartsDir(task *types.Task) string { return partsDir(task) }

// DestPath returns the final destination path for task's completed file.
func DestPath(task *types.Task) string { return destPath(task) }

func partPath(task *types.Task, index int) string {
	return filepath.Join(partsDir(task), fmt.Sprintf("part_%d.tmp", index))
}

// RecomputeDownloaded sums the size of any existing part files, so a task
// reloaded from the store reports accurate progress before a run starts
// (SPEC_FULL.md §4.4 step 1).
func RecomputeDownloaded(task *types.Task) int64 {
	entries, err := os.ReadDir(partsDir(task))
	if err != nil {
		return 0
	}
	var total int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if info, err := e.Info(); err == nil {
			total += info.Size()
		}
	}
	return total
}

// Run executes one attempt at downloading task, blocking until it
// completes, is cancelled via ctx, or fails. The task's Downloaded/
// TotalSize fields are mutated in place; callers persist the result.
func (d *Downloader) Run(ctx context.Context, task *types.Task, headers map[string]string, onProgress ProgressFunc) error {
	if err := os.MkdirAll(task.DestFolder, 0o755); err != nil {
		return fmt.Errorf("create dest folder: %w", err)
	}

	task.Downloaded = RecomputeDownloaded(task)

	probeResult, err := httpclient.Probe(ctx, d.Client, task.URL, headers, d.Runtime)
	if err != nil {
		if ctx.Err() != nil {
			return types.ErrPaused
		}
		return err
	}

	reconcileTotalSize(task, probeResult.TotalSize)

	if !probeResult.SupportsRange || task.TotalSize == 0 {
		return d.runSingleStream(ctx, task, headers, onProgress)
	}
	return d.runSegmented(ctx, task, headers, onProgress)
}

// reconcileTotalSize keeps the larger of a prior known size and a freshly
// probed one (SPEC_FULL.md §4.4 step 3).
func reconcileTotalSize(task *types.Task, probed int64) {
	switch {
	case task.TotalSize > 0 && probed > 0:
		if probed > task.TotalSize {
			task.TotalSize = probed
		}
	case probed > 0:
		task.TotalSize = probed
	}
}

// runSingleStream handles unknown-size or no-range origins. Every fresh
// run truncates the destination first, removing the original's
// append-mode double-write hazard (SPEC_FULL.md §9, §4.4 step 4).
func (d *Downloader) runSingleStream(ctx context.Context, task *types.Task, headers map[string]string, onProgress ProgressFunc) error {
	dest := destPath(task)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.URL, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return types.ErrPaused
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", types.ErrUnexpectedStatus, resp.StatusCode)
	}

	file, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	task.Downloaded = 0
	buf := make([]byte, d.Runtime.GetWorkerBufferSize())
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	lastBytes := int64(0)

	for {
		select {
		case <-ctx.Done():
			return types.ErrPaused
		case <-ticker.C:
			speed := float64(task.Downloaded-lastBytes) / 0.5
			lastBytes = task.Downloaded
			if onProgress != nil {
				onProgress(task.Downloaded, speed)
			}
		default:
		}

		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := file.Write(buf[:n]); werr != nil {
				return werr
			}
			task.Downloaded += int64(n)
		}
		if rerr != nil {
			if rerr == io.EOF {
				if onProgress != nil {
					onProgress(task.Downloaded, 0)
				}
				return nil
			}
			if ctx.Err() != nil {
				return types.ErrPaused
			}
			return rerr
		}
	}
}

// runSegmented handles the static N-way part-file partition
// (SPEC_FULL.md §4.4 steps 5-8).
func (d *Downloader) runSegmented(ctx context.Context, task *types.Task, headers map[string]string, onProgress ProgressFunc) error {
	if err := os.MkdirAll(partsDir(task), 0o755); err != nil {
		return fmt.Errorf("create parts dir: %w", err)
	}

	threads := task.Threads
	if threads < 1 {
		threads = 1
	}
	partSize := (task.TotalSize + int64(threads) - 1) / int64(threads)

	ranges := make([]segmentRange, 0, threads)
	for i := 0; i < threads; i++ {
		start := int64(i) * partSize
		if start >= task.TotalSize {
			break
		}
		end := start + partSize - 1
		if end >= task.TotalSize {
			end = task.TotalSize - 1
		}
		ranges = append(ranges, segmentRange{Index: i, Start: start, End: end})
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var downloaded int64
	errCh := make(chan error, len(ranges))
	var wg sync.WaitGroup
	for _, rng := range ranges {
		rng := rng
		w := &segmentWorker{
			client:    d.Client,
			runtime:   d.Runtime,
			url:       task.URL,
			headers:   headers,
			partPath:  partPath(task, rng.Index),
			rng:       rng,
			totalDone: &downloaded,
		}
		wg.Add(1)
		logWorkerStart(rng)
		go func() {
			defer wg.Done()
			errCh <- w.run(runCtx)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	lastBytes := atomic.LoadInt64(&downloaded)

loop:
	for {
		select {
		case <-ctx.Done():
			cancel()
			<-done
			task.Downloaded = atomic.LoadInt64(&downloaded)
			return types.ErrPaused
		case <-ticker.C:
			cur := atomic.LoadInt64(&downloaded)
			speed := float64(cur-lastBytes) / 0.5
			lastBytes = cur
			task.Downloaded = cur
			if onProgress != nil {
				onProgress(cur, speed)
			}
		case <-done:
			break loop
		}
	}

	close(errCh)
	for err := range errCh {
		if err != nil && err != types.ErrPaused {
			return err
		}
		if err == types.ErrPaused {
			task.Downloaded = atomic.LoadInt64(&downloaded)
			return types.ErrPaused
		}
	}

	task.Downloaded = atomic.LoadInt64(&downloaded)
	if err := mergeParts(task, ranges); err != nil {
		return err
	}
	if onProgress != nil {
		onProgress(task.Downloaded, 0)
	}
	return nil
}
