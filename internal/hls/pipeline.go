package hls

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/nahidn4p/segdl/internal/types"
)

// ProgressFunc is invoked as segments complete.
type ProgressFunc func(segmentsDone, segmentsTotal int, speedBps float64)

// Pipeline downloads an HLS media task: HlsPipeline in SPEC_FULL.md §4.5.
type Pipeline struct {
	Client *http.Client
}

// NewPipeline builds a Pipeline using client for all manifest/segment
// fetches.
func NewPipeline(client *http.Client) *Pipeline {
	return &Pipeline{Client: client}
}

// Run fetches task.Media.ManifestURL, resolves a master to its
// highest-bandwidth variant, and appends every segment body to
// destPath+".downloading", renaming it over destPath on success. Media is
// never resumable: every call restarts from segment 0 (SPEC_FULL.md §9).
func (p *Pipeline) Run(ctx context.Context, task *types.Task, destPath string, onProgress ProgressFunc) error {
	headers := task.Media.Headers

	playlist, err := p.fetchAndParse(ctx, task.Media.ManifestURL, headers)
	if err != nil {
		return err
	}

	if playlist.IsMaster {
		variant := SelectHighestBandwidth(playlist.Variants)
		playlist, err = p.fetchAndParse(ctx, variant.URI, headers)
		if err != nil {
			return err
		}
		if playlist.IsMaster {
			return fmt.Errorf("%w: variant resolved to another master playlist", types.ErrInvalidPlaylist)
		}
	}

	total := len(playlist.Segments)
	task.MediaState = &types.MediaState{SegmentsTotal: total}

	tempPath := destPath + ".downloading"
	out, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	lastTick := time.Now()
	var bytesSinceTick int64

	for i, segURL := range playlist.Segments {
		select {
		case <-ctx.Done():
			out.Close()
			return types.ErrPaused
		default:
		}

		n, err := p.appendSegment(ctx, out, segURL, headers)
		if err != nil {
			out.Close()
			if ctx.Err() != nil {
				return types.ErrPaused
			}
			return fmt.Errorf("segment %d: %w", i, err)
		}
		bytesSinceTick += n
		task.MediaState.SegmentsDone = i + 1

		if elapsed := time.Since(lastTick); elapsed >= 500*time.Millisecond {
			if onProgress != nil {
				onProgress(task.MediaState.SegmentsDone, total, float64(bytesSinceTick)/elapsed.Seconds())
			}
			lastTick = time.Now()
			bytesSinceTick = 0
		}
	}

	if err := out.Close(); err != nil {
		return err
	}
	if onProgress != nil {
		onProgress(total, total, 0)
	}
	return os.Rename(tempPath, destPath)
}

func (p *Pipeline) fetchAndParse(ctx context.Context, manifestURL string, headers map[string]string) (*Playlist, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: manifest fetch returned %d", types.ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return Parse(string(body), manifestURL)
}

func (p *Pipeline) appendSegment(ctx context.Context, out *os.File, segURL string, headers map[string]string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, segURL, nil)
	if err != nil {
		return 0, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: %d", types.ErrUnexpectedStatus, resp.StatusCode)
	}

	var written int64
	buf := make([]byte, 64*types.KB)
	for {
		select {
		case <-ctx.Done():
			return written, types.ErrPaused
		default:
		}

		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
		}
		if rerr != nil {
			if rerr == io.EOF {
				return written, nil
			}
			return written, rerr
		}
	}
}
