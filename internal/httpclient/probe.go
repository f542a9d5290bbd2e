package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nahidn4p/segdl/internal/logging"
	"github.com/nahidn4p/segdl/internal/types"
	"github.com/nahidn4p/segdl/internal/utils"
)

// ProbeResult is the outcome of a RangeProbe (SPEC_FULL.md §4.2).
type ProbeResult struct {
	SupportsRange bool
	TotalSize     int64 // 0 means unknown
	Filename      string
	ContentType   string
}

// Probe determines whether the origin serves byte-range requests and its
// total size. It tries HEAD first (cheapest), then falls back to a GET
// with Range: bytes=0-0, matching original_source/downloader.py's
// _get_file_info order. It makes up to 3 attempts in total, 1s apart,
// matching the teacher's probe.go retry loop. It never
// returns an error for a transport failure alone - callers get
// (false, 0) and proceed with an unknown-size, non-range transfer. The
// only error it returns is ctx's, when ctx is cancelled between attempts.
func Probe(ctx context.Context, client *http.Client, rawurl string, headers map[string]string, runtime *types.RuntimeConfig) (*ProbeResult, error) {
	var lastErr error

	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			logging.Debug("probe retry %d for %s", attempt+1, rawurl)
			select {
			case <-time.After(1 * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := probeOnce(ctx, client, rawurl, headers)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	logging.Debug("probe failed after retries for %s: %v", rawurl, lastErr)
	return &ProbeResult{}, nil
}

func probeOnce(ctx context.Context, client *http.Client, rawurl string, headers map[string]string) (*ProbeResult, error) {
	probeCtx, cancel := context.WithTimeout(ctx, types.ProbeTimeout)
	defer cancel()

	if result, resp, err := tryHead(probeCtx, client, rawurl, headers); err == nil {
		return finishProbe(result, rawurl, resp)
	}

	result, resp, err := tryRangeGet(probeCtx, client, rawurl, headers)
	if err != nil {
		return nil, err
	}
	return finishProbe(result, rawurl, resp)
}

func tryHead(ctx context.Context, client *http.Client, rawurl string, headers map[string]string) (*ProbeResult, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawurl, nil)
	if err != nil {
		return nil, nil, err
	}
	applyHeaders(req, headers)

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, nil, fmt.Errorf("%w: HEAD returned %d", types.ErrUnexpectedStatus, resp.StatusCode)
	}

	result := &ProbeResult{ContentType: resp.Header.Get("Content-Type")}
	result.SupportsRange = acceptsRanges(resp.Header.Get("Accept-Ranges"))
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		result.TotalSize, _ = strconv.ParseInt(cl, 10, 64)
	}
	return result, resp, nil
}

func tryRangeGet(ctx context.Context, client *http.Client, rawurl string, headers map[string]string) (*ProbeResult, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, nil, err
	}
	applyHeaders(req, headers)
	req.Header.Set("Range", "bytes=0-0")
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}

	result := &ProbeResult{ContentType: resp.Header.Get("Content-Type")}

	switch resp.StatusCode {
	case http.StatusPartialContent:
		result.SupportsRange = true
		if cr := resp.Header.Get("Content-Range"); cr != "" {
			if idx := strings.LastIndex(cr, "/"); idx != -1 {
				sizeStr := cr[idx+1:]
				if sizeStr != "*" {
					result.TotalSize, _ = strconv.ParseInt(sizeStr, 10, 64)
				}
			}
		}
	case http.StatusOK:
		result.SupportsRange = acceptsRanges(resp.Header.Get("Accept-Ranges"))
		if cl := resp.Header.Get("Content-Length"); cl != "" {
			result.TotalSize, _ = strconv.ParseInt(cl, 10, 64)
		}
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, nil, fmt.Errorf("%w: %d", types.ErrUnexpectedStatus, resp.StatusCode)
	}

	return result, resp, nil
}

// finishProbe resolves the probe's filename via DetermineFilename, which
// sniffs Content-Disposition, query parameters, and (for the range-GET
// path) magic bytes from whatever body the probe got back, falling back
// to the URL path alone if that fails. It always closes resp.Body.
func finishProbe(result *ProbeResult, rawurl string, resp *http.Response) (*ProbeResult, error) {
	defer resp.Body.Close()
	if result.Filename == "" {
		if name, _, err := utils.DetermineFilename(rawurl, resp, false); err == nil && name != "" {
			result.Filename = name
		} else {
			result.Filename = utils.FilenameFromURL(rawurl)
		}
	}
	return result, nil
}

func acceptsRanges(headerVal string) bool {
	return strings.Contains(strings.ToLower(headerVal), "bytes")
}

func applyHeaders(req *http.Request, headers map[string]string) {
	for k, v := range headers {
		if strings.EqualFold(k, "Range") {
			continue
		}
		req.Header.Set(k, v)
	}
}
