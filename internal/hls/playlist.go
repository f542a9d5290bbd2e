// Package hls implements the HLS playlist pipeline: parsing a manifest,
// picking the highest-bandwidth variant, and sequentially downloading
// segments (SPEC_FULL.md §4.5). There is no Go teacher file for this -
// it is ported from original_source/downloader.py's
// _parse_hls_playlist/_download_hls_media into the surrounding repo's
// idiom.
package hls

import (
	"bufio"
	"net/url"
	"strconv"
	"strings"

	"github.com/nahidn4p/segdl/internal/types"
)

// Variant is one entry of an HLS master playlist's #EXT-X-STREAM-INF list.
type Variant struct {
	Bandwidth  int
	Resolution string
	URI        string
}

// Playlist is the result of parsing one HLS document.
type Playlist struct {
	IsMaster bool
	Variants []Variant  // populated only when IsMaster
	Segments []string   // populated only for media playlists
	EndList  bool
}

// unsupportedTags are playlist features this pipeline detects but does
// not implement correctly (SPEC_FULL.md §4.5 step 6 / §9 decision 1).
var unsupportedTags = []string{"#EXT-X-KEY:", "#EXT-X-MAP:", "#EXT-X-BYTERANGE:"}

// Parse parses manifest text fetched from baseURL, resolving relative
// URIs against it.
func Parse(manifestText string, baseURL string) (*Playlist, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(strings.NewReader(manifestText))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 || !strings.HasPrefix(lines[0], "#EXTM3U") {
		return nil, types.ErrInvalidPlaylist
	}

	playlist := &Playlist{}

	var pendingVariant *Variant
	var pendingSegment bool

	for _, line := range lines[1:] {
		for _, tag := range unsupportedTags {
			if strings.HasPrefix(line, tag) {
				return nil, types.ErrUnsupportedPlaylist
			}
		}
		if strings.HasPrefix(line, "#EXTINF:") {
			if isByteRangeExtinf(line) {
				return nil, types.ErrUnsupportedPlaylist
			}
			pendingSegment = true
			continue
		}
		if strings.HasPrefix(line, "#EXT-X-STREAM-INF:") {
			attrs := parseAttributeList(strings.TrimPrefix(line, "#EXT-X-STREAM-INF:"))
			v := Variant{}
			if bw, err := strconv.Atoi(attrs["BANDWIDTH"]); err == nil {
				v.Bandwidth = bw
			}
			v.Resolution = strings.Trim(attrs["RESOLUTION"], `"`)
			pendingVariant = &v
			continue
		}
		if line == "#EXT-X-ENDLIST" {
			playlist.EndList = true
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}

		// A bare (non-comment) line resolves a pending variant, a
		// pending #EXTINF segment, or is itself a bare segment URI.
		resolved := resolveURI(base, line)
		switch {
		case pendingVariant != nil:
			pendingVariant.URI = resolved
			playlist.Variants = append(playlist.Variants, *pendingVariant)
			pendingVariant = nil
		case pendingSegment:
			playlist.Segments = append(playlist.Segments, resolved)
			pendingSegment = false
		default:
			playlist.Segments = append(playlist.Segments, resolved)
		}
	}

	playlist.IsMaster = len(playlist.Variants) > 0
	return playlist, nil
}

// SelectHighestBandwidth returns the variant with the greatest bandwidth,
// ties broken by first occurrence (SPEC_FULL.md §4.5 step 3).
func SelectHighestBandwidth(variants []Variant) Variant {
	best := variants[0]
	for _, v := range variants[1:] {
		if v.Bandwidth > best.Bandwidth {
			best = v
		}
	}
	return best
}

func isByteRangeExtinf(line string) bool {
	// A byte-range segment normally carries its own #EXT-X-BYTERANGE tag,
	// which unsupportedTags rejects; this additionally treats any #EXTINF
	// line with inline byte-range hints as unsupported.
	return strings.Contains(line, "BYTERANGE")
}

func resolveURI(base *url.URL, ref string) string {
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(refURL).String()
}

// parseAttributeList parses a comma-separated KEY=VALUE attribute list,
// where values may be quoted and therefore may themselves contain commas.
func parseAttributeList(s string) map[string]string {
	attrs := make(map[string]string)
	var key strings.Builder
	var val strings.Builder
	inQuotes := false
	inValue := false

	flush := func() {
		if key.Len() > 0 {
			attrs[strings.TrimSpace(key.String())] = val.String()
		}
		key.Reset()
		val.Reset()
		inValue = false
	}

	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			if inValue {
				val.WriteRune(r)
			}
		case r == '=' && !inValue && !inQuotes:
			inValue = true
		case r == ',' && !inQuotes:
			flush()
		default:
			if inValue {
				val.WriteRune(r)
			} else {
				key.WriteRune(r)
			}
		}
	}
	flush()

	// Strip surrounding quotes left in values (RESOLUTION is bare,
	// CODECS/NAME are quoted).
	for k, v := range attrs {
		attrs[k] = strings.Trim(v, `"`)
	}
	return attrs
}
