package hls

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nahidn4p/segdl/internal/types"
)

const mediaPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXTINF:9.009,
segment0.ts
#EXTINF:9.009,
segment1.ts
segment2.ts
#EXT-X-ENDLIST
`

const masterPlaylist = `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=500000,RESOLUTION=640x360
low/playlist.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=1200000,RESOLUTION=1280x720
high/playlist.m3u8
`

func TestParse_MediaPlaylist(t *testing.T) {
	p, err := Parse(mediaPlaylist, "https://example.com/video/index.m3u8")
	require.NoError(t, err)
	require.False(t, p.IsMaster)
	require.True(t, p.EndList)
	require.Equal(t, []string{
		"https://example.com/video/segment0.ts",
		"https://example.com/video/segment1.ts",
		"https://example.com/video/segment2.ts",
	}, p.Segments)
}

func TestParse_MasterPlaylist(t *testing.T) {
	p, err := Parse(masterPlaylist, "https://example.com/video/master.m3u8")
	require.NoError(t, err)
	require.True(t, p.IsMaster)
	require.Len(t, p.Variants, 2)
	require.Equal(t, 500000, p.Variants[0].Bandwidth)
	require.Equal(t, "https://example.com/video/high/playlist.m3u8", p.Variants[1].URI)

	best := SelectHighestBandwidth(p.Variants)
	require.Equal(t, 1200000, best.Bandwidth)
	require.Equal(t, "https://example.com/video/high/playlist.m3u8", best.URI)
}

func TestParse_RejectsMissingExtm3u(t *testing.T) {
	_, err := Parse("not a playlist\nsegment.ts\n", "https://example.com/")
	require.ErrorIs(t, err, types.ErrInvalidPlaylist)
}

func TestParse_RejectsEncryptedMedia(t *testing.T) {
	playlist := "#EXTM3U\n#EXT-X-KEY:METHOD=AES-128,URI=\"key.bin\"\n#EXTINF:5,\nseg0.ts\n"
	_, err := Parse(playlist, "https://example.com/")
	require.ErrorIs(t, err, types.ErrUnsupportedPlaylist)
}

func TestParse_BareSegmentLines(t *testing.T) {
	playlist := "#EXTM3U\nseg0.ts\nseg1.ts\n"
	p, err := Parse(playlist, "https://example.com/video/index.m3u8")
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://example.com/video/seg0.ts",
		"https://example.com/video/seg1.ts",
	}, p.Segments)
}
