package utils

import "github.com/dustin/go-humanize"

// ConvertBytesToHumanReadable renders a byte count as a human-readable
// string (e.g. "1.4 MB"), used by the CLI's ls/status output.
func ConvertBytesToHumanReadable(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}
	return humanize.Bytes(uint64(bytes))
}
