package types

import "errors"

// Sentinel errors forming the error taxonomy in SPEC_FULL.md §7. Callers
// wrap these with fmt.Errorf("...: %w", err) to add context; they are
// never used for control flow via panic/recover.
var (
	ErrPaused               = errors.New("task paused")
	ErrNotFound             = errors.New("task not found")
	ErrDuplicateTask        = errors.New("task already exists")
	ErrUnsupportedPlaylist  = errors.New("unsupported HLS playlist feature")
	ErrInvalidPlaylist      = errors.New("invalid HLS playlist")
	ErrRangeNotSupported    = errors.New("origin does not support byte ranges")
	ErrUnexpectedStatus     = errors.New("unexpected HTTP status")
)
