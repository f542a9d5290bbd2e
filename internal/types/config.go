package types

import "time"

// Size constants.
const (
	KB = 1024
	MB = 1024 * KB
	GB = 1024 * MB
)

// Chunking constants for the segmented downloader.
const (
	MinChunk       = 1 * MB
	MaxChunk       = 64 * MB
	TargetChunk    = 8 * MB
	AlignSize      = 4 * KB
	WorkerBuffer   = 64 * KB
	DefaultThreads = 4
)

// Connection/transport tuning.
const (
	DefaultMaxIdleConns          = 100
	PerHostMax                   = 16
	DefaultIdleConnTimeout       = 90 * time.Second
	DefaultTLSHandshakeTimeout   = 10 * time.Second
	DefaultResponseHeaderTimeout = 30 * time.Second
	DefaultExpectContinueTimeout = 1 * time.Second
	DialTimeout                  = 10 * time.Second
	KeepAliveDuration             = 30 * time.Second
	ProbeTimeout                  = 10 * time.Second
)

// Segment-level retry/health tuning.
const (
	MaxTaskRetries      = 3
	SlowWorkerThreshold = 0.3
	SlowWorkerGrace     = 5 * time.Second
	StallTimeout        = 10 * time.Second
	SpeedEMAAlpha       = 0.3
	RetryBaseDelay      = 500 * time.Millisecond
	HealthCheckInterval = 1 * time.Second
)

// ProgressChannelBuffer bounds the progress-event channel so a slow
// consumer never blocks a worker's chunk loop.
const ProgressChannelBuffer = 64

// RuntimeConfig overrides the tuning constants above; a nil RuntimeConfig
// or zero-valued fields fall back to the package defaults via the getters
// below, the same pattern the teacher's own config_test.go documents.
// InsecureSkipVerify is the exception: only a nil RuntimeConfig defaults
// it to true; a non-nil one uses the field as given, so its zero value
// keeps TLS verification on.
type RuntimeConfig struct {
	MaxConnectionsPerHost int
	UserAgent             string
	MinChunkSize          int64
	MaxChunkSize          int64
	TargetChunkSize       int64
	WorkerBufferSize      int
	MaxTaskRetries        int
	SlowWorkerThreshold   float64
	SlowWorkerGracePeriod time.Duration
	StallTimeout          time.Duration
	SpeedEmaAlpha         float64
	InsecureSkipVerify    bool
	DefaultThreads        int
}

func (r *RuntimeConfig) GetMaxConnectionsPerHost() int {
	if r == nil || r.MaxConnectionsPerHost <= 0 {
		return PerHostMax
	}
	return r.MaxConnectionsPerHost
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func (r *RuntimeConfig) GetUserAgent() string {
	if r == nil || r.UserAgent == "" {
		return defaultUserAgent
	}
	return r.UserAgent
}

func (r *RuntimeConfig) GetMinChunkSize() int64 {
	if r == nil || r.MinChunkSize <= 0 {
		return MinChunk
	}
	return r.MinChunkSize
}

func (r *RuntimeConfig) GetMaxChunkSize() int64 {
	if r == nil || r.MaxChunkSize <= 0 {
		return MaxChunk
	}
	return r.MaxChunkSize
}

func (r *RuntimeConfig) GetTargetChunkSize() int64 {
	if r == nil || r.TargetChunkSize <= 0 {
		return TargetChunk
	}
	return r.TargetChunkSize
}

func (r *RuntimeConfig) GetWorkerBufferSize() int {
	if r == nil || r.WorkerBufferSize <= 0 {
		return WorkerBuffer
	}
	return r.WorkerBufferSize
}

func (r *RuntimeConfig) GetMaxTaskRetries() int {
	if r == nil || r.MaxTaskRetries <= 0 {
		return MaxTaskRetries
	}
	return r.MaxTaskRetries
}

func (r *RuntimeConfig) GetSlowWorkerThreshold() float64 {
	if r == nil || r.SlowWorkerThreshold <= 0 {
		return SlowWorkerThreshold
	}
	return r.SlowWorkerThreshold
}

func (r *RuntimeConfig) GetSlowWorkerGracePeriod() time.Duration {
	if r == nil || r.SlowWorkerGracePeriod <= 0 {
		return SlowWorkerGrace
	}
	return r.SlowWorkerGracePeriod
}

func (r *RuntimeConfig) GetStallTimeout() time.Duration {
	if r == nil || r.StallTimeout <= 0 {
		return StallTimeout
	}
	return r.StallTimeout
}

func (r *RuntimeConfig) GetSpeedEmaAlpha() float64 {
	if r == nil || r.SpeedEmaAlpha <= 0 {
		return SpeedEMAAlpha
	}
	return r.SpeedEmaAlpha
}

func (r *RuntimeConfig) GetInsecureSkipVerify() bool {
	if r == nil {
		return true
	}
	return r.InsecureSkipVerify
}

func (r *RuntimeConfig) GetDefaultThreads() int {
	if r == nil || r.DefaultThreads <= 0 {
		return DefaultThreads
	}
	return r.DefaultThreads
}
