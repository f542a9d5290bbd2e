package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Settings holds user-configurable runtime tuning, persisted as JSON
// alongside the task store.
type Settings struct {
	Connections ConnectionSettings  `json:"connections"`
	Chunks      ChunkSettings       `json:"chunks"`
	Performance PerformanceSettings `json:"performance"`
	Schedule    ScheduleSettings    `json:"schedule"`
}

// ConnectionSettings controls HTTP transport tuning.
type ConnectionSettings struct {
	MaxConnectionsPerHost int    `json:"max_connections_per_host"`
	UserAgent             string `json:"user_agent"`
	InsecureSkipVerify    bool   `json:"insecure_skip_verify"`
}

// ChunkSettings controls segmented-download chunking.
type ChunkSettings struct {
	DefaultThreads   int `json:"default_threads"`
	WorkerBufferSize int `json:"worker_buffer_size"`
}

// PerformanceSettings controls retry/health-check tuning.
type PerformanceSettings struct {
	MaxTaskRetries        int           `json:"max_task_retries"`
	SlowWorkerThreshold   float64       `json:"slow_worker_threshold"`
	SlowWorkerGracePeriod time.Duration `json:"slow_worker_grace_period"`
	StallTimeout          time.Duration `json:"stall_timeout"`
	SpeedEmaAlpha         float64       `json:"speed_ema_alpha"`
}

// ScheduleSettings controls the TaskScheduler tick cadence.
type ScheduleSettings struct {
	TickInterval time.Duration `json:"tick_interval"`
}

const (
	KB = 1024
	MB = 1024 * KB
)

// DefaultSettings returns sensible defaults, mirroring the teacher's
// RuntimeConfig constants.
func DefaultSettings() *Settings {
	return &Settings{
		Connections: ConnectionSettings{
			MaxConnectionsPerHost: 16,
			UserAgent:             "",
			InsecureSkipVerify:    true,
		},
		Chunks: ChunkSettings{
			DefaultThreads:   4,
			WorkerBufferSize: 64 * KB,
		},
		Performance: PerformanceSettings{
			MaxTaskRetries:        3,
			SlowWorkerThreshold:   0.3,
			SlowWorkerGracePeriod: 5 * time.Second,
			StallTimeout:          10 * time.Second,
			SpeedEmaAlpha:         0.3,
		},
		Schedule: ScheduleSettings{
			TickInterval: 300 * time.Millisecond,
		},
	}
}

func settingsPath() string {
	return filepath.Join(GetSurgeDir(), "settings.json")
}

// LoadSettings loads settings from disk, returning defaults if absent.
func LoadSettings() (*Settings, error) {
	data, err := os.ReadFile(settingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}
	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// SaveSettings writes settings atomically (temp file + rename).
func SaveSettings(s *Settings) error {
	path := settingsPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tempPath, path)
}
