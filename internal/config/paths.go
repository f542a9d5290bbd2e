// Package config resolves on-disk locations used by the daemon and CLI:
// the base config directory, the task store path, the legacy JSON
// snapshot path, the log directory, and the part-file temp root (the
// default download folder is resolved by the cmd package). Nothing here
// is global mutable state —
// callers read these paths once at startup and pass them down explicitly.
package config

import (
	"os"
	"path/filepath"
)

const dirName = "segdl"

// GetSurgeDir returns the base config/state directory, honoring SEGDL_HOME
// for tests and containerized deployments.
func GetSurgeDir() string {
	if home := os.Getenv("SEGDL_HOME"); home != "" {
		return home
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	return filepath.Join(configDir, dirName)
}

// GetLogsDir returns the directory where rotated debug logs are written.
func GetLogsDir() string {
	return filepath.Join(GetSurgeDir(), "logs")
}

// GetDBPath returns the path to the SQLite task store.
func GetDBPath() string {
	return filepath.Join(GetSurgeDir(), "tasks.db")
}

// GetLegacyJSONPath returns the path of a pre-SQLite JSON task snapshot,
// imported once by the store on first run if present.
func GetLegacyJSONPath() string {
	return filepath.Join(GetSurgeDir(), "tasks.json")
}

// GetTempRoot returns the parent directory for in-progress part files.
func GetTempRoot() string {
	return filepath.Join(GetSurgeDir(), "tmp")
}

// EnsureDirs creates the config, logs, and temp directories if missing.
func EnsureDirs() error {
	for _, dir := range []string{GetSurgeDir(), GetLogsDir(), GetTempRoot()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
