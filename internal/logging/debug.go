// Package logging provides the daemon's debug trace sink: one rotated,
// dated log file per process run, enabled via SEGDL_DEBUG=1.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu        sync.Mutex
	logsDir   string
	writer    *lumberjack.Logger
	configure sync.Once
)

func init() {
	logsDir = os.Getenv("SEGDL_LOGS_DIR")
}

// ConfigureDebug points future Debug calls at a specific logs directory.
// Mainly used by tests; in production the directory comes from config.GetLogsDir.
func ConfigureDebug(dir string) {
	mu.Lock()
	defer mu.Unlock()
	logsDir = dir
	writer = nil
}

func ensureWriter() *lumberjack.Logger {
	if writer != nil {
		return writer
	}
	dir := logsDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "segdl-logs")
	}
	_ = os.MkdirAll(dir, 0o755)
	name := fmt.Sprintf("debug-%s.log", time.Now().Format("20060102-150405"))
	writer = &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		Compress:   false,
	}
	return writer
}

// Debug writes a formatted trace line if SEGDL_DEBUG is set. It is a no-op
// otherwise so call sites can sprinkle it liberally without cost in
// production.
func Debug(format string, args ...interface{}) {
	if os.Getenv("SEGDL_DEBUG") == "" {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	w := ensureWriter()
	line := fmt.Sprintf("%s %s\n", time.Now().Format(time.RFC3339Nano), fmt.Sprintf(format, args...))
	_, _ = w.Write([]byte(line))
}

// CleanupLogs keeps only the `keep` most recent debug-*.log files in the
// configured logs directory, deleting the rest.
func CleanupLogs(keep int) {
	mu.Lock()
	dir := logsDir
	mu.Unlock()
	if dir == "" || keep < 0 {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if len(n) > 6 && n[:6] == "debug-" {
			names = append(names, n)
		}
	}

	sort.Strings(names)
	if len(names) <= keep {
		return
	}
	toRemove := names[:len(names)-keep]
	for _, n := range toRemove {
		_ = os.Remove(filepath.Join(dir, n))
	}
}
