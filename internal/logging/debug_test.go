package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDebug_CreatesLogFile(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("SEGDL_DEBUG", "1")
	ConfigureDebug(tempDir)
	defer ConfigureDebug("")

	Debug("test message from unit test")
	time.Sleep(50 * time.Millisecond)

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("failed to read logs directory: %v", err)
	}

	found := false
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "debug-") && strings.HasSuffix(entry.Name(), ".log") {
			found = true
		}
	}
	if !found {
		t.Error("expected a debug-*.log file to be created")
	}
}

func TestDebug_NoOpWithoutFlag(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("SEGDL_DEBUG", "")
	ConfigureDebug(tempDir)
	defer ConfigureDebug("")

	Debug("should not be written")

	entries, _ := os.ReadDir(tempDir)
	if len(entries) != 0 {
		t.Errorf("expected no log files, found %d", len(entries))
	}
}

func TestCleanupLogs(t *testing.T) {
	tempDir := t.TempDir()
	ConfigureDebug(tempDir)
	defer ConfigureDebug("")

	baseTime := time.Now()
	for i := 0; i < 10; i++ {
		ts := baseTime.Add(time.Duration(i) * time.Hour)
		name := fmt.Sprintf("debug-%s.log", ts.Format("20060102-150405"))
		path := filepath.Join(tempDir, name)
		if err := os.WriteFile(path, []byte("dummy log"), 0o644); err != nil {
			t.Fatalf("failed to write dummy log: %v", err)
		}
	}

	CleanupLogs(5)

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("failed to read dir after cleanup: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 files, got %d", len(entries))
	}

	newestTS := baseTime.Add(9 * time.Hour).Format("20060102-150405")
	expected := fmt.Sprintf("debug-%s.log", newestTS)
	found := false
	for _, e := range entries {
		if e.Name() == expected {
			found = true
		}
	}
	if !found {
		t.Errorf("expected newest file %s to survive cleanup", expected)
	}
}
