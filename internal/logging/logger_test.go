package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetIsSilentNoOpWithoutDebugMode(t *testing.T) {
	if err := Initialize(t.TempDir(), false, "info"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	l := Get(CategoryScanner)
	// Must not panic and must not create any file.
	l.Info("hello %s", "world")
	l.Debug("debug line")
}

func TestInitializeDebugModeCreatesLogFile(t *testing.T) {
	root := t.TempDir()
	if err := Initialize(root, true, "info"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer func() {
		CloseAll()
		_ = Initialize(t.TempDir(), false, "info")
	}()

	l := Get(CategoryIndex)
	l.Info("indexed %d files", 3)

	logsDirPath := filepath.Join(root, ".cgrep", "logs")
	entries, err := os.ReadDir(logsDirPath)
	if err != nil {
		t.Fatalf("ReadDir(%s): %v", logsDirPath, err)
	}
	found := false
	for _, e := range entries {
		if strings.Contains(e.Name(), string(CategoryIndex)) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a log file for category %q among %+v", CategoryIndex, entries)
	}
}

func TestLogLevelFiltersBelowThreshold(t *testing.T) {
	root := t.TempDir()
	if err := Initialize(root, true, "warn"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer func() {
		CloseAll()
		_ = Initialize(t.TempDir(), false, "info")
	}()

	l := Get(CategoryUsage)
	l.Debug("should be filtered out")
	l.Info("also filtered out")
	l.Warn("should be recorded")
	CloseAll()

	logPath := findLogFile(t, root, CategoryUsage)
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "should be filtered out") || strings.Contains(content, "also filtered out") {
		t.Fatalf("log level filtering failed to suppress sub-threshold entries: %s", content)
	}
	if !strings.Contains(content, "should be recorded") {
		t.Fatalf("expected the warn-level entry to be recorded: %s", content)
	}
}

func TestStartTimerStopReportsElapsedWithoutLogging(t *testing.T) {
	if err := Initialize(t.TempDir(), false, "info"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	timer := StartTimer(CategoryAgent, "locate")
	elapsed := timer.Stop()
	if elapsed < 0 {
		t.Fatalf("Stop() returned a negative duration: %v", elapsed)
	}
}

func findLogFile(t *testing.T, root string, category Category) string {
	t.Helper()
	dir := filepath.Join(root, ".cgrep", "logs")
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir(%s): %v", dir, err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), string(category)) {
			return filepath.Join(dir, e.Name())
		}
	}
	t.Fatalf("no log file found for category %q in %s", category, dir)
	return ""
}
