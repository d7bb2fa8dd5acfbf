package debug

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func reset(t *testing.T) {
	t.Helper()
	Close()
	mu.Lock()
	enabled = false
	logFile = nil
	logger = nil
	initOnce = sync.Once{}
	initError = nil
	mu.Unlock()
	t.Cleanup(func() {
		Enable(false)
		Close()
	})
}

func TestLog(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", tempDir)
	reset(t)

	Enable(true)
	if !Enabled() {
		t.Error("expected debug to be enabled")
	}

	Log("test message", map[string]any{"key": "value", "err": errors.New("boom")})

	content, err := os.ReadFile(filepath.Join(tempDir, "company-lens", "debug.log"))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(content, &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}
	if entry["log"] != "test message" {
		t.Errorf("expected log message, got %v", entry["log"])
	}
	if entry["key"] != "value" {
		t.Errorf("expected data key 'value', got %v", entry["key"])
	}
	if entry["err"] != "boom" {
		t.Errorf("expected error to be logged as its message, got %v", entry["err"])
	}
	if _, ok := entry["date"]; !ok {
		t.Error("expected date field")
	}
}

func TestLogReservedKeysWin(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", tempDir)
	reset(t)

	Enable(true)
	Log("real", map[string]any{"log": "spoofed"})

	content, err := os.ReadFile(Path())
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), `"log":"real"`) {
		t.Errorf("expected message to override data field, got %s", content)
	}
}

func TestLogRotatesOnEnable(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", tempDir)
	reset(t)

	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, make([]byte, maxLogSize+1), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	Enable(true)
	Log("after rotation", nil)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() > maxLogSize {
		t.Errorf("expected oversized log to be rotated, size %d", info.Size())
	}
	backups, err := Rotator.GetBackupFiles(path)
	if err != nil {
		t.Fatalf("GetBackupFiles: %v", err)
	}
	if len(backups) != 1 {
		t.Errorf("expected one backup, got %v", backups)
	}
}

func TestClose(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	reset(t)

	Enable(true)
	Log("message", nil)
	Close()

	mu.RLock()
	defer mu.RUnlock()
	if logFile != nil {
		t.Error("expected logFile to be nil after Close")
	}
}

func TestEnableFalse(t *testing.T) {
	reset(t)
	Enable(false)
	if Enabled() {
		t.Error("expected debug to be disabled")
	}
	Log("should not log", nil)
}

func TestInitError(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", tempDir)
	reset(t)

	// A file where the cache directory should be.
	os.WriteFile(filepath.Join(tempDir, "company-lens"), []byte("not a directory"), 0644)

	Enable(true)
	Log("test", nil)

	if Enabled() {
		t.Error("expected debug to be disabled after init error")
	}
}
