package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestInitFileOnlyWritesJSON(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "globe.log")

	cfg := FileConfig{
		Path:       logFile,
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
	}
	if err := InitWithFileConfig("debug", cfg, false); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer Sync()

	Info("tile load failed")
	Sugar.Debugf("rebuilt %d tiles", 7)
	Sync()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}
	for _, line := range lines {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Errorf("line is not JSON: %q", line)
		} else if entry["msg"] == "" {
			t.Errorf("line missing msg field: %q", line)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "globe.log")

	if err := InitWithFileConfig("warn", DefaultFileConfig(logFile), false); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer Sync()

	Debug("culled tile")
	Info("tile rebuilt")
	Warn("tile load failed")
	Sync()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "culled tile") || strings.Contains(out, "tile rebuilt") {
		t.Errorf("sub-warn messages were not filtered: %s", out)
	}
	if !strings.Contains(out, "tile load failed") {
		t.Errorf("warn message missing: %s", out)
	}
}

func TestNopDefaultIsSafe(t *testing.T) {
	// Packages may log before Init; the default must not panic.
	saved := Log
	defer func() { Log = saved; Sugar = saved.Sugar() }()

	Log = zap.NewNop()
	Sugar = Log.Sugar()
	Info("no-op")
	Debug("no-op")
}
