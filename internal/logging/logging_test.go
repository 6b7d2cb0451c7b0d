package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := LevelFromString(tt.in); got != tt.want {
			t.Errorf("LevelFromString(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	if got := LevelFromVerbosity(0, true); got != slog.Level(100) {
		t.Errorf("quiet should suppress, got %v", got)
	}
	if got := LevelFromVerbosity(0, false); got != slog.LevelWarn {
		t.Errorf("verbosity 0 = %v, want warn", got)
	}
	if got := LevelFromVerbosity(2, false); got != slog.LevelDebug {
		t.Errorf("verbosity 2 = %v, want debug", got)
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, "json")
	logger.Info("hello", "tool", "findFiles")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "hello" || entry["tool"] != "findFiles" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn, "human")
	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "kept") {
		t.Error("warn message missing")
	}
}

func TestNewFileLogger(t *testing.T) {
	home := t.TempDir()
	logger, f, err := NewFileLogger(home, "server", slog.LevelInfo, "json")
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	logger.Info("started")
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(home, "logs", "server.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "started") {
		t.Errorf("log file missing entry: %s", data)
	}
}
