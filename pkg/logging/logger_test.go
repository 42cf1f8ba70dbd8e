package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kamal-hamza/rfm-cli/pkg/config"
)

func TestNew_FileOutputJSON(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "rfm.log")

	logger, closeFn, err := New(Options{Level: "info", Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("hidden")
	logger.Info("organized file", "path", "/tmp/a.pdf")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line at info level, got %d: %q", len(lines), content)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected JSON log line: %v", err)
	}
	if entry["level"] != "info" {
		t.Errorf("expected lower-case level, got %v", entry["level"])
	}
	if entry["path"] != "/tmp/a.pdf" {
		t.Errorf("expected path attribute, got %v", entry["path"])
	}
}

func TestNew_UnsupportedFormat(t *testing.T) {
	if _, _, err := New(Options{Format: "xml"}); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.expected {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.expected)
		}
	}
}

func TestNewFromConfig_Verbose(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.File = filepath.Join(t.TempDir(), "research.log")

	logger, closeFn, err := NewFromConfig(cfg, true)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	defer closeFn()

	logger.Debug("debug message")

	content, err := os.ReadFile(cfg.Logging.File)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "debug message") {
		t.Errorf("expected debug output in verbose mode, got %q", content)
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Error("expected a logger for nil input")
	}
}
