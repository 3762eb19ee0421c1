package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", 0, true},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "layoutd.log")

	logger, err := Setup(Config{Level: "info", Format: "json", Output: "file", FilePath: path})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	logger.Info("started", "pid", 1)
	Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(data[:len(data)-1], &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "started" {
		t.Errorf("msg = %v, want started", entry["msg"])
	}
}

func TestSetupRejectsBadConfig(t *testing.T) {
	if _, err := Setup(Config{Level: "loud"}); err == nil {
		t.Error("unknown level must fail")
	}
	if _, err := Setup(Config{Level: "info", Output: "syslog"}); err == nil {
		t.Error("unknown output must fail")
	}
	if _, err := Setup(Config{Level: "info", Output: "file"}); err == nil {
		t.Error("file output without a path must fail")
	}
}

func TestComponentTagsLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layoutd.log")
	if _, err := Setup(Config{Level: "debug", Format: "json", Output: "file", FilePath: path}); err != nil {
		t.Fatal(err)
	}
	Component("engine").Debug("tick")
	Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"component":"engine"`) {
		t.Errorf("log line missing component tag: %s", data)
	}
}
