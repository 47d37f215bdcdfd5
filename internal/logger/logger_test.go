package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestConfigureJSON(t *testing.T) {
	var buf bytes.Buffer
	configure(&buf, "debug", "json")
	defer configure(&bytes.Buffer{}, "info", "json")

	Debug("debug message", "story_id", "s-1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "debug message" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["story_id"] != "s-1" {
		t.Errorf("story_id = %v", entry["story_id"])
	}
}

func TestConfigureTextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	configure(&buf, "warn", "text")
	defer configure(&bytes.Buffer{}, "info", "json")

	Info("hidden")
	Error("visible", nil)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "msg=visible") {
		t.Errorf("expected text-format error line, got %q", out)
	}
}
