package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/garnizeh/talentflow/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNewWriter_JSONFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWriter(&buf, config.LogConfig{Level: "warn"})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	l.Info("hidden")
	l.Warn("shown", slog.String("k", "v"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("expected json output: %v", err)
	}
	if rec["msg"] != "shown" || rec["k"] != "v" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestNewWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWriter(&buf, config.LogConfig{Format: "text"})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	l.Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Fatalf("expected text output, got %q", buf.String())
	}
	if _, err := NewWriter(&buf, config.LogConfig{Format: "xml"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
