package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewTagsRecordsWithApp(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "CoinVault", "warn")

	logger.Info("dropped")
	logger.Warn("kept", slog.String("user_id", "u1"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record above warn, got %q", buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec["msg"] != "kept" || rec["app"] != "CoinVault" || rec["user_id"] != "u1" || rec["level"] != "WARN" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestNewWithoutAppName(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, " ", "debug").Debug("hello")
	if strings.Contains(buf.String(), `"app"`) {
		t.Fatalf("blank app name must not be attached: %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Fatalf("debug record missing: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		" error ": slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
