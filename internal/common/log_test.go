// File path: internal/common/log_test.go
package common

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoggerCapturesEntries(t *testing.T) {
	Logger().Info("test: capture check", "attempt", int64(1), "ok", true)

	entries := LogEntries()
	if len(entries) == 0 {
		t.Fatalf("expected captured log entries")
	}
	var found *LogEntry
	for i := range entries {
		if entries[i].Message == "test: capture check" {
			found = &entries[i]
		}
	}
	if found == nil {
		t.Fatalf("captured entry not found")
	}
	if found.Level != "info" {
		t.Fatalf("level = %q", found.Level)
	}
	if found.Attrs["attempt"] != int64(1) {
		t.Fatalf("attrs not captured: %v", found.Attrs)
	}
	if found.Attrs["ok"] != true {
		t.Fatalf("bool attr not captured: %v", found.Attrs)
	}
	if found.Time.IsZero() {
		t.Fatalf("entry time must be set")
	}
}

func TestLogSinkBoundedHistory(t *testing.T) {
	s := newLogSink(3)
	for i := 0; i < 5; i++ {
		rec := slog.NewRecord(time.Now(), slog.LevelInfo, "entry", 0)
		s.capture(rec)
	}
	if got := len(s.entries()); got != 3 {
		t.Fatalf("expected history capped at 3, got %d", got)
	}
}
