package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wonny/momentum/pkg/config"
)

// newCaptured returns a JSON logger at debug level writing into a buffer
func newCaptured(t *testing.T) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return NewWithWriter(&buf, "debug", "json", "test"), &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("Failed to parse log line %q: %v", lines[len(lines)-1], err)
	}
	return entry
}

func TestNewAppliesConfiguredLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"info", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log := New(&config.Config{Env: "test", LogLevel: tt.level, LogFormat: "json"})
			if log == nil {
				t.Fatal("Expected logger to be created")
			}
			if zerolog.GlobalLevel() != tt.want {
				t.Errorf("Expected global level %v, got %v", tt.want, zerolog.GlobalLevel())
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"DEBUG":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"fatal":   zerolog.FatalLevel,
		"panic":   zerolog.PanicLevel,
		"verbose": zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}

	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelsAndMessages(t *testing.T) {
	log, buf := newCaptured(t)

	tests := []struct {
		emit      func()
		wantLevel string
		wantMsg   string
	}{
		{func() { log.Debug("Promoted durable scores") }, "debug", "Promoted durable scores"},
		{func() { log.Info("Batch completed") }, "info", "Batch completed"},
		{func() { log.Warn("Write-back queue full") }, "warn", "Write-back queue full"},
		{func() { log.Error("Job failed after all retries") }, "error", "Job failed after all retries"},
		{func() { log.Debugf("chunk %d of %d", 2, 5) }, "debug", "chunk 2 of 5"},
		{func() { log.Infof("scored %d tickers", 45) }, "info", "scored 45 tickers"},
		{func() { log.Warnf("breaker %s", "open") }, "warn", "breaker open"},
		{func() { log.Errorf("migration %s failed", "001_momentum.sql") }, "error", "migration 001_momentum.sql failed"},
	}

	for _, tt := range tests {
		buf.Reset()
		tt.emit()

		entry := lastEntry(t, buf)
		if entry["level"] != tt.wantLevel {
			t.Errorf("%s: expected level %q, got %v", tt.wantMsg, tt.wantLevel, entry["level"])
		}
		if entry["message"] != tt.wantMsg {
			t.Errorf("Expected message %q, got %v", tt.wantMsg, entry["message"])
		}
		if entry["env"] != "test" {
			t.Errorf("Expected env test, got %v", entry["env"])
		}
	}
}

func TestComponentAndTicker(t *testing.T) {
	log, buf := newCaptured(t)

	log.Component("cache").WithTicker("AAPL").Info("tier-1 hit")

	entry := lastEntry(t, buf)
	if entry["module"] != "cache" {
		t.Errorf("Expected module cache, got %v", entry["module"])
	}
	if entry["ticker"] != "AAPL" {
		t.Errorf("Expected ticker AAPL, got %v", entry["ticker"])
	}
}

func TestDerivedLoggersDoNotLeakFields(t *testing.T) {
	log, buf := newCaptured(t)
	batch := log.Component("batch")

	batch.WithTicker("MSFT").Warn("Batch item failed")
	batch.Info("Batch started")

	entry := lastEntry(t, buf)
	if _, ok := entry["ticker"]; ok {
		t.Errorf("Expected no ticker on the parent logger, got %v", entry["ticker"])
	}
	if entry["module"] != "batch" {
		t.Errorf("Expected module batch, got %v", entry["module"])
	}
}

func TestWithFieldsAndError(t *testing.T) {
	log, buf := newCaptured(t)

	log.WithField("batch_id", "b-1").
		WithFields(map[string]interface{}{
			"succeeded": 44,
			"failed":    1,
		}).
		WithError(errors.New("fetch timed out")).
		Warn("Live computation failed for some tickers")

	entry := lastEntry(t, buf)
	if entry["batch_id"] != "b-1" {
		t.Errorf("Expected batch_id b-1, got %v", entry["batch_id"])
	}
	if entry["succeeded"] != float64(44) || entry["failed"] != float64(1) {
		t.Errorf("Expected succeeded=44 failed=1, got %v / %v", entry["succeeded"], entry["failed"])
	}
	if entry["error"] != "fetch timed out" {
		t.Errorf("Expected error field, got %v", entry["error"])
	}
}

func TestInfoLevelDropsDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "json", "test")

	log.Debug("Computed momentum score")
	if buf.Len() != 0 {
		t.Errorf("Expected debug line to be dropped, got %s", buf.String())
	}

	log.Info("Scheduler started")
	if !strings.Contains(buf.String(), "Scheduler started") {
		t.Errorf("Expected info line, got %q", buf.String())
	}
}

func TestConsoleFormats(t *testing.T) {
	for _, format := range []string{"console", "pretty"} {
		var buf bytes.Buffer
		NewWithWriter(&buf, "info", format, "test").WithTicker("NVDA").Info("Refreshed watchlist")

		out := buf.String()
		if strings.HasPrefix(strings.TrimSpace(out), "{") {
			t.Errorf("%s: expected human-readable output, got JSON: %s", format, out)
		}
		if !strings.Contains(out, "Refreshed watchlist") || !strings.Contains(out, "NVDA") {
			t.Errorf("%s: expected message and ticker in %q", format, out)
		}
	}
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	// must not panic or write anywhere
	log.Component("scoring").WithTicker("AAPL").WithError(errors.New("x")).Error("discarded")
	log.Infof("discarded %d", 1)
}
