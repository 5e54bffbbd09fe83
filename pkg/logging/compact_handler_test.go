package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestCompactHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	log.Info("wrote diagram", "tables", 3, "path", "out file.dia", "gzip", true)

	line := buf.String()
	if !strings.HasPrefix(line, "[INFO]  ") {
		t.Errorf("expected INFO prefix, got %q", line)
	}
	for _, want := range []string{"wrote diagram |", "tables=3", `path="out file.dia"`, "gzip=true"} {
		if !strings.Contains(line, want) {
			t.Errorf("expected %q in %q", want, line)
		}
	}
	if !strings.HasSuffix(line, "\n") {
		t.Errorf("expected trailing newline, got %q", line)
	}
}

func TestCompactHandler_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	log.Info("hidden")
	log.Warn("shown")
	log.Error("failed", "error", errors.New("boom"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered: %q", out)
	}
	if !strings.Contains(out, "[WARN]  ") || !strings.Contains(out, "[ERROR] ") {
		t.Errorf("expected WARN and ERROR records: %q", out)
	}
	if !strings.Contains(out, `error="boom"`) {
		t.Errorf("expected quoted error: %q", out)
	}
}

func TestCompactHandler_Trace(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, &slog.HandlerOptions{Level: LevelTrace}))

	log.Log(context.Background(), LevelTrace, "port allocated", "port", 12)

	if !strings.HasPrefix(buf.String(), "[TRACE] ") {
		t.Errorf("expected TRACE prefix, got %q", buf.String())
	}
}

func TestCompactHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, nil)).
		With("source", "manifest").
		WithGroup("model")

	log.Info("loaded", "name", "Person")

	out := buf.String()
	if !strings.Contains(out, "source=manifest") {
		t.Errorf("expected accumulated attribute: %q", out)
	}
	if !strings.Contains(out, "model.name=Person") {
		t.Errorf("expected grouped attribute: %q", out)
	}
}

func TestCompactHandler_RunID(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, nil))

	ctx := WithRunID(context.Background(), "0123456789abcdef")
	log.InfoContext(ctx, "start", withRunID(ctx, nil)...)

	if !strings.Contains(buf.String(), "run=01234567") {
		t.Errorf("expected shortened run id, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "89abcdef") {
		t.Errorf("run id should be shortened, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		verbose int
		want    slog.Level
	}{
		{"", 0, slog.LevelInfo},
		{"", 1, slog.LevelDebug},
		{"", 3, LevelTrace},
		{"warn", 2, slog.LevelWarn},
		{"quiet", 0, slog.LevelError},
		{"debug", 0, slog.LevelDebug},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.name, tt.verbose); got != tt.want {
			t.Errorf("ParseLevel(%q, %d) = %v, want %v", tt.name, tt.verbose, got, tt.want)
		}
	}
}

func TestNewRun(t *testing.T) {
	ctx := NewRun(context.Background())
	if len(GetRunID(ctx)) != 36 {
		t.Errorf("expected a uuid run id, got %q", GetRunID(ctx))
	}
	if GetRunID(context.Background()) != "" {
		t.Error("expected empty run id without NewRun")
	}
}
