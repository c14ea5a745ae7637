package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestContextCallsCarryTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Level: slog.LevelDebug, Component: ComponentBot})
	ctx := WithTrace(context.Background(), "upd_0011223344556677", 42)

	logger.InfoContext(ctx, "traced", "k", "v")
	NewStructuredLogger(logger.WithComponent(ComponentResolver)).LogRejection(ctx, "7", "income", "invalid_amount")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	for _, line := range lines {
		if !strings.Contains(line, "trace_id=upd_0011223344556677") || !strings.Contains(line, "update_id=42") {
			t.Errorf("line missing trace fields: %s", line)
		}
	}
	if TraceID(ctx) != "upd_0011223344556677" {
		t.Errorf("TraceID = %q", TraceID(ctx))
	}
}

func TestUntracedCallsOmitTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf})

	logger.InfoContext(context.Background(), "plain")
	logger.Info("plain")

	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("unexpected trace field: %s", buf.String())
	}
	if TraceID(context.Background()) != "" {
		t.Error("TraceID on empty context")
	}
}
