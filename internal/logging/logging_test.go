package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Fatal("expected default logger without a stored logger")
	}
}

func TestSpanLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := WithLogger(context.Background(), logger)

	ctx, parent := StartSpan(ctx, "upload")
	_, child := StartSpan(ctx, "s3.put")
	child.Fail(errors.New("bucket missing"))
	child.End()
	parent.End()

	out := buf.String()
	if !strings.Contains(out, "span failed") || !strings.Contains(out, "bucket missing") {
		t.Fatalf("expected failure log, got %q", out)
	}
	if !strings.Contains(out, "parent_span_id") {
		t.Fatalf("expected child span to reference parent, got %q", out)
	}
	if !strings.Contains(out, "span completed") {
		t.Fatalf("expected parent completion log, got %q", out)
	}
}
