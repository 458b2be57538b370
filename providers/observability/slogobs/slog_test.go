package slogobs

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/leofalp/textstruct/providers/observability"
)

func newTestObserver(buf *bytes.Buffer, level slog.Level) *Observer {
	return New(
		WithFormat(FormatCompact),
		WithLevel(level),
		WithOutput(buf),
	)
}

func TestObserver_Logging(t *testing.T) {
	var buf bytes.Buffer
	observer := newTestObserver(&buf, LevelTrace)
	ctx := context.Background()

	observer.Trace(ctx, "trace message")
	observer.Debug(ctx, "debug message")
	observer.Info(ctx, "info message", observability.String(observability.AttrProcessID, "abc"))
	observer.Warn(ctx, "warn message")
	observer.Error(ctx, "error message")

	output := buf.String()
	for _, want := range []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", `"process.id":"abc"`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestObserver_Counter(t *testing.T) {
	var buf bytes.Buffer
	observer := newTestObserver(&buf, slog.LevelDebug)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			observer.Counter("attempts").Add(ctx, 1)
		}()
	}
	wg.Wait()

	if got := observer.CounterValue("attempts"); got != 10 {
		t.Errorf("expected counter value 10, got %d", got)
	}
	if got := observer.CounterValue("missing"); got != 0 {
		t.Errorf("expected 0 for unknown counter, got %d", got)
	}
	if observer.Counter("attempts") != observer.Counter("attempts") {
		t.Error("expected the same counter instance for the same name")
	}
}

func TestObserver_Histogram(t *testing.T) {
	var buf bytes.Buffer
	observer := newTestObserver(&buf, slog.LevelDebug)

	observer.Histogram("latency").Record(context.Background(), 12.5, observability.Int(observability.AttrTransportAttempt, 1))

	output := buf.String()
	if !strings.Contains(output, `"metric":"latency"`) || !strings.Contains(output, `"value":12.5`) {
		t.Errorf("unexpected histogram output: %s", output)
	}
}

func TestObserver_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	observer := New(WithLogger(logger))

	if observer.Logger() != logger {
		t.Error("expected provided logger to be used")
	}
	observer.Info(context.Background(), "through text handler")
	if !strings.Contains(buf.String(), "msg=\"through text handler\"") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestObserver_With(t *testing.T) {
	var buf bytes.Buffer
	observer := newTestObserver(&buf, slog.LevelInfo)

	scoped := observer.With(observability.String(observability.AttrProcessID, "p-42"))
	scoped.Info(context.Background(), "scoped message")
	observer.Info(context.Background(), "plain message")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"process.id":"p-42"`) {
		t.Errorf("scoped line lacks the attribute: %s", lines[0])
	}
	if strings.Contains(lines[1], "p-42") {
		t.Errorf("parent observer must not be affected: %s", lines[1])
	}

	scoped.Counter("shared").Add(context.Background(), 2)
	if observer.CounterValue("shared") != 2 {
		t.Error("expected metrics to be shared with the parent")
	}
}
