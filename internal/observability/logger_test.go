package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_LevelMapping(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		level        string
		debugEnabled bool
	}{
		{name: "debug level", level: "debug", debugEnabled: true},
		{name: "info level", level: "info", debugEnabled: false},
		{name: "empty level defaults to info", level: "", debugEnabled: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			logger, err := NewLogger(tc.level)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if logger == nil {
				t.Fatal("logger should not be nil")
			}

			if got := logger.Core().Enabled(zapcore.DebugLevel); got != tc.debugEnabled {
				t.Fatalf("debug enabled=%v, want=%v", got, tc.debugEnabled)
			}
		})
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger("not-a-level")
	if err == nil {
		t.Fatal("expected error for invalid level")
	}
	if logger != nil {
		t.Fatal("expected nil logger for invalid level")
	}
}

func TestNotificationID_ContextHelpers(t *testing.T) {
	t.Parallel()

	ctx := WithNotificationID(context.Background(), "n-123")

	got, ok := NotificationIDFromContext(ctx)
	if !ok || got != "n-123" {
		t.Fatalf("NotificationIDFromContext() = %q, %v", got, ok)
	}

	if _, ok := NotificationIDFromContext(context.Background()); ok {
		t.Fatal("empty context should not carry a notification id")
	}
}

func TestWithContextLoggerAddsField(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	ctx := WithNotificationID(context.Background(), "n-456")
	WithContextLogger(logger, ctx).Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["notificationId"] != "n-456" {
		t.Fatalf("notificationId field = %v, want n-456", fields["notificationId"])
	}
}
