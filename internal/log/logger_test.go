package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoggerComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentApp, Output: &buf})

	l.WithComponent(ComponentWorker).WithComponent(ComponentAMQP).Info("hello", "k", "v")

	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=amqp") {
		t.Fatalf("unexpected component attrs: %s", out)
	}
	if !strings.Contains(out, "k=v") {
		t.Fatalf("missing attribute: %s", out)
	}
}

func TestLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Component: ComponentApp, Output: &buf})
	l.Info("hidden")
	l.Debug("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("level filtering failed: %s", buf.String())
	}
}

func TestFieldsOrderAndOmissions(t *testing.T) {
	f := Fields{}.
		Transaction("", "Expense", "Bank", "Food", 12.5).
		Err(nil).
		Card("Visa")
	want := []any{
		FieldKind, "Expense",
		FieldAccount, "Bank",
		FieldCategory, "Food",
		FieldAmount, 12.5,
		FieldCardName, "Visa",
	}
	got := f.Args()
	if len(got) != len(want) {
		t.Fatalf("Args() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Args()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLogHTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "level=INFO"},
		{http.StatusNotFound, "level=WARN"},
		{http.StatusBadGateway, "level=ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(New(Config{Component: ComponentTrace, Output: &buf}))
		r := httptest.NewRequest(http.MethodGet, "/api?summary", nil)
		sl.LogHTTPEnd(context.Background(), r, tt.status, 1500*time.Microsecond, "10.0.0.1")

		out := buf.String()
		for _, want := range []string{tt.level, "query=summary", "duration_ms=1", "client_ip=10.0.0.1"} {
			if !strings.Contains(out, want) {
				t.Errorf("status %d: missing %q in %s", tt.status, want, out)
			}
		}
	}
}

func TestMiddlewareAndFromContext(t *testing.T) {
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("missing logger should fall back to default")
	}

	var buf bytes.Buffer
	base := New(Config{Component: ComponentHTTP, Output: &buf})
	var got *Logger
	h := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
			NewStructuredLogger(got).LogError(r.Context(), "boom", errors.New("bad"), OpFetch, nil)
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api", nil))

	if got == nil || got.Component() != ComponentHTTP {
		t.Fatalf("logger not propagated: %+v", got)
	}
	out := buf.String()
	for _, want := range []string{"request_id=req-1", "error=bad", "operation=fetch"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}
