package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type ctxKey struct{}

// NewContext returns ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request logger, or one over slog.Default with
// component "unknown".
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// Middleware stores logger in every request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// RequestIDMiddleware tags the context logger with the id requestID returns.
// It must run inside Middleware.
func RequestIDMiddleware(requestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			tagged := FromContext(ctx).With(FieldRequestID, requestID(r))
			next.ServeHTTP(w, r.WithContext(NewContext(ctx, tagged)))
		})
	}
}

// StructuredLogger writes the fixed-shape records for requests and ledger
// mutations.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	sl.logger.InfoContext(ctx, "HTTP request started", Fields{}.Request(r, true).ClientIP(clientIP).Args()...)
}

// LogHTTPEnd logs at warn for 4xx and error for 5xx.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, status int, elapsed time.Duration, clientIP string) {
	level := slog.LevelInfo
	switch {
	case status >= http.StatusInternalServerError:
		level = slog.LevelError
	case status >= http.StatusBadRequest:
		level = slog.LevelWarn
	}
	f := Fields{}.Request(r, false).Response(status, elapsed).ClientIP(clientIP)
	sl.logger.Log(ctx, level, "HTTP request completed", f.Args()...)
}

func (sl *StructuredLogger) LogTransactionAppended(ctx context.Context, ref, kind, account, category string, amount float64) {
	f := Fields{}.Transaction(ref, kind, account, category, amount).Operation(OpAppend)
	sl.logger.InfoContext(ctx, "Transaction appended", f.Args()...)
}

func (sl *StructuredLogger) LogCardChanged(ctx context.Context, op, name string) {
	sl.logger.InfoContext(ctx, "Card changed", Fields{}.Card(name).Operation(op).Args()...)
}

// LogError logs err under operation, after any extra fields.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, extra Fields) {
	sl.logger.ErrorContext(ctx, msg, extra.Err(err).Operation(operation).Args()...)
}
