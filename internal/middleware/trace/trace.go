// Package trace tags requests with an id, logs them and recovers handler
// panics.
package trace

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"findash/internal/log"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

const maxIncomingIDLen = 64

type requestIDKey struct{}

// WithRequestID returns ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID returns the id stored by the middleware, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// GenerateRequestID returns "req_" followed by a random UUID.
func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

// Metrics is a snapshot of the middleware counters.
type Metrics struct {
	TotalRequests      int64
	ServerErrors       int64
	LastResponseMicros int64
}

type Middleware struct {
	clientIP func(*http.Request) string
	logger   *log.StructuredLogger

	total    atomic.Int64
	failed   atomic.Int64
	lastTook atomic.Int64
}

// NewMiddleware builds the request middleware. clientIP and logger may be
// nil; a nil logger writes to the slog default.
func NewMiddleware(clientIP func(*http.Request) string, logger *log.Logger) *Middleware {
	if logger == nil {
		logger = log.New(log.Config{Handler: slog.Default().Handler()})
	}
	return &Middleware{
		clientIP: clientIP,
		logger:   log.NewStructuredLogger(logger.WithComponent(log.ComponentHTTP)),
	}
}

// Middleware reuses a well-formed incoming X-Request-ID or generates one,
// echoes it on the response and logs the request on both ends.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := incomingRequestID(r)
		if id == "" {
			id = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, id)
		ctx := WithRequestID(r.Context(), id)
		r = r.WithContext(ctx)

		var ip string
		if m.clientIP != nil {
			ip = m.clientIP(r)
		}
		m.total.Add(1)
		m.logger.LogHTTPStart(ctx, r, ip)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		took := time.Since(start)
		m.lastTook.Store(took.Microseconds())
		if sw.status >= http.StatusInternalServerError {
			m.failed.Add(1)
		}
		m.logger.LogHTTPEnd(ctx, r, sw.status, took, ip)
	})
}

func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:      m.total.Load(),
		ServerErrors:       m.failed.Load(),
		LastResponseMicros: m.lastTook.Load(),
	}
}

// incomingRequestID returns the caller's id if it is short printable ASCII.
func incomingRequestID(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(HeaderRequestID))
	if len(id) > maxIncomingIDLen {
		return ""
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '!' || id[i] > '~' {
			return ""
		}
	}
	return id
}

// statusWriter records the first status written.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.written {
		sw.status, sw.written = code, true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	sw.written = true
	return sw.ResponseWriter.Write(b)
}

// Recover turns a handler panic into a 500, written by onPanic when set.
// http.ErrAbortHandler is re-raised.
func Recover(onPanic func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				switch {
				case rec == nil:
					return
				case rec == http.ErrAbortHandler:
					panic(rec)
				}
				log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).ErrorContext(r.Context(), "Handler panic",
					log.FieldRequestID, GetRequestID(r.Context()),
					log.FieldPath, r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()))
				if onPanic == nil {
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				onPanic(w, r)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
