// Package ratelimit applies a fixed-window request budget per client.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"findash/internal/cache"
)

// Config sets the per-client budget.
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	// MaxClients bounds tracked clients; the least recently seen is
	// forgotten first.
	MaxClients int
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		MaxClients:        10000,
	}
}

type window struct {
	start time.Time
	used  int
}

// Limiter counts requests per client in one-minute windows. A client's
// window is dropped from the tracking cache as soon as it ends.
type Limiter struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu      sync.Mutex
	clients *cache.LRU[*window]
	sweeper *cache.Sweeper
	denied  atomic.Int64
}

// NewLimiter starts a limiter whose expired windows are swept every
// CleanupInterval. Call Stop to end the sweep.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = def.MaxClients
	}

	rl := &Limiter{
		limit:   cfg.RequestsPerMinute,
		period:  time.Minute,
		now:     time.Now,
		clients: cache.NewLRU[*window](cfg.MaxClients, time.Minute),
		sweeper: cache.NewSweeper(nil),
	}
	rl.clients.SetClock(func() time.Time { return rl.now() })
	rl.sweeper.Register(rl.clients)
	rl.sweeper.Start(cfg.CleanupInterval)
	return rl
}

// Allow spends one request from client's current window.
func (rl *Limiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.clients.Get(client)
	if !ok {
		rl.clients.Set(client, &window{start: rl.now(), used: 1})
		return true
	}
	w.used++
	if w.used > rl.limit {
		rl.denied.Add(1)
		return false
	}
	return true
}

// retryAfter returns the whole seconds left in client's window, at least 1.
func (rl *Limiter) retryAfter(client string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	w, ok := rl.clients.Get(client)
	if !ok {
		return 1
	}
	left := rl.period - rl.now().Sub(w.start)
	return max(int((left+time.Second-1)/time.Second), 1)
}

func (rl *Limiter) ActiveClients() int {
	return rl.clients.Len()
}

// Stop ends the sweep loop. It is safe to call more than once.
func (rl *Limiter) Stop() {
	rl.sweeper.Stop()
}

type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

// GetMetrics reports denied requests and tracked clients.
func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   rl.denied.Load(),
		ClientCount: int64(rl.ActiveClients()),
	}
}

// Middleware limits requests whose method is in methods, or every request
// when methods is empty. onLimit writes the rejection; nil falls back to a
// plain 429.
func (rl *Limiter) Middleware(clientOf func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request), methods ...string) func(http.Handler) http.Handler {
	only := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		only[m] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, limited := only[r.Method]; len(only) > 0 && !limited {
				next.ServeHTTP(w, r)
				return
			}
			client := clientOf(r)
			if rl.Allow(client) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter(client)))
			if onLimit == nil {
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
			onLimit(w, r)
		})
	}
}
