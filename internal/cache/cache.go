// Package cache holds the server's read-through caches and the sweeper that
// drops their expired entries.
package cache

import (
	"log/slog"
	"sync"
	"time"

	"findash/internal/log"
)

// Stats counts lookups since the cache was created.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// Cache is a keyed store whose entries expire.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Purge()
	Len() int
	Stats() Stats
}

// Expirer is a cache the Sweeper can clean.
type Expirer interface {
	CleanExpired() int
}

// Sweeper periodically removes expired entries from registered caches.
type Sweeper struct {
	logger *log.Logger

	mu     sync.Mutex
	caches []Expirer
	stop   chan struct{}
	done   chan struct{}
}

// NewSweeper creates a stopped sweeper. logger may be nil.
func NewSweeper(logger *log.Logger) *Sweeper {
	if logger == nil {
		logger = log.New(log.Config{Handler: slog.Default().Handler()})
	}
	return &Sweeper{logger: logger.WithComponent(log.ComponentCache)}
}

func (s *Sweeper) Register(c Expirer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caches = append(s.caches, c)
}

// Start sweeps every interval until Stop. A second Start is a no-op.
func (s *Sweeper) Start(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(interval, s.stop, s.done)
}

func (s *Sweeper) loop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug("Expired cache entries removed", log.FieldCount, n)
			}
		}
	}
}

// Sweep cleans every registered cache once and returns the entries removed.
func (s *Sweeper) Sweep() int {
	s.mu.Lock()
	caches := append([]Expirer(nil), s.caches...)
	s.mu.Unlock()

	removed := 0
	for _, c := range caches {
		removed += c.CleanExpired()
	}
	return removed
}

// Stop ends the sweep loop and waits for it. Stopping a sweeper that never
// started is a no-op.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}
