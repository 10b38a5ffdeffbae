package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"findash/internal/api"
	"findash/internal/auth"
	"findash/internal/cache"
	"findash/internal/log"
	"findash/internal/middleware/ratelimit"
	"findash/internal/middleware/security"
	"findash/internal/middleware/trace"
	"findash/internal/sheets"
)

const (
	snapshotKey     = "snapshot"
	defaultCacheTTL = 30 * time.Second
	fetchTimeout    = 15 * time.Second
	readyTimeout    = 5 * time.Second
)

// Options configures NewServer. Store is required; Auth defaults to a
// service over Store without tokens.
type Options struct {
	Addr   string
	Store  sheets.Store
	Auth   *auth.Service
	Logger *log.Logger

	// CacheTTL bounds how long a fetched snapshot is served. Zero disables
	// caching.
	CacheTTL time.Duration
	// RequireToken makes transaction and card mutations require a bearer
	// token issued at login.
	RequireToken bool
	RateLimit    ratelimit.Config
	CORS         security.CORSConfig
	ChartMonths  int
	Now          func() time.Time
}

type appMetrics struct {
	uptime        time.Time
	mutations     int64
	fetchFailures int64
}

type Server struct {
	http.Server

	store      sheets.Store
	auth       *auth.Service
	dispatcher *api.Dispatcher
	logger     *log.Logger

	snapshots *cache.LRU[sheets.Snapshot]
	sweeper   *cache.Sweeper
	cacheTTL  time.Duration
	fetches   singleflight.Group
	// cacheMu orders snapshot stores against mutations; generation counts
	// mutations so a fetch that overlapped one is never cached.
	cacheMu    sync.Mutex
	generation uint64

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	requireToken bool
	chartMonths  int
	now          func() time.Time
	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Config{Handler: slog.Default().Handler(), Component: log.ComponentHTTP})
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	authSvc := opts.Auth
	if authSvc == nil {
		authSvc = auth.NewService(opts.Store, auth.Options{})
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ChartMonths <= 0 {
		opts.ChartMonths = 6
	}
	if len(opts.CORS.AllowedOrigins) == 0 {
		opts.CORS = security.DefaultCORSConfig()
	}

	mux := http.NewServeMux()
	detector := security.NewDetector()

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:            opts.Store,
		auth:             authSvc,
		dispatcher:       api.NewDispatcher(opts.Store, authSvc, logger),
		logger:           logger,
		snapshots:        cache.NewLRU[sheets.Snapshot](1, opts.CacheTTL),
		sweeper:          cache.NewSweeper(logger),
		cacheTTL:         opts.CacheTTL,
		rateLimiter:      ratelimit.NewLimiter(opts.RateLimit),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP, logger),
		requireToken:     opts.RequireToken,
		chartMonths:      opts.ChartMonths,
		now:              opts.Now,
		appMetrics:       &appMetrics{uptime: opts.Now()},
	}
	s.dispatcher.OnMutation = s.onMutation

	if s.cacheTTL > 0 {
		s.sweeper.Register(s.snapshots)
		s.sweeper.Start(10 * time.Minute)
	}

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/api", s.handleAPI)
	mux.HandleFunc("/api/summary", s.getOnly(s.handleSummary))
	mux.HandleFunc("/api/transactions", s.getOnly(s.handleTransactions))
	mux.HandleFunc("/api/cards", s.getOnly(s.handleCards))
	mux.HandleFunc("/api/monthly", s.getOnly(s.handleMonthly))
	mux.HandleFunc("/api/categories", s.getOnly(s.handleCategories))
	mux.HandleFunc("/api/recipients", s.getOnly(s.handleRecipients))
	mux.HandleFunc("/api/insights", s.getOnly(s.handleInsights))
	mux.HandleFunc("/api/advisor", s.handleAdvisor)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.rateLimiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
	}, http.MethodPost)

	var h http.Handler = mux
	h = limit(h)
	h = security.CORS(opts.CORS)(h)
	h = headers.Middleware(h)
	h = s.withDetection(h)
	h = trace.Recover(func(w http.ResponseWriter, _ *http.Request) {
		ErrorResponse(http.StatusInternalServerError, "Internal server error").Write(w)
	})(h)
	h = log.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(h)
	h = log.Middleware(logger)(h)
	h = s.traceMiddleware.Middleware(h)
	s.Handler = h

	return s
}

// withDetection logs requests matching known probe patterns. They are served
// normally.
func (s *Server) withDetection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason, ok := s.securityDetector.Inspect(r); ok {
			s.logger.WarnContext(r.Context(), "Suspicious request",
				log.FieldReason, string(reason),
				log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			MethodNotAllowedError("GET, HEAD").Write(w)
			return
		}
		next(w, r)
	}
}

func (s *Server) onMutation(ctx context.Context, action string) {
	atomic.AddInt64(&s.appMetrics.mutations, 1)
	s.cacheMu.Lock()
	s.generation++
	s.snapshots.Purge()
	s.fetches.Forget(snapshotKey)
	s.cacheMu.Unlock()
	s.logger.DebugContext(ctx, "Snapshot cache purged", log.FieldAction, action)
}

// snapshot returns the cached snapshot or fetches a fresh one. Concurrent
// misses share one store read.
func (s *Server) snapshot(ctx context.Context) (sheets.Snapshot, error) {
	if s.cacheTTL > 0 {
		if snap, ok := s.snapshots.Get(snapshotKey); ok {
			return snap, nil
		}
	}

	v, err, _ := s.fetches.Do(snapshotKey, func() (any, error) {
		s.cacheMu.Lock()
		gen := s.generation
		s.cacheMu.Unlock()

		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		snap, err := s.store.FetchAll(fctx)
		if err != nil {
			return sheets.Snapshot{}, err
		}
		if s.cacheTTL > 0 {
			s.cacheMu.Lock()
			if s.generation == gen {
				s.snapshots.Set(snapshotKey, snap)
			}
			s.cacheMu.Unlock()
		}
		return snap, nil
	})
	if err != nil {
		atomic.AddInt64(&s.appMetrics.fetchFailures, 1)
		return sheets.Snapshot{}, fmt.Errorf("fetch snapshot: %w", err)
	}
	return v.(sheets.Snapshot), nil
}

// Shutdown stops background cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.sweeper.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
		if errors.Is(shutdownErr, http.ErrServerClosed) {
			shutdownErr = nil
		}
	})
	return shutdownErr
}
