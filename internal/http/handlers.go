package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"findash/internal/advisor"
	"findash/internal/api"
	"findash/internal/log"
	"findash/internal/sheets"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reads the store directly, bypassing the snapshot cache.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{
		"cache":        map[string]any{"entries": s.snapshots.Len(), "ttl": s.cacheTTL.String()},
		"rate_limiter": map[string]any{"active_clients": s.rateLimiter.ActiveClients()},
	}

	if _, err := s.store.FetchAll(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("mutations_total", "counter", "Successful transaction and card mutations", atomic.LoadInt64(&s.appMetrics.mutations))
	cacheStats := s.snapshots.Stats()
	metric("cache_hits_total", "counter", "Snapshot cache hits", cacheStats.Hits)
	metric("cache_misses_total", "counter", "Snapshot cache misses", cacheStats.Misses)
	metric("fetch_failures_total", "counter", "Failed store reads", atomic.LoadInt64(&s.appMetrics.fetchFailures))
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(s.appMetrics.uptime).Seconds()))
}

// handleAPI serves the read (GET) and the mutation commands (POST).
func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.handleFetch(w, r)
	case http.MethodPost:
		s.handleCommand(w, r)
	default:
		MethodNotAllowedError("GET, HEAD, POST, OPTIONS").Write(w)
	}
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(api.NewFetchResponse(snap)).Write(w)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())

	cmd, err := DecodeCommand(w, r)
	if errors.Is(err, ErrBodyTooLarge) {
		ErrorResponse(http.StatusRequestEntityTooLarge, "Request body too large").Write(w)
		return
	}
	if err != nil {
		logger.WarnContext(r.Context(), "Malformed command", log.FieldError, err)
		BadRequestError("Invalid JSON body").Write(w)
		return
	}

	if s.requireToken && cmd.IsMutation() {
		user, err := s.auth.VerifyToken(bearerToken(r))
		if err != nil {
			logger.WarnContext(r.Context(), "Mutation rejected", log.FieldAction, cmd.Action, log.FieldError, err)
			UnauthorizedError("Authentication required").Write(w)
			return
		}
		logger = logger.With(log.FieldUsername, user)
	}

	res := s.dispatcher.Dispatch(r.Context(), cmd)
	if !res.Success {
		logger.InfoContext(r.Context(), "Command rejected",
			log.FieldAction, cmd.Action,
			log.FieldError, res.Err)
	}
	ResultResponse(res).Write(w)
}

// loadSnapshot writes a 502 failure and returns false when the store read
// fails.
func (s *Server) loadSnapshot(w http.ResponseWriter, r *http.Request) (sheets.Snapshot, bool) {
	snap, err := s.snapshot(r.Context())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Snapshot fetch failed",
			log.FieldOperation, log.OpFetch,
			log.FieldError, err)
		NewJSONResponse().
			Status(http.StatusBadGateway).
			Body(api.FetchResponse{
				Success:      false,
				Transactions: []api.TransactionDTO{},
				Cards:        []api.CardDTO{},
				Error:        api.MsgStorageFailure,
			}).
			Write(w)
		return sheets.Snapshot{}, false
	}
	return snap, true
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	criteria, err := ParseCriteria(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	snap, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}
	view := api.NewTransactionsView(snap.Transactions, criteria)
	NewJSONResponse().Body(view.Summary).Write(w)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	criteria, err := ParseCriteria(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	snap, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(api.NewTransactionsView(snap.Transactions, criteria)).Write(w)
}

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(api.NewCardBalances(snap.Cards, snap.Transactions)).Write(w)
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	months := ParseIntParam(r.URL.Query(), "months", s.chartMonths, 1, 24)
	snap, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(api.NewMonthlySeries(snap.Transactions, months, s.now())).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(api.NewCategoryTotals(snap.Transactions)).Write(w)
}

func (s *Server) handleRecipients(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r.URL.Query(), "limit", 4, 1, 50)
	snap, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(api.NewTopRecipients(snap.Transactions, limit)).Write(w)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(advisor.Insights(snap.Transactions)).Write(w)
}

func (s *Server) handleAdvisor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST, OPTIONS").Write(w)
		return
	}
	query, err := DecodeQuery(w, r)
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		ErrorResponse(http.StatusRequestEntityTooLarge, "Request body too large").Write(w)
		return
	case err != nil:
		BadRequestError("Invalid JSON body").Write(w)
		return
	case query == "":
		BadRequestError("Query required").Write(w)
		return
	}
	snap, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(map[string]any{
		"success":  true,
		"response": advisor.Respond(query, snap.Transactions, s.now()),
	}).Write(w)
}
