// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating request data:
// the mutation body and the filter and view query parameters.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"findash/internal/api"
	"findash/internal/core"
)

// MaxBodyBytes bounds a mutation request body.
const MaxBodyBytes = 64 << 10

var (
	ErrBodyTooLarge = errors.New("request body too large")
	ErrMalformed    = errors.New("malformed request")
)

// DecodeCommand reads a JSON command from r. The body is parsed as JSON
// whatever the Content-Type, so clients may send text/plain and skip the
// CORS preflight.
func DecodeCommand(w http.ResponseWriter, r *http.Request) (api.Command, error) {
	var cmd api.Command
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return cmd, ErrBodyTooLarge
		}
		return cmd, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return cmd, fmt.Errorf("%w: empty body", ErrMalformed)
	}
	if err := json.Unmarshal(data, &cmd); err != nil {
		return cmd, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	cmd.Action = strings.TrimSpace(cmd.Action)
	return cmd, nil
}

// DecodeQuery reads the advisor request body {"query": "..."}.
func DecodeQuery(w http.ResponseWriter, r *http.Request) (string, error) {
	var req struct {
		Query string `json:"query"`
	}
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer body.Close()
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", ErrBodyTooLarge
		}
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return sanitizeInput(req.Query), nil
}

// ParseCriteria maps the transaction query parameters to filter criteria.
// type "all" or empty matches both kinds. min and max must be numbers.
func ParseCriteria(q url.Values) (core.FilterCriteria, error) {
	c := core.FilterCriteria{
		Account:      sanitizeInput(q.Get("account")),
		Category:     sanitizeInput(q.Get("category")),
		Counterparty: sanitizeInput(q.Get("counterparty")),
		Query:        sanitizeInput(q.Get("q")),
		DateStart:    strings.TrimSpace(q.Get("start")),
		DateEnd:      strings.TrimSpace(q.Get("end")),
	}
	if kind := strings.TrimSpace(q.Get("type")); kind != "" && !strings.EqualFold(kind, "all") {
		c.Kind = core.NormalizeKind(kind)
	}

	for key, dst := range map[string]**float64{"min": &c.AmountMin, "max": &c.AmountMax} {
		v := strings.TrimSpace(q.Get(key))
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return c, fmt.Errorf("%w: %s must be a number", ErrMalformed, key)
		}
		*dst = &f
	}
	return c, nil
}

// ParseIntParam returns the integer query parameter key clamped to
// [lo, hi], or def when it is missing or not a number.
func ParseIntParam(q url.Values, key string, def, lo, hi int) int {
	v, err := strconv.Atoi(strings.TrimSpace(q.Get(key)))
	if err != nil {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
