package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"findash/internal/api"
	"findash/internal/core"
)

func TestJSONResponseBuilder(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Test", "1").
		Body(map[string]int{"n": 1}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("content type = %q", got)
	}
	if w.Header().Get("Cache-Control") != "no-store" || w.Header().Get("X-Test") != "1" {
		t.Errorf("headers = %v", w.Header())
	}
	if strings.TrimSpace(w.Body.String()) != `{"n":1}` {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestJSONResponseBuilderNoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
}

func TestResultResponse(t *testing.T) {
	tests := []struct {
		res    api.Result
		status int
		body   string
	}{
		{api.Success(api.MsgCardAdded), http.StatusOK, `"success":true`},
		{api.Failure(core.ErrCardNotFound, api.MsgCardNotFound), http.StatusNotFound, `"error":"Card not found"`},
		{api.Failure(errors.New("boom"), api.MsgStorageFailure), http.StatusInternalServerError, `"success":false`},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		ResultResponse(tt.res).Write(w)
		if w.Code != tt.status || !strings.Contains(w.Body.String(), tt.body) {
			t.Errorf("ResultResponse(%+v) = %d %s", tt.res, w.Code, w.Body.String())
		}
		if strings.Contains(w.Body.String(), "boom") {
			t.Errorf("classified error leaked: %s", w.Body.String())
		}
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name   string
		b      *JSONResponseBuilder
		status int
		header string
	}{
		{"bad request", BadRequestError("x"), http.StatusBadRequest, ""},
		{"unauthorized", UnauthorizedError("x"), http.StatusUnauthorized, "WWW-Authenticate"},
		{"method not allowed", MethodNotAllowedError("GET"), http.StatusMethodNotAllowed, "Allow"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.b.Write(w)
			if w.Code != tt.status {
				t.Errorf("status = %d", w.Code)
			}
			if tt.header != "" && w.Header().Get(tt.header) == "" {
				t.Errorf("missing %s header", tt.header)
			}
			if !strings.Contains(w.Body.String(), `"success":false`) {
				t.Errorf("body = %s", w.Body.String())
			}
		})
	}
}
