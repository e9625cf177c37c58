package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"sparqld/internal/errors"
)

func TestMapErrorToStatus(t *testing.T) {
	tests := []struct {
		code errors.ErrorCode
		want int
	}{
		{errors.BadRequest, http.StatusBadRequest},
		{errors.ParserError, http.StatusInternalServerError},
		{errors.NotAcceptable, http.StatusNotAcceptable},
		{errors.EvaluationFailure, http.StatusInternalServerError},
		{errors.MethodNotAllowed, http.StatusMethodNotAllowed},
		{errors.RateLimited, http.StatusTooManyRequests},
		{errors.InternalError, http.StatusInternalServerError},
		{"UNKNOWN_CODE", http.StatusInternalServerError}, // default case
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			got := MapErrorToStatus(tt.code)
			if got != tt.want {
				t.Errorf("MapErrorToStatus(%q) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	t.Run("writes endpoint error message", func(t *testing.T) {
		w := httptest.NewRecorder()

		status := WriteError(w, errors.NewBadRequest("No query supplied", nil))

		if status != http.StatusBadRequest || w.Code != http.StatusBadRequest {
			t.Errorf("status = %d/%d, want %d", status, w.Code, http.StatusBadRequest)
		}
		if ct := w.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
			t.Errorf("Content-Type = %q, want text/plain", ct)
		}
		if body := w.Body.String(); body != "No query supplied" {
			t.Errorf("body = %q", body)
		}
	})

	t.Run("includes cause", func(t *testing.T) {
		w := httptest.NewRecorder()

		WriteError(w, errors.NewParserError(fmt.Errorf("unexpected token at 1:8")))

		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", w.Code)
		}
		if body := w.Body.String(); body != "Failed to parse query: unexpected token at 1:8" {
			t.Errorf("body = %q", body)
		}
	})

	t.Run("unknown error gets diagnostic", func(t *testing.T) {
		w := httptest.NewRecorder()

		WriteError(w, fmt.Errorf("disk on fire"))

		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", w.Code)
		}
		if body := w.Body.String(); body != "*** Failed to evaluate query:\n*** - disk on fire" {
			t.Errorf("body = %q", body)
		}
	})

	t.Run("method not allowed sets Allow", func(t *testing.T) {
		w := httptest.NewRecorder()

		WriteError(w, errors.NewEndpointError(errors.MethodNotAllowed, "Method not allowed: PUT", nil))

		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", w.Code)
		}
		if allow := w.Header().Get("Allow"); allow != "GET, POST" {
			t.Errorf("Allow = %q, want GET, POST", allow)
		}
	})

	t.Run("wrapped endpoint error keeps its code", func(t *testing.T) {
		w := httptest.NewRecorder()

		WriteError(w, errors.Wrap(errors.NewNotAcceptable("No acceptable result format"), "render"))

		if w.Code != http.StatusNotAcceptable {
			t.Errorf("status = %d, want 406", w.Code)
		}
	})
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, map[string]string{"status": "ok"}, http.StatusCreated)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if body := w.Body.String(); body != "{\"status\":\"ok\"}\n" {
		t.Errorf("body = %q", body)
	}
}
