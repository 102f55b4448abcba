package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want int
	}{
		{"validation", Validation("missing field"), http.StatusBadRequest},
		{"unauthorized", Unauthorized("bad credentials"), http.StatusUnauthorized},
		{"forbidden", Forbidden("not yours"), http.StatusForbidden},
		{"not found", NotFound("no such exam"), http.StatusNotFound},
		{"conflict", Conflict("username taken"), http.StatusConflict},
		{"upstream", Upstream("AI parse failed", errors.New("bad json")), http.StatusBadGateway},
		{"unavailable", Unavailable("AI not configured"), http.StatusServiceUnavailable},
		{"internal", Internal(errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFrom(t *testing.T) {
	t.Run("typed error survives wrapping", func(t *testing.T) {
		orig := NotFound("exam not found")
		wrapped := fmt.Errorf("get exam: %w", orig)
		got := From(wrapped)
		if got.Kind != KindNotFound {
			t.Errorf("kind = %v, want KindNotFound", got.Kind)
		}
		if got.Msg != "exam not found" {
			t.Errorf("msg = %q", got.Msg)
		}
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		got := From(errors.New("disk full"))
		if got.Kind != KindInternal {
			t.Errorf("kind = %v, want KindInternal", got.Kind)
		}
		if got.Msg != "internal server error" {
			t.Errorf("msg leaks detail: %q", got.Msg)
		}
	})
}

func TestInternalHidesCause(t *testing.T) {
	e := Internal(errors.New("pq: relation does not exist"))
	if e.Msg != "internal server error" {
		t.Errorf("internal error message must be generic, got %q", e.Msg)
	}
	if !errors.Is(e, e.Err) {
		t.Error("cause should be reachable via Unwrap for logging")
	}
}
