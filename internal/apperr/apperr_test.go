package apperr

import (
	"errors"
	"net/http"
	"testing"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindUnauthenticated, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusBadRequest},
		{KindUpstreamTransient, http.StatusBadGateway},
		{KindUpstreamPermanent, http.StatusBadGateway},
		{KindQuotaExhausted, http.StatusForbidden},
		{KindCapacityUnavailable, http.StatusServiceUnavailable},
		{KindInternal, http.StatusInternalServerError},
		{KindSettingsConflict, http.StatusConflict},
		{Kind("unknown"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		e := New(tt.kind, "x")
		if got := e.StatusCode(); got != tt.want {
			t.Errorf("New(%s).StatusCode() = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !UpstreamTransient("timeout", nil).Retryable() {
		t.Error("upstream-transient should be retryable")
	}
	if !CapacityUnavailable("no capacity").Retryable() {
		t.Error("capacity-unavailable should be retryable")
	}
	if UpstreamPermanent("bad request", nil).Retryable() {
		t.Error("upstream-permanent should not be retryable")
	}
	if Validation("bad input").Retryable() {
		t.Error("validation should not be retryable")
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	e := UpstreamTransient("launch failed", cause)

	if !errors.Is(e, cause) {
		t.Error("Wrap() should preserve the underlying error for errors.Is")
	}
	if e.Error() != "launch failed: connection refused" {
		t.Errorf("Error() = %q", e.Error())
	}
}

func TestAs(t *testing.T) {
	e := NotFound("vm")
	ae, ok := As(e)
	if !ok {
		t.Fatal("As() should succeed for an *Error")
	}
	if ae.Kind != KindNotFound {
		t.Errorf("Kind = %s, want %s", ae.Kind, KindNotFound)
	}

	_, ok = As(errors.New("plain error"))
	if ok {
		t.Error("As() should fail for a non-apperr error")
	}
}
