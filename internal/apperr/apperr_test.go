package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bobasync/api/internal/apperr"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.Validation, http.StatusBadRequest},
		{apperr.Authentication, http.StatusUnauthorized},
		{apperr.Forbidden, http.StatusForbidden},
		{apperr.NotFound, http.StatusNotFound},
		{apperr.Conflict, http.StatusConflict},
		{apperr.TooManyRequests, http.StatusTooManyRequests},
		{apperr.Internal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := apperr.Status(apperr.New(tc.kind, "x")); got != tc.want {
			t.Fatalf("kind %d: got %d, want %d", tc.kind, got, tc.want)
		}
	}
	if got := apperr.Status(errors.New("plain")); got != http.StatusInternalServerError {
		t.Fatalf("plain error: got %d", got)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("token expired")
	e := apperr.Wrap(apperr.Authentication, "google authentication failed", cause)

	if !errors.Is(e, cause) {
		t.Fatal("cause lost through wrap")
	}
	// the client-facing message never includes the cause
	if e.Message != "google authentication failed" {
		t.Fatalf("message: %q", e.Message)
	}
	if e.Error() != "google authentication failed: token expired" {
		t.Fatalf("error string: %q", e.Error())
	}

	// Status dispatches through wrapping layers
	outer := fmt.Errorf("handler: %w", e)
	if got := apperr.Status(outer); got != http.StatusUnauthorized {
		t.Fatalf("wrapped status: %d", got)
	}
}

func TestValidationf(t *testing.T) {
	e := apperr.Validationf("invalid date: %s", "2026-13-01")
	if e.Kind != apperr.Validation {
		t.Fatalf("kind: %d", e.Kind)
	}
	if e.Message != "invalid date: 2026-13-01" {
		t.Fatalf("message: %q", e.Message)
	}
}
