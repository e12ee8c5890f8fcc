package services_test

import (
	"errors"
	"strings"
	"testing"

	"readscape/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrPersistence, "segmentation", "insert scenes", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"segmentation", "insert scenes", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "classification", "classify page", "timed out", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker by default, got %v", err)
	}
}

func TestDetailsClassifiesKind(t *testing.T) {
	cases := []struct {
		marker error
		kind   string
	}{
		{services.ErrValidation, "validation"},
		{services.ErrTransient, "transient"},
		{services.ErrPermanentAPI, "permanent_api"},
		{services.ErrPersistence, "persistence"},
		{services.ErrTimeout, "timeout"},
		{services.ErrNotFound, "not_found"},
	}
	for _, tc := range cases {
		err := services.Wrap(tc.marker, "stage", "op", "msg", nil)
		if details := services.Details(err); details.Kind != tc.kind {
			t.Fatalf("expected kind %q, got %q", tc.kind, details.Kind)
		}
	}
	if details := services.Details(nil); details.Kind != "unknown" {
		t.Fatalf("expected unknown kind for nil error, got %q", details.Kind)
	}
}

func TestIsRetryable(t *testing.T) {
	if !services.IsRetryable(services.Wrap(services.ErrTransient, "s", "o", "m", nil)) {
		t.Fatal("transient errors should be retryable")
	}
	if !services.IsRetryable(services.Wrap(services.ErrTimeout, "s", "o", "m", nil)) {
		t.Fatal("timeouts should be retryable")
	}
	if services.IsRetryable(services.Wrap(services.ErrValidation, "s", "o", "m", nil)) {
		t.Fatal("validation errors should not be retryable")
	}
	if services.IsRetryable(nil) {
		t.Fatal("nil error should not be retryable")
	}
}
