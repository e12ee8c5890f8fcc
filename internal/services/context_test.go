package services_test

import (
	"context"
	"testing"

	"readscape/internal/services"
)

func TestContextRoundTrips(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithBookID(ctx, 42)
	ctx = services.WithStage(ctx, "classification")
	ctx = services.WithLane(ctx, "classify")
	ctx = services.WithRequestID(ctx, "req-1")

	if id, ok := services.BookIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("book id round trip failed: %d %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "classification" {
		t.Fatalf("stage round trip failed: %q %v", stage, ok)
	}
	if lane, ok := services.LaneFromContext(ctx); !ok || lane != "classify" {
		t.Fatalf("lane round trip failed: %q %v", lane, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-1" {
		t.Fatalf("request id round trip failed: %q %v", rid, ok)
	}
}

func TestContextEmptyValuesIgnored(t *testing.T) {
	ctx := services.WithStage(context.Background(), "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("empty stage should not be stored")
	}
	if _, ok := services.BookIDFromContext(context.Background()); ok {
		t.Fatal("missing book id should report false")
	}
}
