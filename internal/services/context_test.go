package services_test

import (
	"context"
	"testing"

	"lingocast/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithPodcastID(ctx, "42")
	ctx = services.WithStage(ctx, "synthesize")
	ctx = services.WithRoute(ctx, "/dashboard")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.PodcastIDFromContext(ctx); !ok || id != "42" {
		t.Fatalf("unexpected podcast id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "synthesize" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if route, ok := services.RouteFromContext(ctx); !ok || route != "/dashboard" {
		t.Fatalf("unexpected route: %v %v", route, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}
