package services

import "context"

type contextKey string

const (
	podcastIDKey contextKey = "podcast_id"
	stageKey     contextKey = "stage"
	routeKey     contextKey = "route"
	requestIDKey contextKey = "request_id"
)

// WithPodcastID annotates context with the backend podcast identifier.
func WithPodcastID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, podcastIDKey, id)
}

// PodcastIDFromContext extracts the podcast identifier if present.
func PodcastIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(podcastIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the workflow stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRoute annotates context with the screen route the operation serves.
func WithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey, route)
}

// RouteFromContext returns the route if present.
func RouteFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(routeKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
