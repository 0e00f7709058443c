package internal

import (
	"context"
	"sync"
)

// telemetry.go
// Lightweight telemetry hook layer for the query pipeline. Callers may
// register a real emitter (or a test stub) via RegisterTelemetryEmitter;
// the default is a no-op, avoiding a hard dependency on any metrics SDK.

type telemetryEmitter func(ctx context.Context, name string, labels map[string]string, value any)

var (
	teleMu   sync.Mutex
	teleImpl telemetryEmitter = func(ctx context.Context, name string, labels map[string]string, value any) {
		// noop by default
	}
)

// RegisterTelemetryEmitter registers a custom emitter function.
func RegisterTelemetryEmitter(fn telemetryEmitter) {
	teleMu.Lock()
	defer teleMu.Unlock()
	if fn == nil {
		teleImpl = func(ctx context.Context, name string, labels map[string]string, value any) {}
		return
	}
	teleImpl = fn
}

func emit(ctx context.Context, name string, labels map[string]string, value any) {
	teleMu.Lock()
	fn := teleImpl
	teleMu.Unlock()
	fn(ctx, name, labels, value)
}

// EmitStageLatency records a latency measure (milliseconds) for a
// pipeline tier: "deterministic", "ai", or "heuristic".
func EmitStageLatency(ctx context.Context, tier string, ms int64) {
	emit(ctx, "nlq_stage_latency_ms", map[string]string{"tier": tier}, ms)
}

// EmitTierOutcome records whether a tier produced a filter, fell through,
// or failed outright.
func EmitTierOutcome(ctx context.Context, tier, outcome string) {
	emit(ctx, "nlq_tier_outcome", map[string]string{"tier": tier, "outcome": outcome}, 1)
}

// EmitCacheHit records a resolved-filter cache hit for an entity.
func EmitCacheHit(ctx context.Context, entity string) {
	emit(ctx, "nlq_cache_hit", map[string]string{"entity": entity}, 1)
}
