package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/petasbytes/go-agent/internal/metrics"
	"github.com/petasbytes/go-agent/internal/transcript"
)

type turnIDKey struct{}

// WithTurnID returns ctx carrying id.
func WithTurnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, turnIDKey{}, id)
}

// TurnIDFromContext reports the turn id carried by ctx. An empty id counts as absent.
func TurnIDFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(turnIDKey{}).(string)
	return s, ok && s != ""
}

// EnsureTurnID returns ctx carrying a turn id, minting a uuid when absent.
func EnsureTurnID(ctx context.Context) (context.Context, string) {
	if id, ok := TurnIDFromContext(ctx); ok {
		return ctx, id
	}
	id := uuid.NewString()
	return WithTurnID(ctx, id), id
}

func turnID(ctx context.Context) string {
	id, _ := TurnIDFromContext(ctx)
	return id
}

// EmitTurnStarted records text features of the user input, not the text.
func EmitTurnStarted(ctx context.Context, model, user string) {
	if !ObserveEnabled() {
		return
	}
	Emit("turn_started", map[string]any{
		"turn_id":          turnID(ctx),
		"model":            model,
		"features_version": "1",
		"user":             metrics.CountFeatures(user),
	})
}

// EmitModelRequest records one model round trip over window.
func EmitModelRequest(ctx context.Context, model string, window []transcript.Message, tools int, elapsed time.Duration, err error) {
	if !ObserveEnabled() {
		return
	}
	w := metrics.CountWindow(window)
	fields := map[string]any{
		"turn_id":     turnID(ctx),
		"model":       model,
		"messages":    w.Messages,
		"window":      w,
		"tools":       tools,
		"duration_ms": elapsed.Milliseconds(),
		"error":       nil,
	}
	if err != nil {
		fields["error"] = "model error"
	}
	Emit("model_request", fields)
}

// EmitToolExec records one tool dispatch. Only sizes are kept; failed is
// reported as a generic marker so error text cannot leak payloads.
func EmitToolExec(ctx context.Context, tool string, inputSize, outputSize int, elapsed time.Duration, failed bool) {
	if !ObserveEnabled() {
		return
	}
	fields := map[string]any{
		"turn_id":     turnID(ctx),
		"tool_name":   tool,
		"input_size":  inputSize,
		"output_size": outputSize,
		"duration_ms": elapsed.Milliseconds(),
		"error":       nil,
	}
	if failed {
		fields["error"] = "tool error"
	}
	Emit("tool_exec", fields)
}
