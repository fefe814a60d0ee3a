package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/petasbytes/go-agent/internal/llm"
	"github.com/petasbytes/go-agent/internal/telemetry"
	"github.com/petasbytes/go-agent/internal/transcript"
	"github.com/petasbytes/go-agent/internal/windowing"
)

// DefaultMaxIterations bounds model requests per turn.
const DefaultMaxIterations = 16

// ErrTurnLimit is returned when a turn keeps requesting tools past MaxIterations.
var ErrTurnLimit = errors.New("turn exceeded model request limit")

// Toolbox is the tool catalog and dispatcher used by a Runner. Invoke must
// always return the text to record; err only classifies the outcome.
type Toolbox interface {
	Schemas() []llm.Tool
	Invoke(ctx context.Context, name, args string) (string, error)
}

// Hooks observe tool execution, e.g. for progress output. Both are optional.
type Hooks struct {
	OnToolStart  func(call transcript.ToolCall)
	OnToolResult func(call transcript.ToolCall, result string, failed bool)
}

type Options struct {
	Model         string
	MaxIterations int // <= 0 means DefaultMaxIterations
	// TokenBudget > 0 sends only the newest whole groups that fit; 0 sends everything.
	TokenBudget int
	Counter     windowing.TokenCounter
	Logger      *zap.Logger
	Hooks       Hooks
}

type Runner struct {
	client llm.Client
	tools  Toolbox
	store  *transcript.Store
	opts   Options
	log    *zap.Logger
}

func New(client llm.Client, toolbox Toolbox, store *transcript.Store, opts Options) *Runner {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.Counter == nil {
		opts.Counter = windowing.HeuristicCounter{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{client: client, tools: toolbox, store: store, opts: opts, log: log}
}

// RunTurn appends input, then alternates model requests and tool dispatch
// until the model answers without requesting tools. Messages appended before
// an error stay in the transcript.
func (r *Runner) RunTurn(ctx context.Context, input string) (*llm.Response, error) {
	ctx, turnID := telemetry.EnsureTurnID(ctx)
	log := r.log.With(zap.String("turn_id", turnID))
	telemetry.EmitTurnStarted(ctx, r.opts.Model, input)

	r.store.AddUserMessage(input)
	schemas := r.tools.Schemas()

	for i := 0; i < r.opts.MaxIterations; i++ {
		resp, err := r.request(ctx, log, schemas)
		if err != nil {
			return nil, err
		}
		r.store.AddAssistantMessage(resp.Message)

		if !resp.WantsTools() || len(resp.Message.ToolCalls) == 0 {
			return resp, nil
		}
		r.execTools(ctx, log, resp.Message.ToolCalls)
	}

	log.Warn("runner: turn limit reached", zap.Int("max_iterations", r.opts.MaxIterations))
	return nil, fmt.Errorf("%w (%d)", ErrTurnLimit, r.opts.MaxIterations)
}

// StreamTurn appends input and streams one reply without a tool catalog,
// calling onDelta per content fragment. The assembled reply is appended only
// when the stream completes cleanly.
func (r *Runner) StreamTurn(ctx context.Context, input string, onDelta func(string)) (*llm.Response, error) {
	ctx, turnID := telemetry.EnsureTurnID(ctx)
	log := r.log.With(zap.String("turn_id", turnID))
	telemetry.EmitTurnStarted(ctx, r.opts.Model, input)

	r.store.AddUserMessage(input)
	window, err := r.window(ctx, log)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	stream, err := r.client.Stream(ctx, llm.Request{Model: r.opts.Model, Messages: window})
	if err != nil {
		telemetry.EmitModelRequest(ctx, r.opts.Model, window, 0, time.Since(start), err)
		return nil, err
	}
	defer stream.Close()

	text, err := llm.Collect(stream, func(d llm.Delta) {
		if onDelta != nil {
			onDelta(d.Content)
		}
	})
	telemetry.EmitModelRequest(ctx, r.opts.Model, window, 0, time.Since(start), err)
	if err != nil {
		log.Warn("runner: stream aborted", zap.Error(err))
		return nil, err
	}

	msg := transcript.Message{Role: transcript.RoleAssistant, Content: text}
	r.store.AddAssistantMessage(msg)
	return &llm.Response{Message: msg, FinishReason: "stop"}, nil
}

func (r *Runner) request(ctx context.Context, log *zap.Logger, schemas []llm.Tool) (*llm.Response, error) {
	window, err := r.window(ctx, log)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := r.client.Complete(ctx, llm.Request{Model: r.opts.Model, Messages: window, Tools: schemas})
	telemetry.EmitModelRequest(ctx, r.opts.Model, window, len(schemas), time.Since(start), err)
	if err != nil {
		log.Warn("runner: model request failed", zap.Error(err))
		return nil, err
	}
	log.Debug("runner: model responded",
		zap.String("finish_reason", resp.FinishReason),
		zap.Int("tool_calls", len(resp.Message.ToolCalls)))
	return resp, nil
}

// window returns the messages to send: everything, or a budgeted window of
// whole groups when TokenBudget is set.
func (r *Runner) window(ctx context.Context, log *zap.Logger) ([]transcript.Message, error) {
	msgs := r.store.Messages()
	if r.opts.TokenBudget <= 0 {
		return msgs, nil
	}
	window, stats := windowing.PrepareSendWindow(msgs, r.opts.TokenBudget, r.opts.Counter)

	turnID, _ := telemetry.TurnIDFromContext(ctx)
	telemetry.Emit("window_prepared", map[string]any{
		"turn_id":            turnID,
		"model":              r.opts.Model,
		"budget":             stats.Budget,
		"total_estimated":    stats.Total,
		"included_groups":    stats.IncludedGroups,
		"skipped_groups":     stats.SkippedGroups,
		"over_budget_newest": stats.OverBudgetNewest,
		"broken_exchanges":   stats.BrokenExchanges,
	})
	if stats.BrokenExchanges > 0 {
		log.Warn("runner: transcript has incomplete tool exchanges", zap.Int("count", stats.BrokenExchanges))
	}
	log.Debug("runner: window prepared",
		zap.Int("budget", stats.Budget),
		zap.Int("estimated", stats.Total),
		zap.Int("groups_in", stats.IncludedGroups),
		zap.Int("groups_skipped", stats.SkippedGroups))

	if stats.OverBudgetNewest {
		return nil, fmt.Errorf("windowing: newest group exceeds token budget %d; raise the budget", r.opts.TokenBudget)
	}
	return window, nil
}

func (r *Runner) execTools(ctx context.Context, log *zap.Logger, calls []transcript.ToolCall) {
	for _, call := range calls {
		if r.opts.Hooks.OnToolStart != nil {
			r.opts.Hooks.OnToolStart(call)
		}

		start := time.Now()
		out, err := r.tools.Invoke(ctx, call.Function.Name, call.Function.Arguments)
		elapsed := time.Since(start)

		outSize := len(out)
		if err != nil {
			outSize = 0
			log.Info("runner: tool failed",
				zap.String("tool", call.Function.Name),
				zap.String("call_id", call.ID),
				zap.Error(err))
		}
		telemetry.EmitToolExec(ctx, call.Function.Name, len(call.Function.Arguments), outSize, elapsed, err != nil)

		r.store.AddToolResult(call.ID, out)
		if r.opts.Hooks.OnToolResult != nil {
			r.opts.Hooks.OnToolResult(call, out, err != nil)
		}
	}
}
