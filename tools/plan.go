package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
)

// ErrNoPlan is returned by step updates before any plan exists.
var ErrNoPlan = errors.New("no plan exists yet")

type PlanStep struct {
	Index  int        `json:"index"`
	Text   string     `json:"text"`
	Status StepStatus `json:"status"`
}

type PlanView struct {
	Title string     `json:"title"`
	Steps []PlanStep `json:"steps"`
}

// Plan is the working plan of one session. The zero value holds no plan.
type Plan struct {
	mu    sync.Mutex
	title string
	steps []PlanStep
}

func NewPlan() *Plan { return &Plan{} }

// Create replaces the current plan. Blank steps are dropped; every kept step
// starts pending.
func (p *Plan) Create(title string, steps []string) (PlanView, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return PlanView{}, errors.New("title is required")
	}
	var kept []PlanStep
	for _, s := range steps {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, PlanStep{Index: len(kept) + 1, Text: s, Status: StepPending})
		}
	}
	if len(kept) == 0 {
		return PlanView{}, errors.New("steps must contain at least one non-empty step")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.title, p.steps = title, kept
	return p.viewLocked(), nil
}

// Update sets the status of the 1-based step index.
func (p *Plan) Update(index int, status StepStatus) (PlanStep, error) {
	switch status {
	case StepPending, StepInProgress, StepCompleted:
	default:
		return PlanStep{}, fmt.Errorf("invalid status %q: want pending, in_progress or completed", status)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.steps == nil {
		return PlanStep{}, ErrNoPlan
	}
	if index < 1 || index > len(p.steps) {
		return PlanStep{}, fmt.Errorf("index %d out of range 1..%d", index, len(p.steps))
	}
	p.steps[index-1].Status = status
	return p.steps[index-1], nil
}

// View returns a copy of the plan, false when none exists.
func (p *Plan) View() (PlanView, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.steps == nil {
		return PlanView{}, false
	}
	return p.viewLocked(), true
}

func (p *Plan) viewLocked() PlanView {
	return PlanView{Title: p.title, Steps: append([]PlanStep(nil), p.steps...)}
}

type CreatePlanInput struct {
	Title string   `json:"title" jsonschema_description:"Plan title."`
	Steps []string `json:"steps" jsonschema_description:"Ordered step descriptions."`
}

type UpdatePlanStepInput struct {
	Index  int    `json:"index" jsonschema_description:"Step number, starting at 1."`
	Status string `json:"status" jsonschema:"enum=pending,enum=in_progress,enum=completed" jsonschema_description:"New step status."`
}

type GetPlanInput struct{}

// PlanDefinitions binds the plan tools to p.
func PlanDefinitions(p *Plan) []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "createPlan",
			Description: "Create an execution plan. For complex tasks, plan first, then execute step by step.",
			InputSchema: GenerateSchema[CreatePlanInput](),
			Function: func(_ context.Context, input json.RawMessage) (string, error) {
				in, err := decode[CreatePlanInput](input)
				if err != nil {
					return "", err
				}
				view, err := p.Create(in.Title, in.Steps)
				if err != nil {
					return "", err
				}
				return marshalString(map[string]any{"message": "plan created", "plan": view})
			},
		},
		{
			Name:        "updatePlanStep",
			Description: "Update the status of one plan step.",
			InputSchema: GenerateSchema[UpdatePlanStepInput](),
			Function: func(_ context.Context, input json.RawMessage) (string, error) {
				in, err := decode[UpdatePlanStepInput](input)
				if err != nil {
					return "", err
				}
				step, err := p.Update(in.Index, StepStatus(in.Status))
				if err != nil {
					return "", err
				}
				return marshalString(map[string]any{"message": "step updated", "step": step})
			},
		},
		{
			Name:        "getPlan",
			Description: "Get the current execution plan.",
			InputSchema: GenerateSchema[GetPlanInput](),
			Function: func(context.Context, json.RawMessage) (string, error) {
				view, ok := p.View()
				if !ok {
					return "No plan exists yet.", nil
				}
				return marshalString(view)
			},
		},
	}
}

func marshalString(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
