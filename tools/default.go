package tools

import "time"

type Options struct {
	CommandTimeout time.Duration
}

// Default returns the full toolset with the plan tools bound to plan.
func Default(plan *Plan, opts Options) *Registry {
	if plan == nil {
		plan = NewPlan()
	}
	defs := []ToolDefinition{
		WeatherDefinition,
		ReadFileDefinition,
		WriteFileDefinition,
		ListFilesDefinition,
		CommandDefinition(opts.CommandTimeout),
		SearchCodeDefinition,
	}
	return NewRegistry(append(defs, PlanDefinitions(plan)...)...)
}
