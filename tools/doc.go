// Package tools defines tool contracts and implementations.
//
// Includes:
//   - ToolDefinition: name, description, JSON input schema, handler.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - Registry: ordered catalog and a dispatcher that always yields a result string.
//   - File tools: readFile, writeFile, listFiles (sandboxed via internal/fsops).
//   - Process tools: executeCommand (shell), searchCode (ripgrep).
//   - Plan tools: createPlan, updatePlanStep, getPlan over a per-session Plan.
//   - getCurrentWeather: canned demo tool.
package tools
