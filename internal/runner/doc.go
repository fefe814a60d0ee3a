// Package runner drives one user turn against a model client and dispatches
// tool calls.
//
// Invariants:
//   - An assistant message with tool_calls is followed by exactly one tool
//     message per call, in call order, before the next model request.
//   - Tool calls run sequentially; tools may share mutable state (e.g. a plan).
//   - A tool failure becomes result text; only model errors abort a turn.
//
// Flow:
//
//	user(text) -> assistant(tool_calls) -> tool(result)... -> assistant(text)
package runner
