// Package chat implements the turn pipeline: normalizing inbound history,
// orchestrating the model loop with tool rounds, synthesizing titles, and
// streaming incremental output to the client.
package chat

import "encoding/json"

// Event types streamed to the client during a turn.
const (
	EventTextDelta      = "text-delta"
	EventReasoningDelta = "reasoning-delta"
	EventToolCall       = "tool-call"
	EventToolResult     = "tool-result"
	EventError          = "error"
	EventDone           = "done"
)

// Event is one streamed increment of turn output. The payload fields used
// depend on Type.
type Event struct {
	Type       string          `json:"type"`
	Delta      string          `json:"delta,omitempty"`
	ToolCallID string          `json:"toolCallId,omitempty"`
	ToolName   string          `json:"toolName,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     string          `json:"output,omitempty"`
	IsError    bool            `json:"isError,omitempty"`
	Message    string          `json:"message,omitempty"`
}

// EventSink receives turn events in order. Send errors indicate the client
// is gone; the orchestrator keeps draining the turn regardless so that
// persistence still happens.
type EventSink interface {
	Send(ev Event) error
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(ev Event) error

func (f SinkFunc) Send(ev Event) error { return f(ev) }
