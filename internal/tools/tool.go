// Package tools implements the tool registry: named capabilities the model
// can call during a turn, each with a declared JSON Schema for its input and
// a side-effect classification. The registry is static per deployment; which
// tools are callable in a given turn is a pure function of the request mode.
package tools

import (
	"context"
	"encoding/json"

	"convoflow-backend/internal/llm"
	"convoflow-backend/internal/store"

	"github.com/google/uuid"
)

// Kind classifies a tool's side effects.
type Kind string

const (
	// KindPureQuery marks tools that only read external state.
	KindPureQuery Kind = "pure-query"
	// KindMutating marks tools that write through the persistence layer.
	KindMutating Kind = "mutating"
)

// Tool is one named capability callable by the model.
type Tool interface {
	Name() string
	Description() string
	// Schema returns the JSON Schema the input arguments are validated
	// against before Execute is called.
	Schema() json.RawMessage
	Kind() Kind
	Execute(ctx context.Context, input json.RawMessage) (*Result, error)
}

// Result is the outcome of one tool execution. IsError results are fed back
// into the model loop as tool-level errors, never surfaced as turn failures.
type Result struct {
	Content string
	IsError bool
}

// errorResult builds a tool-level error result.
func errorResult(msg string) *Result {
	return &Result{Content: msg, IsError: true}
}

// TurnContext carries the turn-scoped dependencies mutating tools need.
// It is injected when tools are constructed for a turn, never passed
// through the model.
type TurnContext struct {
	ConversationID uuid.UUID
	UserID         uuid.UUID
	Store          store.Store
	Provider       llm.Provider
	ArtifactModel  string // model used for document generation calls
}

// Factory constructs a tool bound to one turn's context.
type Factory func(tc TurnContext) Tool

// Definition converts a tool into the shape the model provider expects.
func Definition(t Tool) llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        t.Name(),
		Description: t.Description(),
		Schema:      t.Schema(),
	}
}
