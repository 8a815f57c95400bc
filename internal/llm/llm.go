// Package llm defines the model provider abstraction used by the chat
// orchestrator: a streaming completion interface with mid-stream tool-call
// exchange, plus the message and chunk types that cross it.
package llm

import (
	"context"
	"encoding/json"
	"strings"

	"convoflow-backend/internal/models"
)

// ToolCall is a structured tool invocation requested by the model.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResult is the outcome of executing a tool call, fed back into the
// model loop on the next round.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}

// ToolDefinition describes one callable tool to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Schema      json.RawMessage // JSON Schema for the input arguments
}

// CompletionMessage is one normalized message submitted to the model.
// Attachments are only populated for the newest user message; older
// messages are flattened to plain text before they get here.
type CompletionMessage struct {
	Role        string
	Content     string
	Attachments []models.Attachment
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// CompletionRequest is a single model invocation: system prompt, normalized
// history, and the active tool set for this round.
type CompletionRequest struct {
	Model          string
	System         string
	Messages       []CompletionMessage
	Tools          []ToolDefinition
	MaxTokens      int
	EnableThinking bool
}

// CompletionChunk is one streamed increment of model output. Exactly one of
// the payload fields is meaningful per chunk.
type CompletionChunk struct {
	Text          string
	Thinking      string
	ThinkingStart bool
	ThinkingEnd   bool
	ToolCall      *ToolCall
	Done          bool
	Error         error
}

// Provider abstracts a concrete model backend. Complete returns immediately
// with a channel of chunks; the channel is closed when the stream ends.
// Streaming errors arrive as chunks with Error set, not as the returned
// error, which only covers request construction.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error)
}

// CompleteText drains a full completion into a single string. Used for
// one-shot calls (title synthesis, document generation) where streaming
// granularity is irrelevant.
func CompleteText(ctx context.Context, p Provider, req *CompletionRequest) (string, error) {
	chunks, err := p.Complete(ctx, req)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for chunk := range chunks {
		if chunk.Error != nil {
			return "", chunk.Error
		}
		if chunk.Text != "" {
			sb.WriteString(chunk.Text)
		}
	}

	return sb.String(), nil
}
