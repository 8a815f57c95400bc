package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"convoflow-backend/internal/llm"
	"convoflow-backend/internal/models"
	"convoflow-backend/internal/store"
	"convoflow-backend/internal/tools"

	"github.com/google/uuid"
)

// Sentinel errors mapped to HTTP statuses by the chat handler.
var (
	// ErrNoUserMessage means the request history contains no user message
	// to respond to.
	ErrNoUserMessage = errors.New("no user message in request")
	// ErrNotOwner means the conversation exists but belongs to another user.
	ErrNotOwner = errors.New("conversation is not owned by the requesting user")
)

const systemPrompt = `You are a friendly assistant. Keep your responses concise and helpful. When a tool can answer the user's request, call it instead of guessing.`

// clientErrorMessage is the only error text streamed to clients; internal
// detail stays in the server log.
const clientErrorMessage = "An error occurred while processing your request."

// OrchestratorConfig carries the model routing and loop limits for turns.
type OrchestratorConfig struct {
	ChatModel      string
	ReasoningModel string
	ArtifactModel  string
	MaxToolSteps   int
}

// Orchestrator runs chat turns: it validates the request, persists the
// inbound user message before any model call, then drives the streaming
// model loop with bounded tool rounds.
type Orchestrator struct {
	store    store.Store
	provider llm.Provider
	registry *tools.Registry
	titles   *Synthesizer
	cfg      OrchestratorConfig
}

func NewOrchestrator(st store.Store, provider llm.Provider, registry *tools.Registry, titles *Synthesizer, cfg OrchestratorConfig) *Orchestrator {
	if cfg.MaxToolSteps <= 0 {
		cfg.MaxToolSteps = 5
	}
	return &Orchestrator{
		store:    st,
		provider: provider,
		registry: registry,
		titles:   titles,
		cfg:      cfg,
	}
}

// Turn is one validated chat turn whose inbound user message is already
// durable, ready to stream.
type Turn struct {
	o *Orchestrator

	Conversation models.Conversation
	model        string
	thinking     bool
	messages     []llm.CompletionMessage
	active       []tools.Tool
	maxSteps     int
}

// Begin validates the turn request, resolves or creates the conversation,
// and persists the inbound user message. It returns before any model
// streaming happens so the handler can map validation failures to proper
// HTTP statuses instead of mid-stream errors.
func (o *Orchestrator) Begin(ctx context.Context, userID uuid.UUID, req *models.TurnRequest) (*Turn, error) {
	latest := LatestUserMessage(req.Messages)
	if latest == nil {
		return nil, ErrNoUserMessage
	}

	conv, err := o.store.GetConversationByID(ctx, req.ID)
	switch {
	case err == nil:
		if conv.UserID != userID {
			return nil, ErrNotOwner
		}
	case errors.Is(err, store.ErrNotFound):
		title := o.titles.TitleForConversation(ctx, flattenText(latest.Parts))
		if createErr := o.store.CreateConversation(ctx, store.CreateConversationParams{
			ID:     req.ID,
			UserID: userID,
			Title:  title,
		}); createErr != nil {
			return nil, fmt.Errorf("failed to create conversation: %w", createErr)
		}
		conv = &models.Conversation{ID: req.ID, UserID: userID, Title: title, Visibility: models.VisibilityPrivate}
	default:
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	inbound := models.Message{
		ID:             latest.ID,
		ConversationID: conv.ID,
		Role:           models.RoleUser,
		Parts:          latest.Parts,
		Attachments:    latest.Attachments,
		CreatedAt:      time.Now().UTC(),
	}
	if err := o.store.AppendMessages(ctx, []models.Message{inbound}); err != nil {
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("failed to persist user message: %w", err)
		}
		// Retried turn: the message is already durable, carry on.
	}

	normalized, warnings := NormalizeHistory(req.Messages, latest.ID)
	for _, w := range warnings {
		log.Printf("WARN: conversation %s: %s", conv.ID, w)
	}

	model := o.cfg.ChatModel
	thinking := false
	if req.Mode == tools.ModeReasoning {
		model = o.cfg.ReasoningModel
		thinking = true
	}

	tc := tools.TurnContext{
		ConversationID: conv.ID,
		UserID:         userID,
		Store:          o.store,
		Provider:       o.provider,
		ArtifactModel:  o.cfg.ArtifactModel,
	}

	return &Turn{
		o:            o,
		Conversation: *conv,
		model:        model,
		thinking:     thinking,
		messages:     normalized,
		active:       o.registry.ActiveTools(req.Mode, tc),
		maxSteps:     o.cfg.MaxToolSteps,
	}, nil
}

// roundOutput is what one streamed model round produced.
type roundOutput struct {
	text      string
	toolCalls []llm.ToolCall
}

// emit sends an event and downgrades a send failure to a log line. Once the
// client is gone the turn still runs to completion so persistence happens.
func emit(sink EventSink, gone *bool, ev Event) {
	if *gone {
		return
	}
	if err := sink.Send(ev); err != nil {
		log.Printf("WARN: client disconnected mid-stream, draining turn: %v", err)
		*gone = true
	}
}

// streamRound runs one model call, forwarding word-chunked text deltas and
// reasoning deltas to the sink while collecting the round's full text and
// any tool calls.
func (t *Turn) streamRound(ctx context.Context, sink EventSink, gone *bool) (*roundOutput, error) {
	defs := make([]llm.ToolDefinition, 0, len(t.active))
	for _, tool := range t.active {
		defs = append(defs, tools.Definition(tool))
	}

	chunks, err := t.o.provider.Complete(ctx, &llm.CompletionRequest{
		Model:          t.model,
		System:         systemPrompt,
		Messages:       t.messages,
		Tools:          defs,
		EnableThinking: t.thinking,
	})
	if err != nil {
		return nil, err
	}

	var out roundOutput
	var chunker wordChunker
	var fullText []byte
	for chunk := range chunks {
		if chunk.Error != nil {
			return nil, chunk.Error
		}
		if chunk.Thinking != "" {
			emit(sink, gone, Event{Type: EventReasoningDelta, Delta: chunk.Thinking})
		}
		if chunk.Text != "" {
			fullText = append(fullText, chunk.Text...)
			for _, word := range chunker.Write(chunk.Text) {
				emit(sink, gone, Event{Type: EventTextDelta, Delta: word})
			}
		}
		if chunk.ToolCall != nil {
			out.toolCalls = append(out.toolCalls, *chunk.ToolCall)
		}
	}
	for _, word := range chunker.Flush() {
		emit(sink, gone, Event{Type: EventTextDelta, Delta: word})
	}

	out.text = string(fullText)
	return &out, nil
}

// findTool resolves a tool call against the turn's active set.
func (t *Turn) findTool(name string) tools.Tool {
	for _, tool := range t.active {
		if tool.Name() == name {
			return tool
		}
	}
	return nil
}

// Stream drives the model loop to completion, emitting events to the sink
// as output arrives. Tool rounds are bounded by the step limit; when the
// model is still requesting tools at the limit, the turn ends with what has
// streamed so far. Sink failures are treated as a departed client and never
// abort the loop. The assistant message is persisted best-effort: a
// persistence failure is logged, not surfaced.
func (t *Turn) Stream(ctx context.Context, sink EventSink) error {
	gone := false
	var parts []models.ContentPart

	for step := 0; step < t.maxSteps; step++ {
		round, err := t.streamRound(ctx, sink, &gone)
		if err != nil {
			log.Printf("ERROR: conversation %s: model stream failed: %v", t.Conversation.ID, err)
			emit(sink, &gone, Event{Type: EventError, Message: clientErrorMessage})
			return err
		}

		if round.text != "" {
			parts = append(parts, models.TextPart(round.text))
		}

		if len(round.toolCalls) == 0 {
			break
		}

		t.messages = append(t.messages, llm.CompletionMessage{
			Role:      models.RoleAssistant,
			Content:   round.text,
			ToolCalls: round.toolCalls,
		})

		results := make([]llm.ToolResult, 0, len(round.toolCalls))
		for _, call := range round.toolCalls {
			emit(sink, &gone, Event{
				Type:       EventToolCall,
				ToolCallID: call.ID,
				ToolName:   call.Name,
				Input:      call.Input,
			})
			parts = append(parts, models.ContentPart{
				Type:       models.PartTypeToolCall,
				ToolCallID: call.ID,
				ToolName:   call.Name,
				Input:      call.Input,
			})

			var result *tools.Result
			if tool := t.findTool(call.Name); tool != nil {
				result = tools.Execute(ctx, tool, call.Input)
			} else {
				result = &tools.Result{Content: fmt.Sprintf("unknown tool: %s", call.Name), IsError: true}
			}

			emit(sink, &gone, Event{
				Type:       EventToolResult,
				ToolCallID: call.ID,
				ToolName:   call.Name,
				Output:     result.Content,
				IsError:    result.IsError,
			})
			parts = append(parts, models.ContentPart{
				Type:       models.PartTypeToolResult,
				ToolCallID: call.ID,
				ToolName:   call.Name,
				Output:     result.Content,
				IsError:    result.IsError,
			})
			results = append(results, llm.ToolResult{
				ToolCallID: call.ID,
				Content:    result.Content,
				IsError:    result.IsError,
			})
		}

		t.messages = append(t.messages, llm.CompletionMessage{
			Role:        models.RoleUser,
			ToolResults: results,
		})
	}

	t.persistAssistant(ctx, parts)
	emit(sink, &gone, Event{Type: EventDone})
	return nil
}

// persistAssistant saves the assistant's reply: text and tool invocations
// in the order they were emitted. Failures here must not fail the turn: the
// client already has the streamed output.
func (t *Turn) persistAssistant(ctx context.Context, parts []models.ContentPart) {
	if len(parts) == 0 {
		return
	}
	msg := models.Message{
		ID:             uuid.New(),
		ConversationID: t.Conversation.ID,
		Role:           models.RoleAssistant,
		Parts:          parts,
		CreatedAt:      time.Now().UTC(),
	}
	if err := t.o.store.AppendMessages(ctx, []models.Message{msg}); err != nil {
		log.Printf("WARN: conversation %s: failed to persist assistant message: %v", t.Conversation.ID, err)
	}
}
