package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"convoflow-backend/internal/llm"
	"convoflow-backend/internal/models"
	"convoflow-backend/internal/store"
	"convoflow-backend/internal/tools"

	"github.com/google/uuid"
)

// scriptedProvider plays back canned chunk sequences, one per Complete call,
// and records every request it sees.
type scriptedProvider struct {
	responses [][]llm.CompletionChunk
	calls     int32

	mu       sync.Mutex
	requests []*llm.CompletionRequest

	completeErr error
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (<-chan *llm.CompletionChunk, error) {
	if p.completeErr != nil {
		return nil, p.completeErr
	}

	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	call := int(atomic.AddInt32(&p.calls, 1)) - 1
	ch := make(chan *llm.CompletionChunk, 16)
	go func() {
		defer close(ch)
		if call >= len(p.responses) {
			return
		}
		for i := range p.responses[call] {
			select {
			case ch <- &p.responses[call][i]:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (p *scriptedProvider) callCount() int { return int(atomic.LoadInt32(&p.calls)) }

// memStore is an in-memory store.Store for orchestrator tests.
type memStore struct {
	mu            sync.Mutex
	users         map[uuid.UUID]*models.User
	conversations map[uuid.UUID]*models.Conversation
	messages      []models.Message
	snippets      []models.Snippet
	documents     map[uuid.UUID]*models.Document
	suggestions   []models.Suggestion

	// failAssistantAppend simulates a persistence outage after the turn has
	// already streamed.
	failAssistantAppend bool
}

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[uuid.UUID]*models.User),
		conversations: make(map[uuid.UUID]*models.Conversation),
		documents:     make(map[uuid.UUID]*models.Document),
	}
}

func (m *memStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *memStore) CreateConversation(ctx context.Context, arg store.CreateConversationParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[arg.ID] = &models.Conversation{
		ID:         arg.ID,
		UserID:     arg.UserID,
		Title:      arg.Title,
		Visibility: models.VisibilityPrivate,
	}
	return nil
}

func (m *memStore) GetConversationByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *conv
	return &copied, nil
}

func (m *memStore) ListConversationsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Conversation
	for _, conv := range m.conversations {
		if conv.UserID == userID && len(out) < limit {
			out = append(out, *conv)
		}
	}
	return out, nil
}

func (m *memStore) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.conversations, id)
	var kept []models.Message
	for _, msg := range m.messages {
		if msg.ConversationID != id {
			kept = append(kept, msg)
		}
	}
	m.messages = kept
	var keptSnips []models.Snippet
	for _, sn := range m.snippets {
		if sn.ConversationID != id {
			keptSnips = append(keptSnips, sn)
		}
	}
	m.snippets = keptSnips
	return nil
}

func (m *memStore) AppendMessages(ctx context.Context, messages []models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range messages {
		if m.failAssistantAppend && msg.Role == models.RoleAssistant {
			return errors.New("append failed")
		}
		for _, existing := range m.messages {
			if existing.ID == msg.ID {
				return store.ErrDuplicate
			}
		}
		m.messages = append(m.messages, msg)
	}
	return nil
}

func (m *memStore) GetMessagesByConversation(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memStore) GetMessageByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.messages {
		if m.messages[i].ID == id {
			copied := m.messages[i]
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) AddSnippet(ctx context.Context, arg store.AddSnippetParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snippets = append(m.snippets, models.Snippet{
		ID:             arg.ID,
		UserID:         arg.UserID,
		ConversationID: arg.ConversationID,
		MessageID:      arg.MessageID,
		Title:          arg.Title,
	})
	return nil
}

func (m *memStore) RemoveSnippet(ctx context.Context, userID, conversationID, messageID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, sn := range m.snippets {
		if sn.UserID == userID && sn.ConversationID == conversationID && sn.MessageID == messageID {
			m.snippets = append(m.snippets[:i], m.snippets[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) ListSnippetsByConversation(ctx context.Context, userID, conversationID uuid.UUID) ([]models.Snippet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Snippet
	for _, sn := range m.snippets {
		if sn.UserID == userID && sn.ConversationID == conversationID {
			out = append(out, sn)
		}
	}
	return out, nil
}

func (m *memStore) CreateDocument(ctx context.Context, arg store.CreateDocumentParams) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := &models.Document{
		ID:      arg.ID,
		UserID:  arg.UserID,
		Title:   arg.Title,
		Kind:    arg.Kind,
		Content: arg.Content,
	}
	m.documents[arg.ID] = doc
	copied := *doc
	return &copied, nil
}

func (m *memStore) GetDocumentByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (m *memStore) UpdateDocumentContent(ctx context.Context, id uuid.UUID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return store.ErrNotFound
	}
	doc.Content = content
	return nil
}

func (m *memStore) CreateSuggestions(ctx context.Context, suggestions []models.Suggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suggestions = append(m.suggestions, suggestions...)
	return nil
}

func (m *memStore) messagesByRole(role string) []models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Message
	for _, msg := range m.messages {
		if msg.Role == role {
			out = append(out, msg)
		}
	}
	return out
}

// collectSink records every event it receives.
type collectSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *collectSink) Send(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *collectSink) byType(eventType string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, ev := range s.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func (s *collectSink) text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sb strings.Builder
	for _, ev := range s.events {
		if ev.Type == EventTextDelta {
			sb.WriteString(ev.Delta)
		}
	}
	return sb.String()
}

// echoTool records invocations and returns a fixed result.
type echoTool struct {
	calls int32
}

func (t *echoTool) Name() string        { return "echo" }
func (t *echoTool) Description() string { return "Echoes its input back." }
func (t *echoTool) Kind() tools.Kind    { return tools.KindPureQuery }

func (t *echoTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {"value": {"type": "string"}},
		"required": ["value"],
		"additionalProperties": false
	}`)
}

func (t *echoTool) Execute(ctx context.Context, input json.RawMessage) (*tools.Result, error) {
	atomic.AddInt32(&t.calls, 1)
	return &tools.Result{Content: string(input)}, nil
}

func registryWith(t tools.Tool) *tools.Registry {
	r := tools.NewRegistry()
	r.Register(t.Name(), func(tools.TurnContext) tools.Tool { return t })
	return r
}

func newTestOrchestrator(st store.Store, p llm.Provider, reg *tools.Registry) *Orchestrator {
	// The title synthesizer shares the scripted provider; tests that care
	// about titles script the first response accordingly.
	return NewOrchestrator(st, p, reg, NewSynthesizer(p, "title-model"), OrchestratorConfig{
		ChatModel:      "chat-model",
		ReasoningModel: "reasoning-model",
		ArtifactModel:  "artifact-model",
		MaxToolSteps:   5,
	})
}

func userTurnRequest(convID uuid.UUID, text string) *models.TurnRequest {
	return &models.TurnRequest{
		ID: convID,
		Messages: []models.IncomingMessage{
			{
				ID:    uuid.New(),
				Role:  models.RoleUser,
				Parts: []models.ContentPart{models.TextPart(text)},
			},
		},
		Mode: tools.ModeChat,
	}
}

func TestBeginRejectsHistoryWithoutUserMessage(t *testing.T) {
	st := newMemStore()
	provider := &scriptedProvider{}
	o := newTestOrchestrator(st, provider, tools.NewRegistry())

	req := &models.TurnRequest{
		ID: uuid.New(),
		Messages: []models.IncomingMessage{
			{ID: uuid.New(), Role: models.RoleAssistant, Parts: []models.ContentPart{models.TextPart("hi")}},
		},
	}
	_, err := o.Begin(context.Background(), uuid.New(), req)
	if !errors.Is(err, ErrNoUserMessage) {
		t.Fatalf("expected ErrNoUserMessage, got %v", err)
	}
	if provider.callCount() != 0 {
		t.Errorf("no model call should happen for a rejected turn, got %d", provider.callCount())
	}
}

func TestBeginRejectsForeignConversation(t *testing.T) {
	st := newMemStore()
	owner := uuid.New()
	convID := uuid.New()
	st.CreateConversation(context.Background(), store.CreateConversationParams{ID: convID, UserID: owner, Title: "theirs"})

	o := newTestOrchestrator(st, &scriptedProvider{}, tools.NewRegistry())
	_, err := o.Begin(context.Background(), uuid.New(), userTurnRequest(convID, "hello"))
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if msgs := st.messagesByRole(models.RoleUser); len(msgs) != 0 {
		t.Errorf("nothing should be persisted for a rejected turn, found %d messages", len(msgs))
	}
}

func TestBeginCreatesConversationWithSynthesizedTitle(t *testing.T) {
	st := newMemStore()
	provider := &scriptedProvider{responses: [][]llm.CompletionChunk{
		{{Text: "Greeting the assistant"}}, // title call
	}}
	o := newTestOrchestrator(st, provider, tools.NewRegistry())

	userID := uuid.New()
	convID := uuid.New()
	turn, err := o.Begin(context.Background(), userID, userTurnRequest(convID, "hello there"))
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	conv, err := st.GetConversationByID(context.Background(), convID)
	if err != nil {
		t.Fatalf("conversation was not created: %v", err)
	}
	if conv.Title != "Greeting the assistant" {
		t.Errorf("title = %q", conv.Title)
	}
	if turn.Conversation.Title != conv.Title {
		t.Errorf("turn carries title %q, store has %q", turn.Conversation.Title, conv.Title)
	}

	// The inbound user message is durable before any streaming.
	if msgs := st.messagesByRole(models.RoleUser); len(msgs) != 1 {
		t.Fatalf("expected 1 persisted user message, got %d", len(msgs))
	}
}

func TestBeginPersistsInboundEvenWhenModelFails(t *testing.T) {
	st := newMemStore()
	provider := &scriptedProvider{responses: [][]llm.CompletionChunk{
		{{Text: "Title"}},
		{{Error: errors.New("model exploded")}},
	}}
	o := newTestOrchestrator(st, provider, tools.NewRegistry())

	turn, err := o.Begin(context.Background(), uuid.New(), userTurnRequest(uuid.New(), "hello"))
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	sink := &collectSink{}
	if err := turn.Stream(context.Background(), sink); err == nil {
		t.Fatal("expected stream error")
	}

	if msgs := st.messagesByRole(models.RoleUser); len(msgs) != 1 {
		t.Errorf("inbound message must survive a model failure, got %d", len(msgs))
	}
	errEvents := sink.byType(EventError)
	if len(errEvents) != 1 {
		t.Fatalf("expected 1 error event, got %d", len(errEvents))
	}
	if errEvents[0].Message != clientErrorMessage {
		t.Errorf("error event leaked internals: %q", errEvents[0].Message)
	}
}

func TestBeginIsIdempotentOnRetriedUserMessage(t *testing.T) {
	st := newMemStore()
	provider := &scriptedProvider{responses: [][]llm.CompletionChunk{
		{{Text: "Title"}},
	}}
	o := newTestOrchestrator(st, provider, tools.NewRegistry())

	userID := uuid.New()
	req := userTurnRequest(uuid.New(), "hello")
	if _, err := o.Begin(context.Background(), userID, req); err != nil {
		t.Fatalf("first Begin failed: %v", err)
	}
	if _, err := o.Begin(context.Background(), userID, req); err != nil {
		t.Fatalf("retried Begin failed: %v", err)
	}
	if msgs := st.messagesByRole(models.RoleUser); len(msgs) != 1 {
		t.Errorf("retried turn must not duplicate the user message, got %d", len(msgs))
	}
}

func TestStreamPlainTextTurn(t *testing.T) {
	st := newMemStore()
	provider := &scriptedProvider{responses: [][]llm.CompletionChunk{
		{{Text: "Chats"}}, // title
		{{Text: "Hello"}, {Text: " there,"}, {Text: " friend"}, {Done: true}},
	}}
	o := newTestOrchestrator(st, provider, tools.NewRegistry())

	turn, err := o.Begin(context.Background(), uuid.New(), userTurnRequest(uuid.New(), "hi"))
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	sink := &collectSink{}
	if err := turn.Stream(context.Background(), sink); err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	if got := sink.text(); got != "Hello there, friend" {
		t.Errorf("streamed text = %q", got)
	}
	deltas := sink.byType(EventTextDelta)
	if len(deltas) != 3 {
		t.Errorf("expected word-level deltas, got %d: %+v", len(deltas), deltas)
	}
	if done := sink.byType(EventDone); len(done) != 1 {
		t.Errorf("expected exactly one done event, got %d", len(done))
	}

	assistant := st.messagesByRole(models.RoleAssistant)
	if len(assistant) != 1 {
		t.Fatalf("expected 1 persisted assistant message, got %d", len(assistant))
	}
	if got := assistant[0].Parts[0].Text; got != "Hello there, friend" {
		t.Errorf("persisted assistant text = %q", got)
	}
}

func TestStreamRunsToolRoundAndContinues(t *testing.T) {
	st := newMemStore()
	tool := &echoTool{}
	provider := &scriptedProvider{responses: [][]llm.CompletionChunk{
		{{Text: "Title"}},
		{{ToolCall: &llm.ToolCall{ID: "call_1", Name: "echo", Input: json.RawMessage(`{"value":"ping"}`)}}},
		{{Text: "Echo says ping"}, {Done: true}},
	}}
	o := newTestOrchestrator(st, provider, registryWith(tool))

	turn, err := o.Begin(context.Background(), uuid.New(), userTurnRequest(uuid.New(), "use the tool"))
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	sink := &collectSink{}
	if err := turn.Stream(context.Background(), sink); err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	if atomic.LoadInt32(&tool.calls) != 1 {
		t.Errorf("tool executed %d times, want 1", tool.calls)
	}
	if calls := sink.byType(EventToolCall); len(calls) != 1 || calls[0].ToolName != "echo" {
		t.Errorf("tool-call events = %+v", calls)
	}
	results := sink.byType(EventToolResult)
	if len(results) != 1 || results[0].IsError {
		t.Errorf("tool-result events = %+v", results)
	}
	if got := sink.text(); got != "Echo says ping" {
		t.Errorf("final text = %q", got)
	}

	// Title call + two loop rounds.
	if provider.callCount() != 3 {
		t.Errorf("provider called %d times, want 3", provider.callCount())
	}
}

func TestStreamPersistsToolInvocationsInEmissionOrder(t *testing.T) {
	st := newMemStore()
	tool := &echoTool{}
	provider := &scriptedProvider{responses: [][]llm.CompletionChunk{
		{{Text: "Title"}},
		{{Text: "Let me check."}, {ToolCall: &llm.ToolCall{ID: "call_1", Name: "echo", Input: json.RawMessage(`{"value":"ping"}`)}}},
		{{Text: "final answer"}, {Done: true}},
	}}
	o := newTestOrchestrator(st, provider, registryWith(tool))

	turn, err := o.Begin(context.Background(), uuid.New(), userTurnRequest(uuid.New(), "use the tool"))
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := turn.Stream(context.Background(), &collectSink{}); err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	assistant := st.messagesByRole(models.RoleAssistant)
	if len(assistant) != 1 {
		t.Fatalf("expected 1 assistant message, got %d", len(assistant))
	}

	parts := assistant[0].Parts
	wantTypes := []string{
		models.PartTypeText,
		models.PartTypeToolCall,
		models.PartTypeToolResult,
		models.PartTypeText,
	}
	if len(parts) != len(wantTypes) {
		t.Fatalf("persisted %d parts, want %d: %+v", len(parts), len(wantTypes), parts)
	}
	for i, want := range wantTypes {
		if parts[i].Type != want {
			t.Errorf("part %d type = %q, want %q", i, parts[i].Type, want)
		}
	}
	if parts[1].ToolName != "echo" || parts[1].ToolCallID != "call_1" {
		t.Errorf("tool-call part = %+v", parts[1])
	}
	if parts[2].Output != `{"value":"ping"}` || parts[2].IsError {
		t.Errorf("tool-result part = %+v", parts[2])
	}
	if parts[3].Text != "final answer" {
		t.Errorf("closing text part = %+v", parts[3])
	}
}

func TestStreamToolOnlyTurnStillPersistsAssistant(t *testing.T) {
	st := newMemStore()
	tool := &echoTool{}
	provider := &scriptedProvider{responses: [][]llm.CompletionChunk{
		{{Text: "Title"}},
		{{ToolCall: &llm.ToolCall{ID: "call_1", Name: "echo", Input: json.RawMessage(`{"value":"ping"}`)}}},
		{{Done: true}}, // model ends the turn without any text
	}}
	o := newTestOrchestrator(st, provider, registryWith(tool))

	turn, err := o.Begin(context.Background(), uuid.New(), userTurnRequest(uuid.New(), "just the tool"))
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := turn.Stream(context.Background(), &collectSink{}); err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	assistant := st.messagesByRole(models.RoleAssistant)
	if len(assistant) != 1 {
		t.Fatalf("a tool-only turn must still persist its assistant message, got %d", len(assistant))
	}
	parts := assistant[0].Parts
	if len(parts) != 2 || parts[0].Type != models.PartTypeToolCall || parts[1].Type != models.PartTypeToolResult {
		t.Errorf("persisted parts = %+v", parts)
	}
}

func TestStreamInvalidToolArgumentsBecomeErrorResult(t *testing.T) {
	st := newMemStore()
	tool := &echoTool{}
	provider := &scriptedProvider{responses: [][]llm.CompletionChunk{
		{{Text: "Title"}},
		{{ToolCall: &llm.ToolCall{ID: "call_1", Name: "echo", Input: json.RawMessage(`{"wrong":"field"}`)}}},
		{{Text: "Sorry about that"}, {Done: true}},
	}}
	o := newTestOrchestrator(st, provider, registryWith(tool))

	turn, err := o.Begin(context.Background(), uuid.New(), userTurnRequest(uuid.New(), "go"))
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	sink := &collectSink{}
	if err := turn.Stream(context.Background(), sink); err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	if atomic.LoadInt32(&tool.calls) != 0 {
		t.Errorf("tool must not run with invalid arguments, ran %d times", tool.calls)
	}
	results := sink.byType(EventToolResult)
	if len(results) != 1 || !results[0].IsError {
		t.Fatalf("expected one error tool-result, got %+v", results)
	}
	// The loop keeps going after a tool-level error.
	if got := sink.text(); got != "Sorry about that" {
		t.Errorf("final text = %q", got)
	}
}

func TestStreamStopsAtStepLimit(t *testing.T) {
	st := newMemStore()
	tool := &echoTool{}

	// Every round keeps requesting the tool; the loop must stop anyway.
	responses := [][]llm.CompletionChunk{{{Text: "Title"}}}
	for i := 0; i < 10; i++ {
		responses = append(responses, []llm.CompletionChunk{
			{ToolCall: &llm.ToolCall{ID: "call", Name: "echo", Input: json.RawMessage(`{"value":"again"}`)}},
		})
	}
	provider := &scriptedProvider{responses: responses}
	o := newTestOrchestrator(st, provider, registryWith(tool))

	turn, err := o.Begin(context.Background(), uuid.New(), userTurnRequest(uuid.New(), "loop forever"))
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	sink := &collectSink{}
	if err := turn.Stream(context.Background(), sink); err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	// Title call plus at most five loop rounds.
	if provider.callCount() != 6 {
		t.Errorf("provider called %d times, want 6", provider.callCount())
	}
	if done := sink.byType(EventDone); len(done) != 1 {
		t.Errorf("turn must still end with a done event, got %d", len(done))
	}
}

func TestStreamAssistantPersistenceIsBestEffort(t *testing.T) {
	st := newMemStore()
	provider := &scriptedProvider{responses: [][]llm.CompletionChunk{
		{{Text: "Title"}},
		{{Text: "All good"}, {Done: true}},
	}}
	o := newTestOrchestrator(st, provider, tools.NewRegistry())

	turn, err := o.Begin(context.Background(), uuid.New(), userTurnRequest(uuid.New(), "hi"))
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	st.failAssistantAppend = true

	sink := &collectSink{}
	if err := turn.Stream(context.Background(), sink); err != nil {
		t.Fatalf("a persistence failure must not fail the turn: %v", err)
	}
	if done := sink.byType(EventDone); len(done) != 1 {
		t.Errorf("expected done event despite persistence failure, got %d", len(done))
	}
}

func TestStreamSurvivesDepartedClient(t *testing.T) {
	st := newMemStore()
	provider := &scriptedProvider{responses: [][]llm.CompletionChunk{
		{{Text: "Title"}},
		{{Text: "Long answer streaming"}, {Done: true}},
	}}
	o := newTestOrchestrator(st, provider, tools.NewRegistry())

	turn, err := o.Begin(context.Background(), uuid.New(), userTurnRequest(uuid.New(), "hi"))
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	// Every send fails: the client hung up immediately.
	sink := SinkFunc(func(Event) error { return errors.New("broken pipe") })
	if err := turn.Stream(context.Background(), sink); err != nil {
		t.Fatalf("Stream must drain despite client loss: %v", err)
	}

	assistant := st.messagesByRole(models.RoleAssistant)
	if len(assistant) != 1 {
		t.Fatalf("assistant message must persist after client loss, got %d", len(assistant))
	}
	if got := assistant[0].Parts[0].Text; got != "Long answer streaming" {
		t.Errorf("persisted text = %q", got)
	}
}

func TestReasoningModeUsesReasoningModelWithoutTools(t *testing.T) {
	st := newMemStore()
	provider := &scriptedProvider{responses: [][]llm.CompletionChunk{
		{{Text: "Title"}},
		{{ThinkingStart: true}, {Thinking: "considering"}, {ThinkingEnd: true}, {Text: "Answer"}, {Done: true}},
	}}
	o := newTestOrchestrator(st, provider, tools.DefaultRegistry())

	req := userTurnRequest(uuid.New(), "think hard")
	req.Mode = tools.ModeReasoning
	turn, err := o.Begin(context.Background(), uuid.New(), req)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	sink := &collectSink{}
	if err := turn.Stream(context.Background(), sink); err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	provider.mu.Lock()
	loopReq := provider.requests[len(provider.requests)-1]
	provider.mu.Unlock()
	if loopReq.Model != "reasoning-model" {
		t.Errorf("model = %q", loopReq.Model)
	}
	if !loopReq.EnableThinking {
		t.Error("thinking should be enabled in reasoning mode")
	}
	if len(loopReq.Tools) != 0 {
		t.Errorf("reasoning mode must run without tools, got %d", len(loopReq.Tools))
	}

	if reasoning := sink.byType(EventReasoningDelta); len(reasoning) != 1 || reasoning[0].Delta != "considering" {
		t.Errorf("reasoning events = %+v", reasoning)
	}
}
