package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"convoflow-backend/internal/llm"
	"convoflow-backend/internal/models"
	"convoflow-backend/internal/store"

	"github.com/google/uuid"
)

const RequestSuggestionsToolName = "request_suggestions"

const requestSuggestionsSchema = `{
	"type": "object",
	"properties": {
		"documentId": {"type": "string", "description": "Identifier of the document to request edits for"}
	},
	"required": ["documentId"],
	"additionalProperties": false
}`

const requestSuggestionsPrompt = `You are a writing assistant. Given a document, suggest improvements to its sentences. Respond with a JSON array of objects, each with the keys "originalSentence", "suggestedSentence" and "description". Provide at most five suggestions and respond with the JSON array only.`

// RequestSuggestionsTool asks the model for edit suggestions on a document
// and persists them for the calling user.
type RequestSuggestionsTool struct {
	tc TurnContext
}

func NewRequestSuggestionsTool(tc TurnContext) *RequestSuggestionsTool {
	return &RequestSuggestionsTool{tc: tc}
}

func (t *RequestSuggestionsTool) Name() string { return RequestSuggestionsToolName }

func (t *RequestSuggestionsTool) Description() string {
	return "Request writing suggestions for an existing document."
}

func (t *RequestSuggestionsTool) Schema() json.RawMessage {
	return json.RawMessage(requestSuggestionsSchema)
}

func (t *RequestSuggestionsTool) Kind() Kind { return KindMutating }

func (t *RequestSuggestionsTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	var args struct {
		DocumentID string `json:"documentId"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return nil, fmt.Errorf("failed to parse arguments: %w", err)
	}

	docID, err := uuid.Parse(args.DocumentID)
	if err != nil {
		return errorResult(fmt.Sprintf("invalid document id: %s", args.DocumentID)), nil
	}

	doc, err := t.tc.Store.GetDocumentByID(ctx, docID)
	if err != nil {
		if err == store.ErrNotFound {
			return errorResult(fmt.Sprintf("document not found: %s", args.DocumentID)), nil
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if doc.UserID != t.tc.UserID {
		return errorResult("document is not owned by the current user"), nil
	}

	raw, err := llm.CompleteText(ctx, t.tc.Provider, &llm.CompletionRequest{
		Model:  t.tc.ArtifactModel,
		System: requestSuggestionsPrompt,
		Messages: []llm.CompletionMessage{
			{Role: "user", Content: doc.Content},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("suggestion generation failed: %w", err)
	}

	parsed, err := parseSuggestions(raw)
	if err != nil {
		return errorResult(fmt.Sprintf("model returned unparseable suggestions: %v", err)), nil
	}

	suggestions := make([]models.Suggestion, 0, len(parsed))
	for _, sg := range parsed {
		suggestions = append(suggestions, models.Suggestion{
			ID:            uuid.New(),
			DocumentID:    doc.ID,
			UserID:        t.tc.UserID,
			OriginalText:  sg.OriginalSentence,
			SuggestedText: sg.SuggestedSentence,
			Description:   sg.Description,
		})
	}

	if err := t.tc.Store.CreateSuggestions(ctx, suggestions); err != nil {
		return nil, fmt.Errorf("failed to persist suggestions: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"id":      doc.ID.String(),
		"title":   doc.Title,
		"count":   len(suggestions),
		"message": "Suggestions have been added to the document.",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	return &Result{Content: string(payload)}, nil
}

type rawSuggestion struct {
	OriginalSentence  string `json:"originalSentence"`
	SuggestedSentence string `json:"suggestedSentence"`
	Description       string `json:"description"`
}

// parseSuggestions decodes the model's JSON array, tolerating a surrounding
// markdown code fence.
func parseSuggestions(raw string) ([]rawSuggestion, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	var parsed []rawSuggestion
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}
