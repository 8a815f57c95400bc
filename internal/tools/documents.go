package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"convoflow-backend/internal/llm"
	"convoflow-backend/internal/store"

	"github.com/google/uuid"
)

const (
	CreateDocumentToolName = "create_document"
	UpdateDocumentToolName = "update_document"
)

const createDocumentSchema = `{
	"type": "object",
	"properties": {
		"title": {"type": "string", "description": "Title of the document"},
		"kind": {"type": "string", "enum": ["text", "code"], "description": "Kind of document to create"}
	},
	"required": ["title", "kind"],
	"additionalProperties": false
}`

const updateDocumentSchema = `{
	"type": "object",
	"properties": {
		"id": {"type": "string", "description": "Identifier of the document to update"},
		"description": {"type": "string", "description": "Description of the changes to make"}
	},
	"required": ["id", "description"],
	"additionalProperties": false
}`

const createDocumentPrompt = `Write about the given topic. Markdown is supported. Use headings wherever appropriate. For code documents, respond with a single code block and nothing else.`

const updateDocumentPrompt = `Rewrite the following document in full based on the given description. Preserve anything the description does not ask to change. Respond with the complete updated document and nothing else.`

// CreateDocumentTool generates a new document with a one-shot model call
// and persists it for the calling user.
type CreateDocumentTool struct {
	tc TurnContext
}

func NewCreateDocumentTool(tc TurnContext) *CreateDocumentTool {
	return &CreateDocumentTool{tc: tc}
}

func (t *CreateDocumentTool) Name() string { return CreateDocumentToolName }

func (t *CreateDocumentTool) Description() string {
	return "Create a document for writing or content creation activities. The document content is generated from the title and kind."
}

func (t *CreateDocumentTool) Schema() json.RawMessage { return json.RawMessage(createDocumentSchema) }

func (t *CreateDocumentTool) Kind() Kind { return KindMutating }

func (t *CreateDocumentTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	var args struct {
		Title string `json:"title"`
		Kind  string `json:"kind"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return nil, fmt.Errorf("failed to parse arguments: %w", err)
	}

	content, err := llm.CompleteText(ctx, t.tc.Provider, &llm.CompletionRequest{
		Model:  t.tc.ArtifactModel,
		System: createDocumentPrompt,
		Messages: []llm.CompletionMessage{
			{Role: "user", Content: args.Title},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("document generation failed: %w", err)
	}

	doc, err := t.tc.Store.CreateDocument(ctx, store.CreateDocumentParams{
		ID:      uuid.New(),
		UserID:  t.tc.UserID,
		Title:   args.Title,
		Kind:    args.Kind,
		Content: content,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist document: %w", err)
	}

	payload, err := json.Marshal(map[string]string{
		"id":      doc.ID.String(),
		"title":   doc.Title,
		"kind":    doc.Kind,
		"message": "A document was created and is now visible to the user.",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	return &Result{Content: string(payload)}, nil
}

// UpdateDocumentTool rewrites an existing document with a one-shot model
// call driven by the requested change description.
type UpdateDocumentTool struct {
	tc TurnContext
}

func NewUpdateDocumentTool(tc TurnContext) *UpdateDocumentTool {
	return &UpdateDocumentTool{tc: tc}
}

func (t *UpdateDocumentTool) Name() string { return UpdateDocumentToolName }

func (t *UpdateDocumentTool) Description() string {
	return "Update an existing document with the described changes."
}

func (t *UpdateDocumentTool) Schema() json.RawMessage { return json.RawMessage(updateDocumentSchema) }

func (t *UpdateDocumentTool) Kind() Kind { return KindMutating }

func (t *UpdateDocumentTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	var args struct {
		ID          string `json:"id"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return nil, fmt.Errorf("failed to parse arguments: %w", err)
	}

	docID, err := uuid.Parse(args.ID)
	if err != nil {
		return errorResult(fmt.Sprintf("invalid document id: %s", args.ID)), nil
	}

	doc, err := t.tc.Store.GetDocumentByID(ctx, docID)
	if err != nil {
		if err == store.ErrNotFound {
			return errorResult(fmt.Sprintf("document not found: %s", args.ID)), nil
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if doc.UserID != t.tc.UserID {
		return errorResult("document is not owned by the current user"), nil
	}

	content, err := llm.CompleteText(ctx, t.tc.Provider, &llm.CompletionRequest{
		Model:  t.tc.ArtifactModel,
		System: updateDocumentPrompt,
		Messages: []llm.CompletionMessage{
			{Role: "user", Content: fmt.Sprintf("Description: %s\n\nDocument:\n%s", args.Description, doc.Content)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("document update generation failed: %w", err)
	}

	if err := t.tc.Store.UpdateDocumentContent(ctx, doc.ID, content); err != nil {
		return nil, fmt.Errorf("failed to persist document update: %w", err)
	}

	payload, err := json.Marshal(map[string]string{
		"id":      doc.ID.String(),
		"title":   doc.Title,
		"kind":    doc.Kind,
		"message": "The document has been updated.",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	return &Result{Content: string(payload)}, nil
}
