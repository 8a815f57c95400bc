package store

import (
	"context"
	"errors"

	"convoflow-backend/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert violates a unique constraint,
// e.g. appending a message whose id is already persisted. Turn retries rely
// on this being a distinct, detectable error rather than a silent merge.
var ErrDuplicate = errors.New("duplicate record")

// CreateConversationParams contains parameters for creating a conversation.
type CreateConversationParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Title  string
}

// AddSnippetParams contains parameters for saving a snippet.
type AddSnippetParams struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	ConversationID uuid.UUID
	MessageID      uuid.UUID
	Title          string
}

// CreateDocumentParams contains parameters for persisting a tool-generated
// document.
type CreateDocumentParams struct {
	ID      uuid.UUID
	UserID  uuid.UUID
	Title   string
	Kind    string
	Content string
}

// Store defines the interface for database operations.
// This allows for mocking in tests and potential DB backend switching.
type Store interface {
	// User operations
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error

	// Conversation operations
	CreateConversation(ctx context.Context, arg CreateConversationParams) error
	GetConversationByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	ListConversationsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Conversation, error)
	// DeleteConversation removes the conversation and everything hanging off
	// it. Dependent rows (snippets, then messages) go first so referential
	// constraints hold at every step.
	DeleteConversation(ctx context.Context, id uuid.UUID) error

	// Message operations
	AppendMessages(ctx context.Context, messages []models.Message) error
	GetMessagesByConversation(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error)
	GetMessageByID(ctx context.Context, id uuid.UUID) (*models.Message, error)

	// Snippet operations
	AddSnippet(ctx context.Context, arg AddSnippetParams) error
	RemoveSnippet(ctx context.Context, userID, conversationID, messageID uuid.UUID) error
	ListSnippetsByConversation(ctx context.Context, userID, conversationID uuid.UUID) ([]models.Snippet, error)

	// Document / suggestion operations (tool storage)
	CreateDocument(ctx context.Context, arg CreateDocumentParams) (*models.Document, error)
	GetDocumentByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	UpdateDocumentContent(ctx context.Context, id uuid.UUID, content string) error
	CreateSuggestions(ctx context.Context, suggestions []models.Suggestion) error
}
