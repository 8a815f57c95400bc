package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user in the database.
type User struct {
	ID             uuid.UUID `db:"id"`
	Email          string    `db:"email"`
	HashedPassword string    `db:"hashed_password"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Visibility controls who can read a conversation.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// Conversation represents one chat thread owned by a user. The title is set
// once at creation (synthesized from the first user message) and the record
// cascades to its messages and snippets on deletion.
type Conversation struct {
	ID         uuid.UUID  `db:"id"`
	UserID     uuid.UUID  `db:"user_id"`
	Title      string     `db:"title"`
	Visibility Visibility `db:"visibility"`
	CreatedAt  time.Time  `db:"created_at"`
}

// Message represents one persisted chat message. Parts and Attachments are
// stored as JSONB; part order is meaningful and preserved end-to-end.
type Message struct {
	ID             uuid.UUID     `db:"id"`
	ConversationID uuid.UUID     `db:"conversation_id"`
	Role           string        `db:"role"` // "user", "assistant", "system"
	Parts          []ContentPart `db:"parts"`
	Attachments    []Attachment  `db:"attachments"`
	CreatedAt      time.Time     `db:"created_at"`
}

// Snippet is a saved pointer from a user to a single message in a
// conversation. Snippet rows must be removed before their conversation row
// can be deleted.
type Snippet struct {
	ID             uuid.UUID `db:"id"`
	UserID         uuid.UUID `db:"user_id"`
	ConversationID uuid.UUID `db:"conversation_id"`
	MessageID      uuid.UUID `db:"message_id"`
	Title          string    `db:"title"`
	CreatedAt      time.Time `db:"created_at"`
}

// Document is an artifact produced by the create_document tool.
type Document struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Title     string    `db:"title"`
	Kind      string    `db:"kind"` // "text" or "code"
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

// Suggestion is one proposed edit to a document, produced by the
// request_suggestions tool.
type Suggestion struct {
	ID            uuid.UUID `db:"id"`
	DocumentID    uuid.UUID `db:"document_id"`
	UserID        uuid.UUID `db:"user_id"`
	OriginalText  string    `db:"original_text"`
	SuggestedText string    `db:"suggested_text"`
	Description   string    `db:"description"`
	IsResolved    bool      `db:"is_resolved"`
	CreatedAt     time.Time `db:"created_at"`
}
