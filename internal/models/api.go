package models

import (
	"time"

	"github.com/google/uuid"
)

// --- Request Structs ---

// SignupRequest defines the expected body for the signup endpoint.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest defines the expected body for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// IncomingMessage is one element of a turn request's message history.
// Identifiers are client-generated and must be stable across retries.
type IncomingMessage struct {
	ID          uuid.UUID     `json:"id"`
	Role        string        `json:"role"`
	Parts       []ContentPart `json:"parts"`
	Attachments []Attachment  `json:"attachments,omitempty"`
}

// TurnRequest is the body of POST /v1/chat: the full ordered history of the
// conversation (ending in the new user message) plus the mode discriminator
// that selects the active tool set.
type TurnRequest struct {
	ID       uuid.UUID         `json:"id"` // conversation id
	Messages []IncomingMessage `json:"messages"`
	Mode     string            `json:"mode,omitempty"`
}

// SnippetActionRequest adds or removes a snippet for a message.
type SnippetActionRequest struct {
	ConversationID uuid.UUID `json:"conversationId"`
	MessageID      uuid.UUID `json:"messageId"`
	Action         string    `json:"action"` // "add" or "remove"
}

// --- Response Structs ---

// UserResponse defines the user information returned by the API.
// Avoid returning sensitive info like HashedPassword.
type UserResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// AuthResponse defines the response body for successful authentication.
type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ConversationResponse is the list/detail shape for a conversation.
type ConversationResponse struct {
	ID         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	Visibility Visibility `json:"visibility"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ListConversationsResponse wraps a page of conversations.
type ListConversationsResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
}

// MessageResponse is the API shape for a persisted message.
type MessageResponse struct {
	ID          uuid.UUID     `json:"id"`
	Role        string        `json:"role"`
	Parts       []ContentPart `json:"parts"`
	Attachments []Attachment  `json:"attachments,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// ListMessagesResponse wraps the ordered messages of a conversation.
type ListMessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
}

// SnippetResponse is the API shape for a snippet.
type SnippetResponse struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	MessageID      uuid.UUID `json:"message_id"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
}
