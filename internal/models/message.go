package models

import "encoding/json"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Content part types for the Parts field of a Message.
const (
	PartTypeText       = "text"
	PartTypeImage      = "image"
	PartTypeToolCall   = "tool-call"
	PartTypeToolResult = "tool-result"
)

// ContentPart is one typed unit of message content. The payload fields used
// depend on Type. Order within a message is significant and must be
// preserved by every layer that touches it.
type ContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Image    string `json:"image,omitempty"` // resolvable URL or data URL
	MimeType string `json:"mimeType,omitempty"`

	// Tool invocation fields, set on tool-call and tool-result parts.
	ToolCallID string          `json:"toolCallId,omitempty"`
	ToolName   string          `json:"toolName,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     string          `json:"output,omitempty"`
	IsError    bool            `json:"isError,omitempty"`
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartTypeText, Text: text}
}

// Attachment references an uploaded file associated with a message.
type Attachment struct {
	URL         string `json:"url"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}
