package chat

import (
	"context"
	"log"
	"strings"
	"unicode/utf8"

	"convoflow-backend/internal/llm"
	"convoflow-backend/internal/models"
)

const maxTitleLength = 80

const (
	// Fallback titles used when synthesis fails or produces nothing usable.
	FallbackConversationTitle = "New Conversation"
	FallbackSnippetTitle      = "Bookmarked Message"
)

const conversationTitlePrompt = `You generate a short title from the first message a user starts a conversation with. The title must be a summary of the message, at most 80 characters, with no quotes or colons. Respond with the title only.`

const snippetTitlePrompt = `You generate a short title summarizing a single saved message. The title must be at most 80 characters, with no quotes or colons. Respond with the title only.`

// Synthesizer produces short display titles with a one-shot model call.
// It never returns an error: failures degrade to a fixed fallback title so
// title synthesis can never block or fail a turn.
type Synthesizer struct {
	provider llm.Provider
	model    string
}

func NewSynthesizer(provider llm.Provider, model string) *Synthesizer {
	return &Synthesizer{provider: provider, model: model}
}

// sanitizeTitle strips quotes and colons and truncates to the display
// limit. The cut backs up to a rune boundary so a multi-byte character is
// never split into invalid UTF-8.
func sanitizeTitle(raw string) string {
	cleaned := strings.NewReplacer(`"`, "", "'", "", "`", "", ":", "").Replace(raw)
	cleaned = strings.TrimSpace(cleaned)
	if len(cleaned) > maxTitleLength {
		cut := maxTitleLength
		for cut > 0 && !utf8.RuneStart(cleaned[cut]) {
			cut--
		}
		cleaned = strings.TrimSpace(cleaned[:cut])
	}
	return cleaned
}

func (s *Synthesizer) synthesize(ctx context.Context, system, content, fallback string) string {
	if strings.TrimSpace(content) == "" {
		return fallback
	}

	raw, err := llm.CompleteText(ctx, s.provider, &llm.CompletionRequest{
		Model:  s.model,
		System: system,
		Messages: []llm.CompletionMessage{
			{Role: models.RoleUser, Content: content},
		},
		MaxTokens: 128,
	})
	if err != nil {
		log.Printf("WARN: title synthesis failed, using fallback: %v", err)
		return fallback
	}

	title := sanitizeTitle(raw)
	if title == "" {
		return fallback
	}
	return title
}

// TitleForConversation derives a conversation title from its first user
// message.
func (s *Synthesizer) TitleForConversation(ctx context.Context, firstMessage string) string {
	return s.synthesize(ctx, conversationTitlePrompt, firstMessage, FallbackConversationTitle)
}

// TitleForSnippet derives a snippet title from the saved message's text.
func (s *Synthesizer) TitleForSnippet(ctx context.Context, messageText string) string {
	return s.synthesize(ctx, snippetTitlePrompt, messageText, FallbackSnippetTitle)
}
