package chat

import (
	"fmt"
	"net/url"
	"strings"

	"convoflow-backend/internal/llm"
	"convoflow-backend/internal/models"

	"github.com/google/uuid"
)

// validAttachmentURL reports whether an attachment URL is resolvable by the
// model provider: an absolute http(s) URL or an inline data URL.
func validAttachmentURL(raw string) bool {
	if strings.HasPrefix(raw, "data:") {
		return strings.Contains(raw, ",")
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// flattenText joins a message's text parts with newlines. Non-text parts
// contribute nothing here; they are carried separately as attachments when
// the message is the newest user message.
func flattenText(parts []models.ContentPart) string {
	var texts []string
	for _, p := range parts {
		if p.Type == models.PartTypeText && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// NormalizeHistory converts the inbound message history into the provider
// message shape. Only the newest user message keeps its attachments and
// image parts; everything older is flattened to plain text so the provider
// payload stays bounded. Attachments with unresolvable URLs are dropped
// with a warning rather than failing the turn.
func NormalizeHistory(history []models.IncomingMessage, latestUserID uuid.UUID) ([]llm.CompletionMessage, []string) {
	var warnings []string
	out := make([]llm.CompletionMessage, 0, len(history))

	for _, msg := range history {
		cm := llm.CompletionMessage{
			Role:    msg.Role,
			Content: flattenText(msg.Parts),
		}

		if msg.ID == latestUserID && msg.Role == models.RoleUser {
			for _, att := range msg.Attachments {
				if !validAttachmentURL(att.URL) {
					warnings = append(warnings, fmt.Sprintf("dropping attachment with unresolvable URL: %q", att.URL))
					continue
				}
				cm.Attachments = append(cm.Attachments, att)
			}
			for _, p := range msg.Parts {
				if p.Type != models.PartTypeImage {
					continue
				}
				if !validAttachmentURL(p.Image) {
					warnings = append(warnings, fmt.Sprintf("dropping image part with unresolvable URL: %q", p.Image))
					continue
				}
				cm.Attachments = append(cm.Attachments, models.Attachment{
					URL:         p.Image,
					ContentType: p.MimeType,
				})
			}
		}

		out = append(out, cm)
	}

	return out, warnings
}

// LatestUserMessage returns the last user-role message in the history, or
// nil when the history contains none.
func LatestUserMessage(history []models.IncomingMessage) *models.IncomingMessage {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == models.RoleUser {
			return &history[i]
		}
	}
	return nil
}
