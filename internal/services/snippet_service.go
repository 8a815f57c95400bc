package services

import (
	"context"
	"convoflow-backend/internal/chat"
	"convoflow-backend/internal/models"
	"convoflow-backend/internal/store"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
)

// Custom errors for snippet service
var (
	ErrSnippetNotFound  = errors.New("snippet not found")
	ErrMessageNotFound  = errors.New("message not found")
	ErrNotConversation  = errors.New("message does not belong to the given conversation")
	ErrNotOwner         = errors.New("conversation is not owned by the requesting user")
	ErrInvalidActionArg = errors.New("action must be \"add\" or \"remove\"")
)

// SnippetService bookmarks individual messages. Adding a snippet derives a
// short display title from the message text via the title synthesizer.
type SnippetService struct {
	store  store.Store
	titles *chat.Synthesizer
}

func NewSnippetService(s store.Store, titles *chat.Synthesizer) *SnippetService {
	return &SnippetService{
		store:  s,
		titles: titles,
	}
}

// messageText flattens a message's text parts for title synthesis.
func messageText(parts []models.ContentPart) string {
	var texts []string
	for _, p := range parts {
		if p.Type == models.PartTypeText && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// checkConversationOwner loads the conversation and verifies ownership.
func (s *SnippetService) checkConversationOwner(ctx context.Context, userID, conversationID uuid.UUID) (*models.Conversation, error) {
	conv, err := s.store.GetConversationByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotOwner // Don't reveal whether the conversation exists
		}
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if conv.UserID != userID {
		return nil, ErrNotOwner
	}
	return conv, nil
}

// Add bookmarks a message. The snippet title is synthesized from the
// message text, falling back to a fixed title when synthesis fails.
func (s *SnippetService) Add(ctx context.Context, userID uuid.UUID, conversationID, messageID uuid.UUID) (*models.Snippet, error) {
	if _, err := s.checkConversationOwner(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	msg, err := s.store.GetMessageByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	if msg.ConversationID != conversationID {
		return nil, ErrNotConversation
	}

	title := s.titles.TitleForSnippet(ctx, messageText(msg.Parts))

	snippet := &models.Snippet{
		ID:             uuid.New(),
		UserID:         userID,
		ConversationID: conversationID,
		MessageID:      messageID,
		Title:          title,
	}
	if err := s.store.AddSnippet(ctx, store.AddSnippetParams{
		ID:             snippet.ID,
		UserID:         snippet.UserID,
		ConversationID: snippet.ConversationID,
		MessageID:      snippet.MessageID,
		Title:          snippet.Title,
	}); err != nil {
		log.Printf("Error saving snippet for message %s: %v", messageID, err)
		return nil, fmt.Errorf("failed to save snippet: %w", err)
	}

	return snippet, nil
}

// Remove deletes the bookmark for a message.
func (s *SnippetService) Remove(ctx context.Context, userID uuid.UUID, conversationID, messageID uuid.UUID) error {
	if _, err := s.checkConversationOwner(ctx, userID, conversationID); err != nil {
		return err
	}

	if err := s.store.RemoveSnippet(ctx, userID, conversationID, messageID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSnippetNotFound
		}
		return fmt.Errorf("failed to remove snippet: %w", err)
	}
	return nil
}

// List returns the user's snippets within a conversation.
func (s *SnippetService) List(ctx context.Context, userID uuid.UUID, conversationID uuid.UUID) ([]models.Snippet, error) {
	if _, err := s.checkConversationOwner(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	snippets, err := s.store.ListSnippetsByConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snippets: %w", err)
	}
	return snippets, nil
}
