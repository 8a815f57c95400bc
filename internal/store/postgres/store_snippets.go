package postgres

import (
	"context"
	"fmt"
	"log"

	"convoflow-backend/internal/models"
	"convoflow-backend/internal/store"

	"github.com/google/uuid"
)

// AddSnippet saves a snippet pointing at one message of a conversation.
func (s *PostgresStore) AddSnippet(ctx context.Context, arg store.AddSnippetParams) error {
	query := `
		INSERT INTO snippets (id, user_id, conversation_id, message_id, title)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.Exec(ctx, query, arg.ID, arg.UserID, arg.ConversationID, arg.MessageID, arg.Title)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		log.Printf("ERROR [PostgresStore] AddSnippet: insert failed for message %s: %v", arg.MessageID, err)
		return fmt.Errorf("database error adding snippet: %w", err)
	}

	return nil
}

// RemoveSnippet deletes the caller's snippet for the given message.
// Returns store.ErrNotFound if no such snippet exists.
func (s *PostgresStore) RemoveSnippet(ctx context.Context, userID, conversationID, messageID uuid.UUID) error {
	query := `
		DELETE FROM snippets
		WHERE user_id = $1 AND conversation_id = $2 AND message_id = $3`

	tag, err := s.db.Exec(ctx, query, userID, conversationID, messageID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] RemoveSnippet: delete failed for message %s: %v", messageID, err)
		return fmt.Errorf("database error removing snippet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	return nil
}

// ListSnippetsByConversation returns the caller's snippets for one
// conversation, oldest first.
func (s *PostgresStore) ListSnippetsByConversation(ctx context.Context, userID, conversationID uuid.UUID) ([]models.Snippet, error) {
	query := `
		SELECT id, user_id, conversation_id, message_id, title, created_at
		FROM snippets
		WHERE user_id = $1 AND conversation_id = $2
		ORDER BY created_at ASC`

	rows, err := s.db.Query(ctx, query, userID, conversationID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListSnippetsByConversation: query failed for %s: %v", conversationID, err)
		return nil, fmt.Errorf("database error listing snippets: %w", err)
	}
	defer rows.Close()

	var snippets []models.Snippet
	for rows.Next() {
		var sn models.Snippet
		if err := rows.Scan(&sn.ID, &sn.UserID, &sn.ConversationID, &sn.MessageID, &sn.Title, &sn.CreatedAt); err != nil {
			return nil, fmt.Errorf("database error scanning snippet: %w", err)
		}
		snippets = append(snippets, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating snippets: %w", err)
	}

	return snippets, nil
}
