package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"convoflow-backend/internal/models"
	"convoflow-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AppendMessages inserts messages in order. Duplicate message ids are
// rejected by the primary key and surfaced as store.ErrDuplicate so retried
// turns do not silently double-write.
func (s *PostgresStore) AppendMessages(ctx context.Context, messages []models.Message) error {
	if len(messages) == 0 {
		return nil
	}

	query := `
		INSERT INTO messages (id, conversation_id, role, parts, attachments, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, msg := range messages {
		parts, err := json.Marshal(msg.Parts)
		if err != nil {
			return fmt.Errorf("failed to marshal message parts: %w", err)
		}
		attachments, err := json.Marshal(msg.Attachments)
		if err != nil {
			return fmt.Errorf("failed to marshal message attachments: %w", err)
		}

		_, err = s.db.Exec(ctx, query, msg.ID, msg.ConversationID, msg.Role, parts, attachments, msg.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return store.ErrDuplicate
			}
			log.Printf("ERROR [PostgresStore] AppendMessages: insert failed for message %s: %v", msg.ID, err)
			return fmt.Errorf("database error appending message: %w", err)
		}
	}

	return nil
}

// GetMessagesByConversation returns all messages of a conversation in
// creation order.
func (s *PostgresStore) GetMessagesByConversation(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	query := `
		SELECT id, conversation_id, role, parts, attachments, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC`

	rows, err := s.db.Query(ctx, query, conversationID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] GetMessagesByConversation: query failed for %s: %v", conversationID, err)
		return nil, fmt.Errorf("database error listing messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating messages: %w", err)
	}

	return messages, nil
}

// GetMessageByID retrieves a single message by id.
// Returns store.ErrNotFound if it does not exist.
func (s *PostgresStore) GetMessageByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	query := `
		SELECT id, conversation_id, role, parts, attachments, created_at
		FROM messages
		WHERE id = $1`

	row := s.db.QueryRow(ctx, query, id)
	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	return msg, nil
}

// scanMessage decodes one message row, unmarshalling the JSONB parts and
// attachments columns.
func scanMessage(row pgx.Row) (*models.Message, error) {
	var msg models.Message
	var partsJSON, attachmentsJSON []byte

	err := row.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &partsJSON, &attachmentsJSON, &msg.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("database error scanning message: %w", err)
	}

	if len(partsJSON) > 0 {
		if err := json.Unmarshal(partsJSON, &msg.Parts); err != nil {
			return nil, fmt.Errorf("failed to parse message parts: %w", err)
		}
	}
	if len(attachmentsJSON) > 0 {
		if err := json.Unmarshal(attachmentsJSON, &msg.Attachments); err != nil {
			return nil, fmt.Errorf("failed to parse message attachments: %w", err)
		}
	}

	return &msg, nil
}
