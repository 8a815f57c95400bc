package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"

	"convoflow-backend/internal/models"
	"convoflow-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetDocumentByID retrieves a document by id.
// Returns store.ErrNotFound if it does not exist.
func (s *PostgresStore) GetDocumentByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	query := `
		SELECT id, user_id, title, kind, content, created_at
		FROM documents
		WHERE id = $1`

	doc := &models.Document{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.UserID,
		&doc.Title,
		&doc.Kind,
		&doc.Content,
		&doc.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetDocumentByID: query failed for %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching document: %w", err)
	}

	return doc, nil
}

// CreateDocument persists a tool-generated document and returns the stored
// row.
func (s *PostgresStore) CreateDocument(ctx context.Context, arg store.CreateDocumentParams) (*models.Document, error) {
	query := `
		INSERT INTO documents (id, user_id, title, kind, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, title, kind, content, created_at`

	doc := &models.Document{}
	err := s.db.QueryRow(ctx, query, arg.ID, arg.UserID, arg.Title, arg.Kind, arg.Content).Scan(
		&doc.ID,
		&doc.UserID,
		&doc.Title,
		&doc.Kind,
		&doc.Content,
		&doc.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		log.Printf("ERROR [PostgresStore] CreateDocument: insert failed for %s: %v", arg.ID, err)
		return nil, fmt.Errorf("database error creating document: %w", err)
	}

	return doc, nil
}

// UpdateDocumentContent replaces a document's content.
// Returns store.ErrNotFound if the document does not exist.
func (s *PostgresStore) UpdateDocumentContent(ctx context.Context, id uuid.UUID, content string) error {
	query := `
		UPDATE documents
		SET content = $2
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query, id, content)
	if err != nil {
		log.Printf("ERROR [PostgresStore] UpdateDocumentContent: update failed for %s: %v", id, err)
		return fmt.Errorf("database error updating document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	return nil
}

// CreateSuggestions inserts a batch of document edit suggestions.
func (s *PostgresStore) CreateSuggestions(ctx context.Context, suggestions []models.Suggestion) error {
	query := `
		INSERT INTO suggestions (id, document_id, user_id, original_text, suggested_text, description, is_resolved)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, sg := range suggestions {
		_, err := s.db.Exec(ctx, query, sg.ID, sg.DocumentID, sg.UserID, sg.OriginalText, sg.SuggestedText, sg.Description, sg.IsResolved)
		if err != nil {
			log.Printf("ERROR [PostgresStore] CreateSuggestions: insert failed for %s: %v", sg.ID, err)
			return fmt.Errorf("database error creating suggestion: %w", err)
		}
	}

	return nil
}
