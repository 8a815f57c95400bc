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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check to ensure PostgresStore implements store.Store
var _ store.Store = (*PostgresStore)(nil)

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations (duplicate primary key / unique index).
const uniqueViolation = "23505"

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// GetUserByEmail retrieves a user by their email address.
// Returns store.ErrNotFound if the user does not exist.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, hashed_password, created_at, updated_at
		FROM users
		WHERE email = $1`

	user := &models.User{}
	err := s.db.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.HashedPassword,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetUserByEmail: query failed for %s: %v", email, err)
		return nil, fmt.Errorf("database error fetching user by email: %w", err)
	}

	return user, nil
}

// CreateUser inserts a new user record into the database.
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, hashed_password)
		VALUES ($1, $2, $3)`
	// created_at and updated_at have database defaults (NOW())

	_, err := s.db.Exec(ctx, query, user.ID, user.Email, user.HashedPassword)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		log.Printf("ERROR [PostgresStore] CreateUser: insert failed for %s: %v", user.Email, err)
		return fmt.Errorf("database error creating user: %w", err)
	}

	return nil
}

// CreateConversation inserts a new conversation row. The title is fixed at
// creation time; there is no update path for it.
func (s *PostgresStore) CreateConversation(ctx context.Context, arg store.CreateConversationParams) error {
	query := `
		INSERT INTO conversations (id, user_id, title, visibility)
		VALUES ($1, $2, $3, $4)`

	_, err := s.db.Exec(ctx, query, arg.ID, arg.UserID, arg.Title, models.VisibilityPrivate)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		log.Printf("ERROR [PostgresStore] CreateConversation: insert failed for %s: %v", arg.ID, err)
		return fmt.Errorf("database error creating conversation: %w", err)
	}

	return nil
}

// GetConversationByID retrieves a conversation by id.
// Returns store.ErrNotFound if it does not exist.
func (s *PostgresStore) GetConversationByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	query := `
		SELECT id, user_id, title, visibility, created_at
		FROM conversations
		WHERE id = $1`

	conv := &models.Conversation{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Title,
		&conv.Visibility,
		&conv.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetConversationByID: query failed for %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching conversation: %w", err)
	}

	return conv, nil
}

// ListConversationsByUser returns the caller's conversations, newest first.
func (s *PostgresStore) ListConversationsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Conversation, error) {
	query := `
		SELECT id, user_id, title, visibility, created_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListConversationsByUser: query failed for %s: %v", userID, err)
		return nil, fmt.Errorf("database error listing conversations: %w", err)
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var conv models.Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.Visibility, &conv.CreatedAt); err != nil {
			return nil, fmt.Errorf("database error scanning conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating conversations: %w", err)
	}

	return conversations, nil
}

// DeleteConversation removes a conversation and its dependent rows inside a
// single transaction. Snippets reference messages, and messages reference
// the conversation, so deletion order is snippets, messages, conversation.
// Returns store.ErrNotFound if the conversation row did not exist.
func (s *PostgresStore) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("database error starting delete transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after successful commit

	if _, err := tx.Exec(ctx, `DELETE FROM snippets WHERE conversation_id = $1`, id); err != nil {
		log.Printf("ERROR [PostgresStore] DeleteConversation: deleting snippets for %s: %v", id, err)
		return fmt.Errorf("database error deleting snippets: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE conversation_id = $1`, id); err != nil {
		log.Printf("ERROR [PostgresStore] DeleteConversation: deleting messages for %s: %v", id, err)
		return fmt.Errorf("database error deleting messages: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		log.Printf("ERROR [PostgresStore] DeleteConversation: deleting conversation %s: %v", id, err)
		return fmt.Errorf("database error deleting conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("database error committing delete: %w", err)
	}

	return nil
}
