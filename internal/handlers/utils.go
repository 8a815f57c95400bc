package handlers

import (
	"context"
	"convoflow-backend/internal/auth"
	"fmt"

	"github.com/google/uuid"
)

// GetUserIDFromContext extracts the authenticated user's ID from the context.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, fmt.Errorf("user id not found in context")
	}
	return userID, nil
}
