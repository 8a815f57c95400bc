package handlers

import (
	"context"
	"convoflow-backend/internal/chat"
	api_models "convoflow-backend/internal/models"
	"convoflow-backend/internal/store"
	"convoflow-backend/pkg/httputil"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const defaultConversationListLimit = 50

// ChatHandler serves the streaming turn endpoint and conversation CRUD.
type ChatHandler struct {
	orchestrator *chat.Orchestrator
	store        store.Store
	turnTimeout  time.Duration
}

func NewChatHandler(orchestrator *chat.Orchestrator, s store.Store, turnTimeout time.Duration) *ChatHandler {
	return &ChatHandler{
		orchestrator: orchestrator,
		store:        s,
		turnTimeout:  turnTimeout,
	}
}

// sseSink streams events as server-sent events, flushing after every write.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	// clientCtx is the request context; once it is cancelled the client is
	// gone and sends start failing.
	clientCtx context.Context
}

func (s *sseSink) Send(ev chat.Event) error {
	if err := s.clientCtx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// HandleTurn handles POST /v1/chat: it validates the turn, persists the
// inbound user message, then streams model output as SSE. Validation
// failures are returned as plain JSON errors before any streaming starts.
// Once streaming has begun, a client disconnect does not abort the turn:
// the model loop is drained on a detached context so the assistant message
// still gets persisted.
func (h *ChatHandler) HandleTurn(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		httputil.RespondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req api_models.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if req.ID == uuid.Nil {
		httputil.RespondError(w, http.StatusBadRequest, "Conversation id is required")
		return
	}

	// One wall-clock ceiling covers the whole turn: validation, title
	// synthesis and inbound persistence in Begin, then the model loop. The
	// context is detached from the request so a client disconnect mid-turn
	// drains to completion instead of aborting persistence.
	turnCtx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.turnTimeout)
	defer cancel()

	turn, err := h.orchestrator.Begin(turnCtx, userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrNoUserMessage):
			httputil.RespondError(w, http.StatusBadRequest, "Request contains no user message")
		case errors.Is(err, chat.ErrNotOwner):
			httputil.RespondError(w, http.StatusUnauthorized, "Conversation belongs to another user")
		default:
			log.Printf("ERROR: failed to begin turn for conversation %s: %v", req.ID, err)
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to start turn")
		}
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.RespondError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := &sseSink{w: w, flusher: flusher, clientCtx: r.Context()}
	if err := turn.Stream(turnCtx, sink); err != nil {
		log.Printf("ERROR: turn for conversation %s ended with error: %v", turn.Conversation.ID, err)
	}
}

// HandleDeleteConversation handles DELETE /v1/chat/{conversationID}.
// Snippets and messages are removed along with the conversation.
func (h *ChatHandler) HandleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		httputil.RespondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	conversationID, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid conversation id")
		return
	}

	conv, err := h.store.GetConversationByID(r.Context(), conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		log.Printf("ERROR: failed to load conversation %s: %v", conversationID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to delete conversation")
		return
	}
	if conv.UserID != userID {
		httputil.RespondError(w, http.StatusUnauthorized, "Conversation belongs to another user")
		return
	}

	if err := h.store.DeleteConversation(r.Context(), conversationID); err != nil {
		log.Printf("ERROR: failed to delete conversation %s: %v", conversationID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to delete conversation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleListConversations handles GET /v1/chats.
func (h *ChatHandler) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		httputil.RespondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	limit := defaultConversationListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	conversations, err := h.store.ListConversationsByUser(r.Context(), userID, limit)
	if err != nil {
		log.Printf("ERROR: failed to list conversations for user %s: %v", userID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to list conversations")
		return
	}

	resp := api_models.ListConversationsResponse{
		Conversations: make([]api_models.ConversationResponse, 0, len(conversations)),
	}
	for _, conv := range conversations {
		resp.Conversations = append(resp.Conversations, api_models.ConversationResponse{
			ID:         conv.ID,
			Title:      conv.Title,
			Visibility: conv.Visibility,
			CreatedAt:  conv.CreatedAt,
		})
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleListMessages handles GET /v1/chats/{conversationID}/messages.
func (h *ChatHandler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		httputil.RespondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	conversationID, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid conversation id")
		return
	}

	conv, err := h.store.GetConversationByID(r.Context(), conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		log.Printf("ERROR: failed to load conversation %s: %v", conversationID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to list messages")
		return
	}
	if conv.UserID != userID {
		httputil.RespondError(w, http.StatusUnauthorized, "Conversation belongs to another user")
		return
	}

	messages, err := h.store.GetMessagesByConversation(r.Context(), conversationID)
	if err != nil {
		log.Printf("ERROR: failed to list messages for conversation %s: %v", conversationID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to list messages")
		return
	}

	resp := api_models.ListMessagesResponse{
		Messages: make([]api_models.MessageResponse, 0, len(messages)),
	}
	for _, msg := range messages {
		resp.Messages = append(resp.Messages, api_models.MessageResponse{
			ID:          msg.ID,
			Role:        msg.Role,
			Parts:       msg.Parts,
			Attachments: msg.Attachments,
			CreatedAt:   msg.CreatedAt,
		})
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}
