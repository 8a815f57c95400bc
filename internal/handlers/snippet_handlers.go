package handlers

import (
	"convoflow-backend/internal/services"
	"convoflow-backend/pkg/httputil"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	api_models "convoflow-backend/internal/models"

	"github.com/google/uuid"
)

// SnippetHandler serves bookmark add/remove/list.
type SnippetHandler struct {
	snippets *services.SnippetService
}

func NewSnippetHandler(snippets *services.SnippetService) *SnippetHandler {
	return &SnippetHandler{snippets: snippets}
}

// HandleSnippetAction handles POST /v1/snippets: adds or removes a bookmark
// depending on the action field.
func (h *SnippetHandler) HandleSnippetAction(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		httputil.RespondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req api_models.SnippetActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if req.ConversationID == uuid.Nil || req.MessageID == uuid.Nil {
		httputil.RespondError(w, http.StatusBadRequest, "conversationId and messageId are required")
		return
	}

	switch req.Action {
	case "add":
		snippet, err := h.snippets.Add(r.Context(), userID, req.ConversationID, req.MessageID)
		if err != nil {
			h.respondSnippetError(w, req.MessageID, err)
			return
		}
		httputil.RespondJSON(w, http.StatusCreated, api_models.SnippetResponse{
			ID:             snippet.ID,
			ConversationID: snippet.ConversationID,
			MessageID:      snippet.MessageID,
			Title:          snippet.Title,
			CreatedAt:      snippet.CreatedAt,
		})
	case "remove":
		if err := h.snippets.Remove(r.Context(), userID, req.ConversationID, req.MessageID); err != nil {
			h.respondSnippetError(w, req.MessageID, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		httputil.RespondError(w, http.StatusBadRequest, services.ErrInvalidActionArg.Error())
	}
}

// HandleListSnippets handles GET /v1/snippets?conversationId=...
func (h *SnippetHandler) HandleListSnippets(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		httputil.RespondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	conversationID, err := uuid.Parse(r.URL.Query().Get("conversationId"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid or missing conversationId")
		return
	}

	snippets, err := h.snippets.List(r.Context(), userID, conversationID)
	if err != nil {
		h.respondSnippetError(w, conversationID, err)
		return
	}

	resp := make([]api_models.SnippetResponse, 0, len(snippets))
	for _, sn := range snippets {
		resp = append(resp, api_models.SnippetResponse{
			ID:             sn.ID,
			ConversationID: sn.ConversationID,
			MessageID:      sn.MessageID,
			Title:          sn.Title,
			CreatedAt:      sn.CreatedAt,
		})
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// respondSnippetError maps snippet service errors to HTTP statuses.
func (h *SnippetHandler) respondSnippetError(w http.ResponseWriter, id uuid.UUID, err error) {
	switch {
	case errors.Is(err, services.ErrNotOwner):
		httputil.RespondError(w, http.StatusUnauthorized, "Conversation belongs to another user")
	case errors.Is(err, services.ErrMessageNotFound), errors.Is(err, services.ErrSnippetNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrNotConversation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("ERROR: snippet operation for %s failed: %v", id, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Snippet operation failed")
	}
}
