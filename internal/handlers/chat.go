package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"sciencebindu-backend/internal/middleware"
	"sciencebindu-backend/internal/models"
	"sciencebindu-backend/internal/services"
)

// maxChatBodyBytes bounds a message body, which may carry a base64 image.
const maxChatBodyBytes = 8 << 20

type chatService interface {
	Start(ctx context.Context, userID uuid.UUID, req models.StartChatRequest) (*services.Conversation, error)
	Send(ctx context.Context, userID uuid.UUID, req models.SendMessageRequest) (*services.Conversation, error)
	Current(ctx context.Context, userID uuid.UUID) (*services.Conversation, error)
	Load(ctx context.Context, userID, sessionID uuid.UUID) (*services.Conversation, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.ChatSession, error)
	Get(ctx context.Context, userID, sessionID uuid.UUID) (*models.ChatSession, error)
	Delete(ctx context.Context, userID, sessionID uuid.UUID) error
}

type ChatHandler struct {
	chat chatService
}

func NewChatHandler(chat chatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

func (h *ChatHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req models.StartChatRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	conv, err := h.chat.Start(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)

	var req models.SendMessageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	conv, err := h.chat.Send(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *ChatHandler) Current(w http.ResponseWriter, r *http.Request) {
	conv, err := h.chat.Current(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.chat.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	session, err := h.chat.Get(r.Context(), middleware.GetUserID(r.Context()), sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	if err := h.chat.Delete(r.Context(), middleware.GetUserID(r.Context()), sessionID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LoadSession makes a saved session the active conversation again.
func (h *ChatHandler) LoadSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	conv, err := h.chat.Load(r.Context(), middleware.GetUserID(r.Context()), sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func sessionIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return uuid.Nil, false
	}
	return id, true
}
