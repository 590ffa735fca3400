package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatwire/internal/middleware"
	"github.com/chatwire/internal/model"
	"github.com/chatwire/internal/service"
)

type MessageHandler struct {
	messages *service.MessageService
}

func NewMessageHandler(messages *service.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

type SendMessageRequest struct {
	Content     string  `json:"content"`
	MessageType string  `json:"message_type,omitempty"`
	FileURL     string  `json:"file_url,omitempty"`
	ReplyToID   *string `json:"reply_to_id,omitempty"`
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	chatID := chi.URLParam(r, "chatID")
	userID := middleware.GetUserID(r.Context())

	m, err := h.messages.Send(r.Context(), service.SendInput{
		ChatID:      chatID,
		SenderID:    userID,
		Content:     req.Content,
		MessageType: model.MessageType(req.MessageType),
		FileURL:     req.FileURL,
		ReplyToID:   req.ReplyToID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// List returns a page of visible messages, oldest first. cursor query
// parameter resumes a previous page.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	userID := middleware.GetUserID(r.Context())
	cursor := r.URL.Query().Get("cursor")
	limit := queryInt(r, "limit", 0)

	page, err := h.messages.ListVisible(r.Context(), chatID, userID, cursor, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type ForwardRequest struct {
	MessageIDs   []string `json:"message_ids"`
	TargetChatID string   `json:"target_chat_id"`
}

type ForwardResponse struct {
	Forwarded []model.Message `json:"forwarded"`
	Count     int             `json:"count"`
	Requested int             `json:"requested"`
}

// Forward handles single and batch forwarding; sources that are gone or
// hidden are skipped, not errors.
func (h *MessageHandler) Forward(w http.ResponseWriter, r *http.Request) {
	var req ForwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if len(req.MessageIDs) == 0 || req.TargetChatID == "" {
		writeError(w, http.StatusBadRequest, "message_ids and target_chat_id required")
		return
	}
	userID := middleware.GetUserID(r.Context())

	forwarded, err := h.messages.ForwardBatch(r.Context(), req.MessageIDs, req.TargetChatID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ForwardResponse{
		Forwarded: forwarded,
		Count:     len(forwarded),
		Requested: len(req.MessageIDs),
	})
}

type DeleteMessageRequest struct {
	DeleteType string `json:"delete_type"`
}

func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req DeleteMessageRequest
	if r.Body != nil {
		// An empty body defaults to for_me.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	scope := model.DeleteScope(req.DeleteType)
	if scope == "" {
		scope = model.DeleteForMe
	}
	messageID := chi.URLParam(r, "messageID")
	userID := middleware.GetUserID(r.Context())

	if err := h.messages.Delete(r.Context(), messageID, userID, scope); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
