// Package handler holds the HTTP surface. Handlers decode, call a service
// and encode; all rules live below.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chatwire/internal/middleware"
	"github.com/chatwire/internal/service"
)

type ChatHandler struct {
	chats *service.ChatService
}

func NewChatHandler(chats *service.ChatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

type CreatePrivateChatRequest struct {
	UserID string `json:"user_id"`
}

type CreateGroupChatRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}

func (h *ChatHandler) CreatePrivateChat(w http.ResponseWriter, r *http.Request) {
	var req CreatePrivateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	userID := middleware.GetUserID(r.Context())

	chat, err := h.chats.FindOrCreatePrivateChat(r.Context(), userID, req.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (h *ChatHandler) CreateGroupChat(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	userID := middleware.GetUserID(r.Context())

	chat, err := h.chats.CreateGroupChat(r.Context(), userID, req.Name, req.MemberIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	entries, err := h.chats.ListChats(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	userID := middleware.GetUserID(r.Context())

	chat, err := h.chats.GetChat(r.Context(), chatID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

type AddMemberRequest struct {
	UserID string `json:"user_id"`
}

func (h *ChatHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	chatID := chi.URLParam(r, "chatID")
	actorID := middleware.GetUserID(r.Context())

	if err := h.chats.AddMember(r.Context(), chatID, actorID, req.UserID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	memberID := chi.URLParam(r, "userID")
	actorID := middleware.GetUserID(r.Context())

	if err := h.chats.RemoveMember(r.Context(), chatID, actorID, memberID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) Leave(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	userID := middleware.GetUserID(r.Context())

	if err := h.chats.RemoveMember(r.Context(), chatID, userID, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type flagRequest struct {
	Value bool `json:"value"`
}

func (h *ChatHandler) SetArchived(w http.ResponseWriter, r *http.Request) {
	var req flagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	chatID := chi.URLParam(r, "chatID")
	userID := middleware.GetUserID(r.Context())

	if err := h.chats.SetArchived(r.Context(), chatID, userID, req.Value); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) SetPinned(w http.ResponseWriter, r *http.Request) {
	var req flagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	chatID := chi.URLParam(r, "chatID")
	userID := middleware.GetUserID(r.Context())

	if err := h.chats.SetPinned(r.Context(), chatID, userID, req.Value); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type MuteRequest struct {
	Muted bool `json:"muted"`
	// DurationMinutes bounds a temporary mute; omitted means indefinite.
	DurationMinutes *int `json:"duration_minutes,omitempty"`
}

func (h *ChatHandler) SetMuted(w http.ResponseWriter, r *http.Request) {
	var req MuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	chatID := chi.URLParam(r, "chatID")
	userID := middleware.GetUserID(r.Context())

	var d *time.Duration
	if req.DurationMinutes != nil {
		dd := time.Duration(*req.DurationMinutes) * time.Minute
		d = &dd
	}
	if err := h.chats.SetMuted(r.Context(), chatID, userID, req.Muted, d); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
